package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrPDFToolNotFound is returned when the pdftotext binary is absent.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const pdfToTextBinary = "pdftotext"

// CommandRunner executes an external command and returns its output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Ensure PDF implements the interface.
var _ Extractor = (*PDF)(nil)

// PDF extracts text from PDF documents by shelling out to pdftotext.
type PDF struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// NewPDF creates a PDF extractor using the system pdftotext binary.
func NewPDF() *PDF {
	return &PDF{runner: execRunner{}, lookPath: exec.LookPath}
}

// NewPDFWithRunner creates a PDF extractor with a custom command
// runner, used in tests to avoid a real pdftotext invocation.
func NewPDFWithRunner(runner CommandRunner) *PDF {
	return &PDF{runner: runner, lookPath: exec.LookPath}
}

// MIMETypes returns the MIME types this extractor handles.
func (p *PDF) MIMETypes() []string {
	return []string{"application/pdf"}
}

// Extract writes the bytes to a temporary file and runs pdftotext over
// it. pdftotext only reads from a path, not stdin.
func (p *PDF) Extract(ctx context.Context, raw []byte) (string, error) {
	if _, err := p.lookPath(pdfToTextBinary); err != nil {
		return "", fmt.Errorf("%w\n%s", ErrPDFToolNotFound, InstallInstructions())
	}

	tmp, err := os.CreateTemp("", "tessera-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp pdf: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing temp pdf: %w", err)
	}

	// "-" sends the extracted text to stdout.
	output, err := p.runner.Run(ctx, pdfToTextBinary, "-layout", tmp.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}

	return strings.TrimSpace(sanitizeUTF8(string(output))), nil
}

// CheckPDFTool reports whether pdftotext is available on this system.
func CheckPDFTool() error {
	if _, err := exec.LookPath(pdfToTextBinary); err != nil {
		return fmt.Errorf("%w\n%s", ErrPDFToolNotFound, InstallInstructions())
	}
	return nil
}

// InstallInstructions describes how to install the pdftotext binary.
func InstallInstructions() string {
	return `pdftotext is required for PDF extraction. Install it with:
  macOS:         brew install poppler
  Debian/Ubuntu: sudo apt install poppler-utils
  Fedora:        sudo dnf install poppler-utils`
}
