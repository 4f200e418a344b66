package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

// foundPDFTool pretends pdftotext is installed.
func foundPDFTool(string) (string, error) {
	return "/usr/bin/pdftotext", nil
}

func TestPDF_MIMETypes(t *testing.T) {
	extractor := NewPDF()
	mimeTypes := extractor.MIMETypes()

	assert.Contains(t, mimeTypes, "application/pdf")
	assert.Len(t, mimeTypes, 1)
}

func TestPDF_Extract(t *testing.T) {
	runner := &mockRunner{output: []byte("PDF Title\n\nBody of the page.\n")}
	extractor := NewPDFWithRunner(runner)
	extractor.lookPath = foundPDFTool

	text, err := extractor.Extract(context.Background(), []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "PDF Title\n\nBody of the page.", text)

	assert.Equal(t, "pdftotext", runner.name)
	require.Len(t, runner.args, 3)
	assert.Equal(t, "-layout", runner.args[0])
	assert.True(t, strings.HasSuffix(runner.args[1], ".pdf"))
	assert.Equal(t, "-", runner.args[2])
}

func TestPDF_Extract_ToolMissing(t *testing.T) {
	extractor := NewPDFWithRunner(&mockRunner{})
	extractor.lookPath = func(string) (string, error) {
		return "", errors.New("executable file not found")
	}

	text, err := extractor.Extract(context.Background(), []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
	assert.Contains(t, err.Error(), "brew install poppler")
	assert.Empty(t, text)
}

func TestPDF_Extract_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("pdftotext crashed")}
	extractor := NewPDFWithRunner(runner)
	extractor.lookPath = foundPDFTool

	text, err := extractor.Extract(context.Background(), []byte("%PDF-1.4"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Empty(t, text)
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Error(t, ErrPDFToolNotFound)
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestCheckPDFTool(t *testing.T) {
	// Whether the binary exists depends on the host; only the error
	// shape is checked when it is absent.
	if err := CheckPDFTool(); err != nil {
		assert.ErrorIs(t, err, ErrPDFToolNotFound)
		assert.Contains(t, err.Error(), "poppler")
	}
}
