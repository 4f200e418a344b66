package extract

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tessera-kb/tessera/internal/core/domain"
	"github.com/tessera-kb/tessera/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.TextExtractor = (*Registry)(nil)

// Extractor converts raw bytes of one format family into plain text.
type Extractor interface {
	// Extract returns the plain text of the given bytes.
	Extract(ctx context.Context, raw []byte) (string, error)

	// MIMETypes returns the MIME types this extractor handles.
	MIMETypes() []string
}

// Registry dispatches extraction to format extractors by MIME type.
type Registry struct {
	byType map[string]Extractor
}

// NewRegistry creates a registry with the default format extractors.
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[string]Extractor)}
	r.Register(NewPlaintext())
	r.Register(NewMarkdown())
	r.Register(NewHTML())
	r.Register(NewPDF())
	r.Register(NewDOCX())
	r.Register(NewEML())
	r.Register(NewICS())
	return r
}

// Register adds an extractor for each MIME type it claims. A later
// registration replaces an earlier one for the same type.
func (r *Registry) Register(e Extractor) {
	for _, mimeType := range e.MIMETypes() {
		r.byType[mimeType] = e
	}
}

// extensionTypes maps file extensions to MIME types. Extensions are
// checked before content sniffing because sniffing cannot tell
// markdown or source code apart from plain text.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".csv":      "text/csv",
	".json":     "application/json",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".xml":      "application/xml",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".rs":       "text/x-rust",
	".java":     "text/x-java",
	".c":        "text/x-c",
	".h":        "text/x-c",
	".cpp":      "text/x-c++",
	".rb":       "text/x-ruby",
	".sh":       "text/x-shellscript",
	".sql":      "text/x-sql",
	".js":       "text/javascript",
	".jsx":      "text/jsx",
	".ts":       "text/typescript",
	".tsx":      "text/typescript-jsx",
	".css":      "text/css",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".mdown":    "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".eml":      "message/rfc822",
	".ics":      "text/calendar",
}

// DetectType reports the MIME type used to route the given bytes.
// The filename extension wins; otherwise the content is sniffed.
// Unknown inputs come back as application/octet-stream.
func (r *Registry) DetectType(raw []byte, filename string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if mimeType, ok := extensionTypes[ext]; ok {
			return mimeType
		}
	}

	mimeType := http.DetectContentType(raw)

	// Strip parameters such as "; charset=utf-8".
	if base, _, found := strings.Cut(mimeType, ";"); found {
		mimeType = base
	}
	return strings.TrimSpace(mimeType)
}

// Extract converts the given bytes to plain text using the extractor
// registered for the detected MIME type. Unclaimed text/* subtypes
// fall back to the plain text extractor.
func (r *Registry) Extract(ctx context.Context, raw []byte, filename string) (string, error) {
	mimeType := r.DetectType(raw, filename)

	extractor, ok := r.byType[mimeType]
	if !ok && strings.HasPrefix(mimeType, "text/") {
		extractor, ok = r.byType["text/plain"]
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, mimeType)
	}

	text, err := extractor.Extract(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", mimeType, err)
	}
	return text, nil
}

// SupportedTypes lists the registered MIME types in sorted order.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.byType))
	for mimeType := range r.byType {
		types = append(types, mimeType)
	}
	sort.Strings(types)
	return types
}
