package extract

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-kb/tessera/internal/core/domain"
	"github.com/tessera-kb/tessera/internal/core/ports/driven"
)

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()
	require.NotNil(t, registry)
	assert.NotEmpty(t, registry.SupportedTypes())
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.TextExtractor = (*Registry)(nil)
}

func TestRegistry_DetectType(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		filename string
		expected string
	}{
		{
			name:     "plain text extension",
			raw:      []byte("hello"),
			filename: "notes.txt",
			expected: "text/plain",
		},
		{
			name:     "uppercase extension",
			raw:      []byte("hello"),
			filename: "REPORT.TXT",
			expected: "text/plain",
		},
		{
			name:     "markdown extension",
			raw:      []byte("# heading"),
			filename: "README.md",
			expected: "text/markdown",
		},
		{
			name:     "html extension",
			raw:      []byte("<p>hi</p>"),
			filename: "page.html",
			expected: "text/html",
		},
		{
			name:     "pdf extension",
			raw:      []byte("%PDF-1.4"),
			filename: "paper.pdf",
			expected: "application/pdf",
		},
		{
			name:     "docx extension",
			raw:      []byte("PK"),
			filename: "memo.docx",
			expected: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		},
		{
			name:     "eml extension",
			raw:      []byte("From: a@example.com"),
			filename: "message.eml",
			expected: "message/rfc822",
		},
		{
			name:     "ics extension",
			raw:      []byte("BEGIN:VCALENDAR"),
			filename: "schedule.ics",
			expected: "text/calendar",
		},
		{
			name:     "source code extension",
			raw:      []byte("package main"),
			filename: "main.go",
			expected: "text/x-go",
		},
		{
			name:     "no extension sniffs html",
			raw:      []byte("<!DOCTYPE html><html><body>hi</body></html>"),
			filename: "download",
			expected: "text/html",
		},
		{
			name:     "no extension sniffs plain text",
			raw:      []byte("permission is hereby granted"),
			filename: "LICENSE",
			expected: "text/plain",
		},
		{
			name:     "unknown extension sniffs content",
			raw:      []byte("key = value"),
			filename: "settings.cfg",
			expected: "text/plain",
		},
		{
			name:     "png by magic bytes",
			raw:      []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
			filename: "image",
			expected: "image/png",
		},
		{
			name:     "unknown binary",
			raw:      []byte{0x00, 0x01, 0x02, 0x03},
			filename: "blob",
			expected: "application/octet-stream",
		},
	}

	registry := NewRegistry()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, registry.DetectType(tc.raw, tc.filename))
		})
	}
}

func TestRegistry_Extract_RoutesByExtension(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	raw := []byte("# Title\n\nSee [docs](https://example.com).")
	text, err := registry.Extract(ctx, raw, "guide.md")
	require.NoError(t, err)
	assert.Equal(t, "Title\n\nSee docs.", text)
}

func TestRegistry_Extract_RoutesBySniffing(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	raw := []byte("<html><body><p>Hello &amp; welcome</p></body></html>")
	text, err := registry.Extract(ctx, raw, "download")
	require.NoError(t, err)
	assert.Equal(t, "Hello & welcome", text)
}

func TestRegistry_Extract_TextSubtypeFallsBack(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	// Sniffing reports text/xml, which no extractor claims, so the
	// plain text extractor handles it.
	raw := []byte(`<?xml version="1.0"?><note>call back</note>`)
	text, err := registry.Extract(ctx, raw, "download")
	require.NoError(t, err)
	assert.Equal(t, `<?xml version="1.0"?><note>call back</note>`, text)
}

func TestRegistry_Extract_Unsupported(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	raw := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	text, err := registry.Extract(ctx, raw, "logo.png")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "image/png")
	assert.Empty(t, text)
}

func TestRegistry_Register_Overrides(t *testing.T) {
	registry := NewRegistry()
	override := &staticExtractor{types: []string{"text/plain"}, text: "override"}
	registry.Register(override)

	text, err := registry.Extract(context.Background(), []byte("anything"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "override", text)
}

func TestRegistry_SupportedTypes(t *testing.T) {
	registry := NewRegistry()
	types := registry.SupportedTypes()

	assert.Contains(t, types, "text/plain")
	assert.Contains(t, types, "text/markdown")
	assert.Contains(t, types, "text/html")
	assert.Contains(t, types, "application/pdf")
	assert.Contains(t, types, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	assert.Contains(t, types, "message/rfc822")
	assert.Contains(t, types, "text/calendar")
	assert.True(t, sort.StringsAreSorted(types))
}

// staticExtractor returns a fixed string for registry routing tests.
type staticExtractor struct {
	types []string
	text  string
}

func (s *staticExtractor) Extract(_ context.Context, _ []byte) (string, error) {
	return s.text, nil
}

func (s *staticExtractor) MIMETypes() []string {
	return s.types
}
