package extract

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

// Ensure HTML implements the interface.
var _ Extractor = (*HTML)(nil)

// HTML extracts readable text from HTML documents.
type HTML struct{}

// NewHTML creates a new HTML extractor.
func NewHTML() *HTML {
	return &HTML{}
}

// MIMETypes returns the MIME types this extractor handles.
func (h *HTML) MIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Elements whose text content is never document prose.
const htmlNoiseSelector = "script, style, noscript, nav, svg, iframe"

// Block-level elements that should break the extracted text into lines.
const htmlBlockSelector = "p, div, h1, h2, h3, h4, h5, h6, li, tr, " +
	"blockquote, pre, table, section, article, br, hr"

// Extract parses the HTML and returns its readable text. Entities are
// decoded by the parser; script, style and navigation content is
// dropped, and block elements become line breaks.
func (h *HTML) Extract(_ context.Context, raw []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: parsing html: %w", domain.ErrInvalidInput, err)
	}

	doc.Find(htmlNoiseSelector).Remove()

	// Newline after each block element so headings and paragraphs do
	// not run together in the text.
	doc.Find(htmlBlockSelector).AfterHtml("\n")

	// The parser always synthesises a body, and taking text from it
	// skips <head> content such as the title.
	return collapseWhitespace(sanitizeUTF8(doc.Find("body").Text())), nil
}

var multiSpaces = regexp.MustCompile(`[ \t]+`)

// collapseWhitespace trims each line and removes empty lines.
func collapseWhitespace(content string) string {
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	var result []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}
