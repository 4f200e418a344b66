package extract

import (
	"context"
	"regexp"
	"strings"
)

// Ensure Markdown implements the interface.
var _ Extractor = (*Markdown)(nil)

// Markdown strips formatting from markdown documents.
type Markdown struct{}

// NewMarkdown creates a new markdown extractor.
func NewMarkdown() *Markdown {
	return &Markdown{}
}

// MIMETypes returns the MIME types this extractor handles.
func (m *Markdown) MIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Extract returns the text with markdown formatting removed.
func (m *Markdown) Extract(_ context.Context, raw []byte) (string, error) {
	return stripMarkdown(sanitizeUTF8(string(raw))), nil
}

// Pre-compiled regular expressions for markdown stripping.
var (
	mdCodeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode   = regexp.MustCompile("`[^`]+`")
	mdImage        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote   = regexp.MustCompile(`(?m)^>\s*`)
	mdRule         = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdBullet       = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumbered     = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	mdMultiNewline = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common markdown formatting for plain text
// content. This is a simplified implementation that handles common
// cases; code blocks are dropped entirely.
func stripMarkdown(content string) string {
	content = mdCodeBlock.ReplaceAllString(content, "")
	content = mdInlineCode.ReplaceAllString(content, "")

	// Images go, links keep their text.
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")

	content = mdHeading.ReplaceAllString(content, "")

	// Bold/italic markers.
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = strings.ReplaceAll(content, "_", " ")

	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdBullet.ReplaceAllString(content, "")
	content = mdNumbered.ReplaceAllString(content, "")

	content = mdMultiNewline.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
