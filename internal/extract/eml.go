package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

// Ensure EML implements the interface.
var _ Extractor = (*EML)(nil)

// EML extracts text from RFC 822 email messages. The searchable
// headers become a preamble, and multipart bodies prefer the plain
// text alternative over its HTML rendering.
type EML struct {
	html *HTML
}

// NewEML creates a new EML extractor.
func NewEML() *EML {
	return &EML{html: NewHTML()}
}

// MIMETypes returns the MIME types this extractor handles.
func (e *EML) MIMETypes() []string {
	return []string{"message/rfc822"}
}

// Extract parses the message and returns its headers and body text.
func (e *EML) Extract(ctx context.Context, raw []byte) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: parsing message: %w", domain.ErrInvalidInput, err)
	}

	var content strings.Builder
	for _, header := range []string{"From", "To", "Date", "Subject"} {
		if value := decodeHeader(msg.Header.Get(header)); value != "" {
			content.WriteString(header)
			content.WriteString(": ")
			content.WriteString(value)
			content.WriteString("\n")
		}
	}

	body, err := e.extractBody(ctx, msg)
	if err != nil {
		return "", err
	}
	content.WriteString("\n")
	content.WriteString(body)

	return strings.TrimSpace(sanitizeUTF8(content.String())), nil
}

// extractBody returns the message body as text. Multipart messages
// are walked part by part; single-part bodies are decoded directly.
func (e *EML) extractBody(ctx context.Context, msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return e.extractMultipart(ctx, msg.Body, params["boundary"])
	}

	body := decodeTransferEncoding(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	content, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %w", domain.ErrInvalidInput, err)
	}

	if mediaType == "text/html" {
		return e.html.Extract(ctx, content)
	}
	return string(content), nil
}

// extractMultipart collects the text of each part. When a message
// carries both alternatives, the plain text part wins over HTML.
func (e *EML) extractMultipart(ctx context.Context, r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	reader := multipart.NewReader(r, boundary)
	var textParts []string
	var htmlParts []string

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		mediaType, params, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}

		body := decodeTransferEncoding(part, part.Header.Get("Content-Transfer-Encoding"))
		content, readErr := io.ReadAll(body)
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			if text, htmlErr := e.html.Extract(ctx, content); htmlErr == nil && text != "" {
				htmlParts = append(htmlParts, text)
			}
		case strings.HasPrefix(mediaType, "multipart/"):
			nested, nestedErr := e.extractMultipart(ctx, bytes.NewReader(content), params["boundary"])
			if nestedErr == nil && nested != "" {
				textParts = append(textParts, nested)
			}
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	if len(htmlParts) > 0 {
		return strings.Join(htmlParts, "\n"), nil
	}
	return "", nil
}

// decodeHeader decodes RFC 2047 encoded-words, returning the raw
// header when decoding fails.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// decodeTransferEncoding unwraps the content transfer encodings worth
// handling. Anything else is passed through as-is.
func decodeTransferEncoding(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}
