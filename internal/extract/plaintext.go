package extract

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Ensure Plaintext implements the interface.
var _ Extractor = (*Plaintext)(nil)

// Plaintext passes text through with UTF-8 sanitation.
type Plaintext struct{}

// NewPlaintext creates a new plain text extractor.
func NewPlaintext() *Plaintext {
	return &Plaintext{}
}

// MIMETypes returns the MIME types this extractor handles. The registry
// also routes any unclaimed text/* subtype here.
func (p *Plaintext) MIMETypes() []string {
	return []string{
		"text/plain",
		"text/x-go",
		"text/x-python",
		"text/x-rust",
		"text/x-java",
		"text/x-c",
		"text/x-c++",
		"text/x-ruby",
		"text/x-shellscript",
		"text/x-sql",
		"text/csv",
		"text/yaml",
		"text/toml",
		"text/javascript",
		"text/jsx",
		"text/typescript",
		"text/typescript-jsx",
		"text/css",
		"application/json",
		"application/xml",
	}
}

// Extract returns the content as-is after dropping invalid UTF-8.
func (p *Plaintext) Extract(_ context.Context, raw []byte) (string, error) {
	return strings.TrimSpace(sanitizeUTF8(string(raw))), nil
}

// sanitizeUTF8 drops invalid byte sequences and NUL characters.
// Postgres TEXT columns reject both.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) && !strings.ContainsRune(s, 0) {
		return s
	}

	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == 0 {
			continue
		}
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
