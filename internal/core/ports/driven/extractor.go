package driven

import "context"

// TextExtractor turns raw file bytes into plain text.
//
// Implementations select a format handler from the filename and content
// sniffing. Unknown formats fail with domain.ErrUnsupportedFormat; whether
// an empty extraction result is an error is the caller's decision.
type TextExtractor interface {
	// Extract returns the plain text of the given bytes.
	Extract(ctx context.Context, raw []byte, filename string) (string, error)

	// DetectType reports the MIME type used to route the given bytes,
	// extension first, content sniffing second. It never fails; unknown
	// inputs come back as a generic binary type.
	DetectType(raw []byte, filename string) string

	// SupportedTypes lists the MIME types the extractor handles.
	SupportedTypes() []string
}
