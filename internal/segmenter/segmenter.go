// Package segmenter splits document text into overlapping fragments.
//
// Splitting is recursive: the text is divided at the coarsest separator
// present (paragraph break, then line break, sentence end, word boundary,
// and finally single characters), and pieces still over the size limit
// recurse with the finer separators. Undersized pieces are merged into
// windows up to the chunk size, carrying a suffix of the previous window
// as overlap so context survives the cut.
package segmenter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

// DefaultChunkSize is the default fragment size in characters.
const DefaultChunkSize = 800

// DefaultChunkOverlap is the default overlap between fragments in characters.
const DefaultChunkOverlap = 150

// DefaultSeparators is the default split hierarchy, coarsest first. The
// empty separator means single characters and must come last; it makes
// a split always possible.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Segmenter splits text into overlapping fragments.
type Segmenter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the segmenter.
type Option func(*Segmenter)

// WithChunkSize sets the fragment size in characters.
func WithChunkSize(size int) Option {
	return func(s *Segmenter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between fragments in characters.
func WithChunkOverlap(overlap int) Option {
	return func(s *Segmenter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithSeparators replaces the split hierarchy, coarsest first.
func WithSeparators(separators []string) Option {
	return func(s *Segmenter) {
		if len(separators) > 0 {
			s.separators = append([]string(nil), separators...)
		}
	}
}

// New creates a segmenter with the given options.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: append([]string(nil), DefaultSeparators...),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// ChunkSize returns the configured fragment size.
func (s *Segmenter) ChunkSize() int {
	return s.chunkSize
}

// ChunkOverlap returns the configured overlap.
func (s *Segmenter) ChunkOverlap() int {
	return s.overlap
}

// Split divides text into fragments. Fragments are trimmed and never
// empty; each stays within the chunk size unless a single indivisible
// token exceeds it (only possible without the empty separator).
func (s *Segmenter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: cannot segment empty text", domain.ErrInvalidInput)
	}

	raw := s.split(text, s.separators)

	fragments := make([]string, 0, len(raw))
	for _, f := range raw {
		f = strings.TrimSpace(f)
		if f != "" {
			fragments = append(fragments, f)
		}
	}
	return fragments, nil
}

// split is the recursive core. It cuts text at the first separator in
// separators that occurs in it, merges undersized pieces, and recurses
// into oversized ones with the remaining separators.
func (s *Segmenter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			rest = nil
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	splits := splitKeepingSeparator(text, sep)

	var fragments []string
	var pending []string
	for _, piece := range splits {
		if runeLen(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}

		if len(pending) > 0 {
			fragments = append(fragments, s.merge(pending)...)
			pending = nil
		}

		if len(rest) == 0 {
			// No finer separator left; the oversized piece passes
			// through whole.
			fragments = append(fragments, piece)
		} else {
			fragments = append(fragments, s.split(piece, rest)...)
		}
	}
	if len(pending) > 0 {
		fragments = append(fragments, s.merge(pending)...)
	}

	return fragments
}

// merge packs pieces into windows of at most chunkSize characters. When a
// window closes, leading pieces are dropped until at most overlap
// characters remain; the remainder seeds the next window.
func (s *Segmenter) merge(pieces []string) []string {
	var docs []string
	var window []string
	total := 0

	for _, piece := range pieces {
		pieceLen := runeLen(piece)
		if total+pieceLen > s.chunkSize && len(window) > 0 {
			if doc := joinTrim(window); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.overlap || (total+pieceLen > s.chunkSize && total > 0) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += pieceLen
	}

	if doc := joinTrim(window); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepingSeparator splits text by sep, attaching the separator to the
// front of the following piece so no characters are lost. The empty
// separator splits into single characters.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = sep + part
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinTrim(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
