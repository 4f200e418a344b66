package domain

import (
	"strings"
	"time"
)

// Status is the processing state of a document.
type Status string

// Document lifecycle states. A document enters as StatusUploaded and only
// the pipeline moves it through StatusProcessing to a terminal outcome.
const (
	StatusUploaded   Status = "uploaded"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// statusTransitions is the allowed edge set of the lifecycle machine.
// Processed and failed documents may be queued again; that is the only
// way back into the pipeline (no internal retries).
var statusTransitions = map[Status][]Status{
	StatusUploaded:   {StatusQueued},
	StatusQueued:     {StatusProcessing},
	StatusProcessing: {StatusProcessed, StatusFailed},
	StatusProcessed:  {StatusQueued},
	StatusFailed:     {StatusQueued},
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether the edge s -> to exists in the lifecycle.
func (s Status) CanTransition(to Status) bool {
	for _, next := range statusTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a stored string back into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Document represents a registered file and its processing state.
// The raw bytes stay at StoragePath; only derived chunks are persisted
// alongside the record.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the original base name, used for format detection.
	Filename string

	// StoragePath is where the raw bytes can be read from.
	StoragePath string

	// ContentType is the sniffed MIME type.
	ContentType string

	// Status is the current lifecycle state.
	Status Status

	// Failure records why the last run failed. Empty unless Status is
	// StatusFailed.
	Failure string

	// ChunkCount is the number of chunks from the last successful run.
	ChunkCount int

	// CreatedAt is when the document was registered.
	CreatedAt time.Time

	// UpdatedAt is when the record last changed.
	UpdatedAt time.Time
}

// Chunk is an embedded fragment of a document. Chunks only exist as the
// output of a successful pipeline run; reprocessing replaces the full set.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the 0-based position within the document. Indices are
	// contiguous across a document's chunk set.
	Index int

	// Text is the fragment content. Never empty after trimming.
	Text string

	// TokenCount is the whitespace-delimited word count of Text.
	TokenCount int

	// Cluster is the semantic cluster label, dense in 0..K-1. Noise
	// sentinels never reach persisted chunks.
	Cluster int

	// Embedding is the vector representation, one fixed dimensionality
	// per corpus.
	Embedding []float32

	// CreatedAt is when the chunk was persisted.
	CreatedAt time.Time
}

// CountTokens returns the whitespace-delimited word count used for a
// chunk's TokenCount.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}
