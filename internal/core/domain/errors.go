package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as an
	// empty document text or ragged embedding dimensions.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidStatus indicates a lifecycle transition that the status
	// machine does not allow.
	ErrInvalidStatus = errors.New("invalid status transition")

	// ErrUnsupportedFormat indicates no extractor handles the file type.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmbedding indicates the embedding provider failed. Batch calls
	// never return partial results; the whole operation carries this.
	ErrEmbedding = errors.New("embedding provider failure")

	// ErrPersistence indicates the chunk store could not commit. Writes
	// are transactional, so the previous state remains intact.
	ErrPersistence = errors.New("persistence failure")
)
