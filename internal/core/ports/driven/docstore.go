package driven

import (
	"context"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

// DocumentStore persists documents and their chunk sets, and answers
// similarity queries over the persisted vectors. Implementations exist for
// postgres (pgvector), sqlite, and memory.
type DocumentStore interface {
	// SaveDocument stores or updates a document record.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// ListDocumentsByStatus returns documents in the given state, oldest
	// first, so queue draining is fair.
	ListDocumentsByStatus(ctx context.Context, status domain.Status) ([]domain.Document, error)

	// SetDocumentStatus performs a lifecycle transition. It rejects edges
	// the status machine does not allow with domain.ErrInvalidStatus.
	// failure is recorded for StatusFailed and cleared otherwise.
	SetDocumentStatus(ctx context.Context, id string, status domain.Status, failure string) error

	// DeleteDocument removes a document and all of its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ReplaceChunks atomically swaps the document's chunk set: previous
	// chunks are deleted and the new set inserted in one transaction, and
	// the document's ChunkCount is updated. Readers never observe a
	// partial state.
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// GetChunks retrieves a document's chunks ordered by Index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// SearchSimilar returns chunks by cosine similarity to the query
	// vector: below-threshold hits dropped, ordered by similarity
	// descending with ties broken by ascending chunk ID, truncated to
	// TopK.
	SearchSimilar(ctx context.Context, query domain.SimilarityQuery) ([]domain.ScoredChunk, error)

	// Close releases the underlying connections.
	Close() error
}
