package driving

import (
	"context"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

// LibraryService manages registered documents and exposes their processed
// chunks and cluster groupings.
type LibraryService interface {
	// Add registers a file for processing. The document starts in
	// StatusUploaded with its content type sniffed from the file.
	Add(ctx context.Context, path string) (*domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns all registered documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document and its chunks.
	Delete(ctx context.Context, documentID string) error

	// Chunks returns a document's chunks ordered by Index.
	Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ClusterGroups returns the document's chunks grouped by cluster
	// label, groups ordered by label and members by Index.
	ClusterGroups(ctx context.Context, documentID string) ([]domain.ClusterGroup, error)

	// ClusterContext returns up to maxChunks chunks from the given
	// clusters, ordered by Index. An empty clusters slice selects all.
	ClusterContext(ctx context.Context, documentID string, clusters []int, maxChunks int) ([]domain.Chunk, error)
}
