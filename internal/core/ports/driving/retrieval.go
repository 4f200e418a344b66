package driving

import (
	"context"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

// RetrievalService answers similarity queries over processed chunks.
type RetrievalService interface {
	// Retrieve embeds the query and returns the most similar chunks,
	// ordered by similarity descending with ties broken by ascending
	// chunk ID. An empty result is a valid outcome; provider failures
	// are not silently absorbed.
	Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredChunk, error)
}
