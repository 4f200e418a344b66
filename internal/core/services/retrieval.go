package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tessera-kb/tessera/internal/core/domain"
	"github.com/tessera-kb/tessera/internal/core/ports/driven"
	"github.com/tessera-kb/tessera/internal/core/ports/driving"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService answers similarity queries over processed chunks.
type RetrievalService struct {
	docStore driven.DocumentStore
	embedder driven.EmbeddingProvider
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(docStore driven.DocumentStore, embedder driven.EmbeddingProvider) *RetrievalService {
	return &RetrievalService{
		docStore: docStore,
		embedder: embedder,
	}
}

// Retrieve embeds the query and returns the most similar chunks. An empty
// result is a valid outcome; embedding failures surface, never an empty
// slice.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	minSimilarity := opts.MinSimilarity
	if minSimilarity == 0 {
		minSimilarity = domain.DefaultMinSimilarity
	} else if minSimilarity < 0 {
		// Explicit "no floor": cosine never goes below -1.
		minSimilarity = -1
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.docStore.SearchSimilar(ctx, domain.SimilarityQuery{
		Vector:        vector,
		DocumentIDs:   opts.DocumentIDs,
		TopK:          topK,
		MinSimilarity: minSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return hits, nil
}
