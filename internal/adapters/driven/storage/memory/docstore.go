package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tessera-kb/tessera/internal/core/domain"
	"github.com/tessera-kb/tessera/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Used in tests and as a throwaway backend; semantics match the durable
// stores, including transition checks and search ordering.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		result = append(result, s.documents[id])
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ListDocumentsByStatus returns documents in the given state, oldest first.
func (s *DocumentStore) ListDocumentsByStatus(_ context.Context, status domain.Status) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Document
	for id := range s.documents {
		if s.documents[id].Status == status {
			result = append(result, s.documents[id])
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// SetDocumentStatus performs a lifecycle transition.
func (s *DocumentStore) SetDocumentStatus(_ context.Context, id string, status domain.Status, failure string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !doc.Status.CanTransition(status) {
		return fmt.Errorf("%w: cannot transition from %q to %q", domain.ErrInvalidStatus, doc.Status, status)
	}

	doc.Status = status
	if status == domain.StatusFailed {
		doc.Failure = failure
	} else {
		doc.Failure = ""
	}
	doc.UpdatedAt = time.Now()
	s.documents[id] = doc
	return nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// ReplaceChunks atomically swaps the document's chunk set.
func (s *DocumentStore) ReplaceChunks(_ context.Context, documentID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[documentID]
	if !ok {
		return domain.ErrNotFound
	}

	replacement := make([]domain.Chunk, len(chunks))
	copy(replacement, chunks)
	sort.Slice(replacement, func(i, j int) bool {
		return replacement[i].Index < replacement[j].Index
	})
	s.chunks[documentID] = replacement

	doc.ChunkCount = len(replacement)
	doc.UpdatedAt = time.Now()
	s.documents[documentID] = doc
	return nil
}

// GetChunks retrieves a document's chunks ordered by Index.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.chunks[documentID]
	if !ok {
		return nil, nil
	}
	chunks := make([]domain.Chunk, len(stored))
	copy(chunks, stored)
	return chunks, nil
}

// SearchSimilar scans every stored chunk, scoring each against the query
// vector with cosine similarity.
func (s *DocumentStore) SearchSimilar(_ context.Context, query domain.SimilarityQuery) ([]domain.ScoredChunk, error) {
	if len(query.Vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrInvalidInput)
	}
	if query.TopK <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive", domain.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var scope map[string]bool
	if len(query.DocumentIDs) > 0 {
		scope = make(map[string]bool, len(query.DocumentIDs))
		for _, id := range query.DocumentIDs {
			scope[id] = true
		}
	}

	var hits []domain.ScoredChunk
	for docID, chunks := range s.chunks {
		if scope != nil && !scope[docID] {
			continue
		}
		for _, chunk := range chunks {
			similarity := cosineSimilarity(query.Vector, chunk.Embedding)
			if similarity < query.MinSimilarity {
				continue
			}
			hits = append(hits, domain.ScoredChunk{Chunk: chunk, Similarity: similarity})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > query.TopK {
		hits = hits[:query.TopK]
	}
	return hits, nil
}

// Close releases resources.
func (s *DocumentStore) Close() error {
	return nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector has zero norm or lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
