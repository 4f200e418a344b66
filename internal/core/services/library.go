package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tessera-kb/tessera/internal/core/domain"
	"github.com/tessera-kb/tessera/internal/core/ports/driven"
	"github.com/tessera-kb/tessera/internal/core/ports/driving"
)

// Ensure LibraryService implements the interface.
var _ driving.LibraryService = (*LibraryService)(nil)

// DefaultClusterContextChunks caps ClusterContext output when the caller
// passes no limit.
const DefaultClusterContextChunks = 10

// LibraryService manages registered documents and exposes their processed
// chunks and cluster groupings.
type LibraryService struct {
	docStore  driven.DocumentStore
	files     driven.FileSource
	extractor driven.TextExtractor
}

// NewLibraryService creates a new library service.
func NewLibraryService(
	docStore driven.DocumentStore,
	files driven.FileSource,
	extractor driven.TextExtractor,
) *LibraryService {
	return &LibraryService{
		docStore:  docStore,
		files:     files,
		extractor: extractor,
	}
}

// Add registers a file for processing. The raw bytes stay on disk; only
// the record is created, in StatusUploaded.
func (s *LibraryService) Add(ctx context.Context, path string) (*domain.Document, error) {
	raw, err := s.files.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	storagePath, err := filepath.Abs(path)
	if err != nil {
		storagePath = path
	}

	now := time.Now()
	doc := &domain.Document{
		ID:          uuid.NewString(),
		Filename:    filepath.Base(path),
		StoragePath: storagePath,
		ContentType: s.extractor.DetectType(raw, path),
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// Get retrieves a document by ID.
func (s *LibraryService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, documentID)
}

// List returns all registered documents, newest first.
func (s *LibraryService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// Delete removes a document and its chunks.
func (s *LibraryService) Delete(ctx context.Context, documentID string) error {
	return s.docStore.DeleteDocument(ctx, documentID)
}

// Chunks returns a document's chunks ordered by Index.
func (s *LibraryService) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.docStore.GetChunks(ctx, documentID)
}

// ClusterGroups returns the document's chunks grouped by cluster label.
// Groups come back ordered by label, members by Index.
func (s *LibraryService) ClusterGroups(ctx context.Context, documentID string) ([]domain.ClusterGroup, error) {
	chunks, err := s.Chunks(ctx, documentID)
	if err != nil {
		return nil, err
	}

	byLabel := make(map[int][]domain.Chunk)
	for _, chunk := range chunks {
		byLabel[chunk.Cluster] = append(byLabel[chunk.Cluster], chunk)
	}

	labels := make([]int, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	groups := make([]domain.ClusterGroup, 0, len(labels))
	for _, label := range labels {
		members := byLabel[label]
		sort.Slice(members, func(i, j int) bool {
			return members[i].Index < members[j].Index
		})
		groups = append(groups, domain.ClusterGroup{Cluster: label, Chunks: members})
	}
	return groups, nil
}

// ClusterContext returns up to maxChunks chunks drawn from the given
// clusters, ordered by Index across cluster boundaries. An empty clusters
// slice selects every cluster; maxChunks <= 0 applies the default cap.
func (s *LibraryService) ClusterContext(ctx context.Context, documentID string, clusters []int, maxChunks int) ([]domain.Chunk, error) {
	chunks, err := s.Chunks(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if maxChunks <= 0 {
		maxChunks = DefaultClusterContextChunks
	}

	var wanted map[int]bool
	if len(clusters) > 0 {
		wanted = make(map[int]bool, len(clusters))
		for _, label := range clusters {
			wanted[label] = true
		}
	}

	var selected []domain.Chunk
	for _, chunk := range chunks {
		if wanted != nil && !wanted[chunk.Cluster] {
			continue
		}
		selected = append(selected, chunk)
		if len(selected) == maxChunks {
			break
		}
	}
	return selected, nil
}
