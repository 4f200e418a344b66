package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tessera-kb/tessera/internal/clustering"
	"github.com/tessera-kb/tessera/internal/core/domain"
	"github.com/tessera-kb/tessera/internal/core/ports/driven"
	"github.com/tessera-kb/tessera/internal/core/ports/driving"
	"github.com/tessera-kb/tessera/internal/logger"
	"github.com/tessera-kb/tessera/internal/segmenter"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

// PipelineService runs the processing pipeline: extract, segment, embed,
// cluster, persist. Stages are sequential within a document; concurrency
// only exists across documents (see Worker).
type PipelineService struct {
	docStore  driven.DocumentStore
	files     driven.FileSource
	extractor driven.TextExtractor
	embedder  driven.EmbeddingProvider
	segmenter *segmenter.Segmenter
	clusterer *clustering.Clusterer
}

// NewPipelineService creates a new pipeline service.
func NewPipelineService(
	docStore driven.DocumentStore,
	files driven.FileSource,
	extractor driven.TextExtractor,
	embedder driven.EmbeddingProvider,
	seg *segmenter.Segmenter,
	clus *clustering.Clusterer,
) *PipelineService {
	return &PipelineService{
		docStore:  docStore,
		files:     files,
		extractor: extractor,
		embedder:  embedder,
		segmenter: seg,
		clusterer: clus,
	}
}

// Process executes one full run for the document. On failure the document
// is left in StatusFailed with the cause recorded; there are no internal
// retries.
func (s *PipelineService) Process(ctx context.Context, documentID string) (*domain.PipelineResult, error) {
	started := time.Now()

	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	if err := s.docStore.SetDocumentStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("start processing: %w", err)
	}

	logger.Debug("Processing %s (%s)", doc.ID, doc.Filename)

	result, err := s.run(ctx, doc)
	if err != nil {
		s.fail(ctx, documentID, err)
		return nil, err
	}

	if err := s.docStore.SetDocumentStatus(ctx, documentID, domain.StatusProcessed, ""); err != nil {
		err = fmt.Errorf("finish processing: %w", err)
		s.fail(ctx, documentID, err)
		return nil, err
	}

	result.DocumentID = documentID
	result.Status = domain.StatusProcessed
	result.Duration = time.Since(started)

	logger.Info("Processed %s: %d chunks in %d clusters (%s)",
		doc.Filename, result.Chunks, result.Report.Clusters, result.Report.Method)
	return result, nil
}

// run executes the fallible stages between the two status transitions.
func (s *PipelineService) run(ctx context.Context, doc *domain.Document) (*domain.PipelineResult, error) {
	raw, err := s.files.Read(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	text, err := s.extractor.Extract(ctx, raw, doc.Filename)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no extractable text", domain.ErrInvalidInput)
	}

	fragments, err := s.segmenter.Split(text)
	if err != nil {
		return nil, fmt.Errorf("segment text: %w", err)
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, fragments)
	if err != nil {
		return nil, fmt.Errorf("embed fragments: %w", err)
	}
	if err := validateEmbeddings(fragments, embeddings); err != nil {
		return nil, err
	}

	clusters, err := s.clusterer.Cluster(embeddings)
	if err != nil {
		return nil, fmt.Errorf("cluster fragments: %w", err)
	}
	switch clusters.Method {
	case clustering.MethodSingleCluster, clustering.MethodSequentialFallback:
		logger.Warn("Clustering degraded to %s for %s", clusters.Method, doc.ID)
	}

	now := time.Now()
	chunks := make([]domain.Chunk, len(fragments))
	for i, fragment := range fragments {
		chunks[i] = domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Index:      i,
			Text:       fragment,
			TokenCount: domain.CountTokens(fragment),
			Cluster:    clusters.Labels[i],
			Embedding:  embeddings[i],
			CreatedAt:  now,
		}
	}

	if err := s.docStore.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return nil, fmt.Errorf("persist chunks: %w", err)
	}

	return &domain.PipelineResult{
		Chunks: len(chunks),
		Report: domain.ClusterReport{
			Fragments:    len(fragments),
			Clusters:     clusters.Clusters,
			Method:       string(clusters.Method),
			Tier:         string(clusters.Tier),
			Distribution: clusters.Distribution,
		},
	}, nil
}

// Enqueue marks a document for background processing.
func (s *PipelineService) Enqueue(ctx context.Context, documentID string) error {
	if err := s.docStore.SetDocumentStatus(ctx, documentID, domain.StatusQueued, ""); err != nil {
		return fmt.Errorf("enqueue document: %w", err)
	}
	return nil
}

// fail records the cause on the document. A failed status write must not
// mask the original error, so it is only logged.
func (s *PipelineService) fail(ctx context.Context, documentID string, cause error) {
	if err := s.docStore.SetDocumentStatus(ctx, documentID, domain.StatusFailed, cause.Error()); err != nil {
		logger.Error("Failed to record failure for %s: %v", documentID, err)
	}
}

// validateEmbeddings checks the provider honoured its contract: one vector
// per fragment, all the same width.
func validateEmbeddings(fragments []string, embeddings [][]float32) error {
	if len(embeddings) != len(fragments) {
		return fmt.Errorf("%w: provider returned %d embeddings for %d fragments",
			domain.ErrEmbedding, len(embeddings), len(fragments))
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return fmt.Errorf("%w: empty embedding for fragment %d", domain.ErrEmbedding, i)
		}
		if len(e) != len(embeddings[0]) {
			return fmt.Errorf("%w: embedding %d has %d dimensions, expected %d",
				domain.ErrEmbedding, i, len(e), len(embeddings[0]))
		}
	}
	return nil
}
