package driving

import (
	"context"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

// PipelineService runs the processing pipeline for registered documents:
// extract, segment, embed, cluster, persist. Runs are sequential within a
// document; concurrency only exists across documents.
type PipelineService interface {
	// Process executes one full run for the document and returns its
	// diagnostics. On failure the document is left in StatusFailed with
	// the cause recorded; Process never retries internally.
	Process(ctx context.Context, documentID string) (*domain.PipelineResult, error)

	// Enqueue marks a document for background processing. Valid from
	// the uploaded, processed (reprocess), and failed (retry) states.
	Enqueue(ctx context.Context, documentID string) error
}
