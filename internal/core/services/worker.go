package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tessera-kb/tessera/internal/core/domain"
	"github.com/tessera-kb/tessera/internal/core/ports/driven"
	"github.com/tessera-kb/tessera/internal/core/ports/driving"
	"github.com/tessera-kb/tessera/internal/logger"
)

// Ensure Worker implements the interface.
var _ driving.Worker = (*Worker)(nil)

// Default worker tuning.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultConcurrency  = 2
)

// WorkerConfig tunes the background worker. Zero values take defaults.
type WorkerConfig struct {
	// PollInterval is how often the queue is checked for work.
	PollInterval time.Duration

	// Concurrency caps the number of documents processed at once.
	Concurrency int
}

// Worker polls for queued documents and runs them through the pipeline.
// Each document is processed in its own goroutine; a panic marks that
// document failed without taking the worker down.
type Worker struct {
	pipeline driving.PipelineService
	docStore driven.DocumentStore

	pollInterval time.Duration
	concurrency  int

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	inflight map[string]bool
	slots    chan struct{}
}

// NewWorker creates a worker over the given pipeline.
func NewWorker(pipeline driving.PipelineService, docStore driven.DocumentStore, cfg WorkerConfig) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	return &Worker{
		pipeline:     pipeline,
		docStore:     docStore,
		pollInterval: cfg.PollInterval,
		concurrency:  cfg.Concurrency,
		inflight:     make(map[string]bool),
		slots:        make(chan struct{}, cfg.Concurrency),
	}
}

// Start begins the polling loop. Blocks until Stop is called or the
// context is cancelled; in both cases in-flight documents are drained
// before returning.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil // Already running
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	logger.Info("Worker started (poll %s, concurrency %d)", w.pollInterval, w.concurrency)

	// Check for queued work immediately on startup
	w.drainQueue(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			w.drainQueue(ctx)
		}
	}
}

// Stop gracefully shuts down the worker and waits for in-flight
// documents to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}

// drainQueue claims every currently queued document, blocking on the
// semaphore when all slots are busy.
func (w *Worker) drainQueue(ctx context.Context) {
	docs, err := w.docStore.ListDocumentsByStatus(ctx, domain.StatusQueued)
	if err != nil {
		logger.Error("Worker: list queued documents: %v", err)
		return
	}

	for i := range docs {
		id := docs[i].ID

		w.mu.Lock()
		if w.inflight[id] {
			w.mu.Unlock()
			continue
		}
		w.inflight[id] = true
		w.mu.Unlock()

		select {
		case w.slots <- struct{}{}:
		case <-ctx.Done():
			w.release(id)
			return
		case <-w.stopCh:
			w.release(id)
			return
		}

		w.wg.Add(1)
		go w.process(ctx, id)
	}
}

// process runs one document through the pipeline.
func (w *Worker) process(ctx context.Context, documentID string) {
	defer w.wg.Done()
	defer func() { <-w.slots }()
	defer w.release(documentID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Worker: panic processing %s: %v", documentID, r)
			cause := fmt.Sprintf("panic: %v", r)
			if err := w.docStore.SetDocumentStatus(ctx, documentID, domain.StatusFailed, cause); err != nil {
				logger.Error("Worker: failed to record panic for %s: %v", documentID, err)
			}
		}
	}()

	if _, err := w.pipeline.Process(ctx, documentID); err != nil {
		// Process already recorded the failure on the document.
		logger.Warn("Worker: processing %s failed: %v", documentID, err)
	}
}

// release clears the in-flight mark for a document.
func (w *Worker) release(documentID string) {
	w.mu.Lock()
	delete(w.inflight, documentID)
	w.mu.Unlock()
}
