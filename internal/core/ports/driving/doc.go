// Package driving defines the interfaces external actors use to operate
// the core. These are the "driving" or "primary" ports in hexagonal
// architecture terminology - they drive the application.
//
//   - LibraryService: document registry, chunks, cluster groups
//   - PipelineService: processing runs and queueing
//   - RetrievalService: similarity queries
//   - Worker: queue-draining background loop
//
// Implementations of these interfaces live in internal/core/services.
package driving
