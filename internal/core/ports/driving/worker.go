package driving

import "context"

// Worker drains queued documents through the pipeline in the background.
type Worker interface {
	// Start begins the polling loop, claiming queued documents up to the
	// configured concurrency. Blocks until the context is cancelled or
	// Stop is called.
	Start(ctx context.Context) error

	// Stop shuts the loop down and waits for in-flight documents.
	Stop() error
}
