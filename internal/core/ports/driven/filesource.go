package driven

import "context"

// FileSource reads raw document bytes by storage path. The local
// filesystem adapter is the only production implementation; tests swap in
// fakes.
type FileSource interface {
	// Read returns the raw bytes at the given path. Missing files map to
	// domain.ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
}
