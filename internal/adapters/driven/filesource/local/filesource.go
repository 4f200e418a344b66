// Package local reads document bytes from the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"

	"github.com/tessera-kb/tessera/internal/core/domain"
	"github.com/tessera-kb/tessera/internal/core/ports/driven"
)

var _ driven.FileSource = (*FileSource)(nil)

// FileSource implements driven.FileSource over the local filesystem.
type FileSource struct{}

// New creates a local filesystem source.
func New() *FileSource {
	return &FileSource{}
}

// Read returns the raw bytes at path. Missing files map to
// domain.ErrNotFound; permission and I/O failures pass through.
func (f *FileSource) Read(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
