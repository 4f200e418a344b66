package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

func TestFileSource_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello tessera"), 0600))

	source := New()
	data, err := source.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello tessera"), data)
}

func TestFileSource_Read_Missing(t *testing.T) {
	source := New()

	_, err := source.Read(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFileSource_Read_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	source := New()
	data, err := source.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, data)
}
