package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-kb/tessera/internal/adapters/driven/storage/memory"
	"github.com/tessera-kb/tessera/internal/clustering"
	"github.com/tessera-kb/tessera/internal/core/domain"
	"github.com/tessera-kb/tessera/internal/core/ports/driven"
	"github.com/tessera-kb/tessera/internal/segmenter"
)

// --- Mock implementations ---

// mockFileSource implements driven.FileSource for testing.
type mockFileSource struct {
	data    map[string][]byte
	readErr error
}

func (m *mockFileSource) Read(_ context.Context, path string) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	raw, ok := m.data[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return raw, nil
}

// mockExtractor implements driven.TextExtractor for testing. When text is
// empty it echoes the raw bytes, which keeps fixtures short.
type mockExtractor struct {
	text        string
	extractErr  error
	contentType string
}

func (m *mockExtractor) Extract(_ context.Context, raw []byte, _ string) (string, error) {
	if m.extractErr != nil {
		return "", m.extractErr
	}
	if m.text != "" {
		return m.text, nil
	}
	return string(raw), nil
}

func (m *mockExtractor) DetectType(_ []byte, _ string) string {
	if m.contentType != "" {
		return m.contentType
	}
	return "text/plain"
}

func (m *mockExtractor) SupportedTypes() []string {
	return []string{"text/plain"}
}

// mockEmbedder implements driven.EmbeddingProvider for testing. Each text
// gets a distinct deterministic vector keyed by its batch position.
type mockEmbedder struct {
	dims        int
	batchErr    error
	queryErr    error
	queryVec    []float32
	batchCalls  int
	queryCalls  int
	returnCount int // override the returned vector count; 0 honours the contract
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	n := len(texts)
	if m.returnCount > 0 {
		n = m.returnCount
	}
	out := make([][]float32, n)
	for i := range out {
		vec := make([]float32, m.dims)
		vec[i%m.dims] = 1
		vec[(i+1)%m.dims] = 0.01 * float32(i)
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	m.queryCalls++
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.queryVec != nil {
		return m.queryVec, nil
	}
	vec := make([]float32, m.dims)
	vec[0] = 1
	return vec, nil
}

func (m *mockEmbedder) Dimensions() int {
	return m.dims
}

func (m *mockEmbedder) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbedder) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbedder) Close() error {
	return nil
}

// Ensure mocks implement interfaces
var (
	_ driven.FileSource        = (*mockFileSource)(nil)
	_ driven.TextExtractor     = (*mockExtractor)(nil)
	_ driven.EmbeddingProvider = (*mockEmbedder)(nil)
)

// --- Test helpers ---

func setupTestPipeline(t *testing.T) (*PipelineService, *memory.DocumentStore, *mockFileSource, *mockExtractor, *mockEmbedder) {
	t.Helper()

	store := memory.NewDocumentStore()
	files := &mockFileSource{data: make(map[string][]byte)}
	extractor := &mockExtractor{}
	embedder := &mockEmbedder{dims: 4}
	seg := segmenter.New(segmenter.WithChunkSize(60), segmenter.WithChunkOverlap(10))
	clus := clustering.New(clustering.Config{})

	svc := NewPipelineService(store, files, extractor, embedder, seg, clus)
	return svc, store, files, extractor, embedder
}

// queueDocument registers a document and walks it to StatusQueued.
func queueDocument(t *testing.T, store *memory.DocumentStore, id, path, content string, files *mockFileSource) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:          id,
		Filename:    "fixture.txt",
		StoragePath: path,
		ContentType: "text/plain",
		Status:      domain.StatusUploaded,
	}))
	require.NoError(t, store.SetDocumentStatus(ctx, id, domain.StatusQueued, ""))
	files.data[path] = []byte(content)
}

// fixtureText builds text that splits into several fragments under the
// test segmenter's 60-char windows.
func fixtureText(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&b, "Sentence number %d talks about topic %d in a few words. ", i, i%3)
	}
	return b.String()
}

// --- Tests ---

func TestNewPipelineService(t *testing.T) {
	svc, _, _, _, _ := setupTestPipeline(t)
	require.NotNil(t, svc)
	assert.NotNil(t, svc.docStore)
	assert.NotNil(t, svc.segmenter)
	assert.NotNil(t, svc.clusterer)
}

func TestPipelineService_Process_Success(t *testing.T) {
	svc, store, files, _, _ := setupTestPipeline(t)
	ctx := context.Background()

	queueDocument(t, store, "doc-1", "/data/fixture.txt", fixtureText(3), files)

	result, err := svc.Process(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Equal(t, domain.StatusProcessed, result.Status)
	assert.Greater(t, result.Chunks, 0)
	assert.Equal(t, result.Chunks, result.Report.Fragments)
	assert.Greater(t, result.Report.Clusters, 0)
	assert.NotEmpty(t, result.Report.Method)
	assert.Greater(t, result.Duration.Nanoseconds(), int64(0))

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, doc.Status)
	assert.Equal(t, result.Chunks, doc.ChunkCount)
	assert.Empty(t, doc.Failure)

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, result.Chunks)
	for i, chunk := range chunks {
		assert.NotEmpty(t, chunk.ID)
		assert.Equal(t, "doc-1", chunk.DocumentID)
		assert.Equal(t, i, chunk.Index, "indices must be contiguous")
		assert.NotEmpty(t, strings.TrimSpace(chunk.Text))
		assert.Equal(t, domain.CountTokens(chunk.Text), chunk.TokenCount)
		assert.GreaterOrEqual(t, chunk.Cluster, 0, "no noise labels may persist")
		assert.Less(t, chunk.Cluster, result.Report.Clusters)
		assert.Len(t, chunk.Embedding, 4)
	}
}

func TestPipelineService_Process_TinyDocumentSingleCluster(t *testing.T) {
	svc, store, files, _, _ := setupTestPipeline(t)
	ctx := context.Background()

	// Short text -> few fragments -> tiny tier, everything labelled 0.
	queueDocument(t, store, "doc-1", "/data/tiny.txt", "Just a short note about nothing much.", files)

	result, err := svc.Process(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, string(clustering.MethodTinyFallback), result.Report.Method)
	assert.Equal(t, 1, result.Report.Clusters)

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	for _, chunk := range chunks {
		assert.Equal(t, 0, chunk.Cluster)
	}
}

func TestPipelineService_Process_SmallTierClusters(t *testing.T) {
	svc, store, files, _, _ := setupTestPipeline(t)
	ctx := context.Background()

	queueDocument(t, store, "doc-1", "/data/small.txt", fixtureText(12), files)

	result, err := svc.Process(ctx, "doc-1")
	require.NoError(t, err)
	require.Greater(t, result.Report.Fragments, 6, "fixture must clear the tiny tier")

	assert.GreaterOrEqual(t, result.Report.Clusters, 2)
	assert.LessOrEqual(t, result.Report.Clusters, 5)

	// Labels must be dense 0..K-1.
	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	seen := make(map[int]bool)
	for _, chunk := range chunks {
		require.GreaterOrEqual(t, chunk.Cluster, 0)
		require.Less(t, chunk.Cluster, result.Report.Clusters)
		seen[chunk.Cluster] = true
	}
	assert.Len(t, seen, result.Report.Clusters)
}

func TestPipelineService_Process_InvalidTransition(t *testing.T) {
	svc, store, _, _, _ := setupTestPipeline(t)
	ctx := context.Background()

	// Uploaded documents cannot jump straight to processing.
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:     "doc-1",
		Status: domain.StatusUploaded,
	}))

	_, err := svc.Process(ctx, "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestPipelineService_Process_UnknownDocument(t *testing.T) {
	svc, _, _, _, _ := setupTestPipeline(t)

	_, err := svc.Process(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPipelineService_Process_EmptyText_Fails(t *testing.T) {
	svc, store, files, extractor, _ := setupTestPipeline(t)
	ctx := context.Background()

	queueDocument(t, store, "doc-1", "/data/empty.txt", "ignored", files)
	extractor.text = "   \n\t  "

	_, err := svc.Process(ctx, "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "no extractable text")

	doc, getErr := store.GetDocument(ctx, "doc-1")
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.Failure, "no extractable text")

	chunks, getErr := store.GetChunks(ctx, "doc-1")
	require.NoError(t, getErr)
	assert.Empty(t, chunks, "no chunks may persist for a failed run")
}

func TestPipelineService_Process_ReadError_Fails(t *testing.T) {
	svc, store, files, _, _ := setupTestPipeline(t)
	ctx := context.Background()

	queueDocument(t, store, "doc-1", "/data/gone.txt", "content", files)
	delete(files.data, "/data/gone.txt")

	_, err := svc.Process(ctx, "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	doc, getErr := store.GetDocument(ctx, "doc-1")
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.Failure, "read source")
}

func TestPipelineService_Process_UnsupportedFormat_Fails(t *testing.T) {
	svc, store, files, extractor, _ := setupTestPipeline(t)
	ctx := context.Background()

	queueDocument(t, store, "doc-1", "/data/binary.bin", "content", files)
	extractor.extractErr = fmt.Errorf("%w: application/octet-stream", domain.ErrUnsupportedFormat)

	_, err := svc.Process(ctx, "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	doc, getErr := store.GetDocument(ctx, "doc-1")
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusFailed, doc.Status)
}

func TestPipelineService_Process_EmbeddingError_Fails(t *testing.T) {
	svc, store, files, _, embedder := setupTestPipeline(t)
	ctx := context.Background()

	queueDocument(t, store, "doc-1", "/data/fixture.txt", fixtureText(3), files)
	embedder.batchErr = fmt.Errorf("%w: provider unreachable", domain.ErrEmbedding)

	_, err := svc.Process(ctx, "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)

	doc, getErr := store.GetDocument(ctx, "doc-1")
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.Failure, "embed fragments")
}

func TestPipelineService_Process_EmbeddingCountMismatch_Fails(t *testing.T) {
	svc, store, files, _, embedder := setupTestPipeline(t)
	ctx := context.Background()

	queueDocument(t, store, "doc-1", "/data/fixture.txt", fixtureText(3), files)
	embedder.returnCount = 1 // fewer vectors than fragments

	_, err := svc.Process(ctx, "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Contains(t, err.Error(), "embeddings for")
}

func TestPipelineService_Process_Reprocess_ReplacesChunks(t *testing.T) {
	svc, store, files, _, _ := setupTestPipeline(t)
	ctx := context.Background()

	queueDocument(t, store, "doc-1", "/data/fixture.txt", fixtureText(4), files)

	first, err := svc.Process(ctx, "doc-1")
	require.NoError(t, err)

	firstChunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	firstIDs := make(map[string]bool, len(firstChunks))
	for _, c := range firstChunks {
		firstIDs[c.ID] = true
	}

	// Re-enqueue and run again with different content.
	require.NoError(t, svc.Enqueue(ctx, "doc-1"))
	files.data["/data/fixture.txt"] = []byte(fixtureText(6))

	second, err := svc.Process(ctx, "doc-1")
	require.NoError(t, err)
	require.Greater(t, first.Chunks, 0)
	require.Greater(t, second.Chunks, 0)

	secondChunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, secondChunks, second.Chunks)
	for i, chunk := range secondChunks {
		assert.Equal(t, i, chunk.Index)
		assert.False(t, firstIDs[chunk.ID], "old chunk IDs must not survive reprocessing")
	}

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, doc.Status)
	assert.Equal(t, second.Chunks, doc.ChunkCount)
}

func TestPipelineService_Enqueue(t *testing.T) {
	svc, store, _, _, _ := setupTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:     "doc-1",
		Status: domain.StatusUploaded,
	}))

	require.NoError(t, svc.Enqueue(ctx, "doc-1"))

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, doc.Status)
}

func TestPipelineService_Enqueue_FromProcessing_Rejected(t *testing.T) {
	svc, store, _, _, _ := setupTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:     "doc-1",
		Status: domain.StatusProcessing,
	}))

	err := svc.Enqueue(ctx, "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestValidateEmbeddings(t *testing.T) {
	fragments := []string{"a", "b"}

	tests := []struct {
		name       string
		embeddings [][]float32
		wantErr    bool
	}{
		{"matching", [][]float32{{1, 0}, {0, 1}}, false},
		{"count mismatch", [][]float32{{1, 0}}, true},
		{"empty vector", [][]float32{{1, 0}, {}}, true},
		{"ragged widths", [][]float32{{1, 0}, {0, 1, 2}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEmbeddings(fragments, tt.embeddings)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrEmbedding)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPipelineService_Process_StatusWriteFailureDoesNotMaskCause(t *testing.T) {
	// A store that rejects the failed-status write must still surface the
	// original pipeline error.
	svc, store, files, extractor, _ := setupTestPipeline(t)
	ctx := context.Background()

	queueDocument(t, store, "doc-1", "/data/fixture.txt", "content", files)
	extractor.extractErr = errors.New("boom")

	_, err := svc.Process(ctx, "doc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
