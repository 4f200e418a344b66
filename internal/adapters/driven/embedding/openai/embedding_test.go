package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

// embeddingsHandler records every request and answers each input with a
// one-dimensional vector holding the input's length. Data entries are
// returned in reverse order to exercise index-based reassembly.
type embeddingsHandler struct {
	mu       sync.Mutex
	requests []embeddingRequest
	failFrom int // fail requests from this ordinal (1-based); 0 disables
}

func (h *embeddingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req embeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.requests = append(h.requests, req)
	n := len(h.requests)
	h.mu.Unlock()

	if h.failFrom > 0 && n >= h.failFrom {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "server exploded", "type": "server_error"}}`))
		return
	}

	resp := map[string]any{}
	data := make([]map[string]any, 0, len(req.Input))
	for i := len(req.Input) - 1; i >= 0; i-- {
		data = append(data, map[string]any{
			"embedding": []float64{float64(len(req.Input[i]))},
			"index":     i,
		})
	}
	resp["data"] = data
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *embeddingsHandler) recorded() []embeddingRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]embeddingRequest, len(h.requests))
	copy(out, h.requests)
	return out
}

func newTestService(t *testing.T, handler http.Handler, cfg Config) *EmbeddingService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, DefaultBatchSize, svc.batchSize)
}

func TestNewEmbeddingService_LegacyModelUsesNativeWidth(t *testing.T) {
	svc, err := NewEmbeddingService(Config{
		APIKey:     "k",
		Model:      "text-embedding-ada-002",
		Dimensions: 512,
	})
	require.NoError(t, err)

	// ada-002 ignores the dimensions field, so the requested width
	// cannot be honoured.
	assert.Equal(t, 1536, svc.Dimensions())
}

func TestEmbeddingService_EmbedBatch_ReassemblesByIndex(t *testing.T) {
	handler := &embeddingsHandler{}
	svc := newTestService(t, handler, Config{})

	texts := []string{"a", "bb", "ccc"}
	embeddings, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, embeddings, 3)

	// The handler answers in reverse order; reassembly restores input order.
	assert.Equal(t, []float32{1}, embeddings[0])
	assert.Equal(t, []float32{2}, embeddings[1])
	assert.Equal(t, []float32{3}, embeddings[2])

	requests := handler.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, DefaultModel, requests[0].Model)
	assert.Equal(t, DefaultDimensions, requests[0].Dimensions)
}

func TestEmbeddingService_EmbedBatch_SplitsIntoSubBatches(t *testing.T) {
	handler := &embeddingsHandler{}
	svc := newTestService(t, handler, Config{BatchSize: 2})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	embeddings, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, embeddings, 5)

	for i, text := range texts {
		assert.Equal(t, []float32{float32(len(text))}, embeddings[i], "embedding %d", i)
	}

	requests := handler.recorded()
	require.Len(t, requests, 3)
	assert.Equal(t, []string{"a", "bb"}, requests[0].Input)
	assert.Equal(t, []string{"ccc", "dddd"}, requests[1].Input)
	assert.Equal(t, []string{"eeeee"}, requests[2].Input)
}

func TestEmbeddingService_EmbedBatch_SubBatchFailureAbortsCall(t *testing.T) {
	handler := &embeddingsHandler{failFrom: 2}
	svc := newTestService(t, handler, Config{BatchSize: 2})

	embeddings, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c", "d"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Nil(t, embeddings)
}

func TestEmbeddingService_EmbedBatch_Empty(t *testing.T) {
	handler := &embeddingsHandler{}
	svc := newTestService(t, handler, Config{})

	embeddings, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embeddings)
	assert.Empty(t, handler.recorded())
}

func TestEmbeddingService_EmbedBatch_MissingIndexFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Two inputs, one data entry: index 1 never arrives.
		_, _ = w.Write([]byte(`{"data": [{"embedding": [0.5], "index": 0}]}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Contains(t, err.Error(), "no embedding for input 1")
}

func TestEmbeddingService_EmbedQuery(t *testing.T) {
	handler := &embeddingsHandler{}
	svc := newTestService(t, handler, Config{})

	embedding, err := svc.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5}, embedding)
}

func TestEmbeddingService_EmbedQuery_RejectsEmpty(t *testing.T) {
	handler := &embeddingsHandler{}
	svc := newTestService(t, handler, Config{})

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := svc.EmbedQuery(context.Background(), text)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Empty(t, handler.recorded())
}

func TestEmbeddingService_EmbedBatch_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "auth_error"}}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestEmbeddingService_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	assert.NoError(t, svc.Ping(context.Background()))
}

func TestEmbeddingService_Ping_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key"}}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	err = svc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
