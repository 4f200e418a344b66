package domain

// Default retrieval parameters, applied when the caller leaves the
// corresponding option zero.
const (
	DefaultTopK          = 5
	DefaultMinSimilarity = 0.7
)

// RetrievalOptions narrows a similarity query.
type RetrievalOptions struct {
	// DocumentIDs restricts results to the given documents. Empty means
	// the whole corpus.
	DocumentIDs []string

	// TopK caps the number of results. Zero selects DefaultTopK.
	TopK int

	// MinSimilarity drops results scoring below it. Zero selects
	// DefaultMinSimilarity; pass a negative value for no floor.
	MinSimilarity float64
}

// ScoredChunk is a retrieval hit: a chunk and its cosine similarity to
// the query vector.
type ScoredChunk struct {
	Chunk

	// Similarity is the cosine similarity in [-1, 1].
	Similarity float64
}

// SimilarityQuery is the store-level form of a retrieval request. Results
// are ordered by similarity descending, ties broken by ascending chunk ID,
// and truncated to TopK. An empty result set is a valid outcome.
type SimilarityQuery struct {
	// Vector is the embedded query.
	Vector []float32

	// DocumentIDs optionally restricts the search scope.
	DocumentIDs []string

	// TopK caps the number of hits. Must be positive.
	TopK int

	// MinSimilarity is the similarity floor. Hits below it are dropped.
	MinSimilarity float64
}
