package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/tessera-kb/tessera/internal/core/domain"
	"github.com/tessera-kb/tessera/internal/core/ports/driven"
)

var _ driven.DocumentStore = (*Store)(nil)

// DefaultDimensions is the vector column width when none is configured.
// It must match the embedding provider's output width.
const DefaultDimensions = 1024

// Config holds the connection settings for the postgres store.
type Config struct {
	// ConnString is a pgx connection string or URL.
	ConnString string

	// Dimensions is the width of the embedding column. Defaults to
	// DefaultDimensions.
	Dimensions int
}

// Store is a PostgreSQL document store backed by pgvector. Similarity
// queries run on the server against an ivfflat cosine index.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to PostgreSQL and bootstraps the schema, including the
// vector extension and the cosine index.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ConnString == "" {
		return nil, fmt.Errorf("%w: connection string is required", domain.ErrInvalidInput)
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	pool, err := pgxpool.New(ctx, cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.initialize(ctx, cfg.Dimensions); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// initialize creates the extension, tables, and indexes if absent.
func (s *Store) initialize(ctx context.Context, dimensions int) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("creating vector extension: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id           TEXT PRIMARY KEY,
			filename     TEXT NOT NULL,
			storage_path TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL,
			failure      TEXT NOT NULL DEFAULT '',
			chunk_count  INTEGER NOT NULL DEFAULT 0,
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}

	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS chunks (
			id          TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content     TEXT NOT NULL,
			token_count INTEGER NOT NULL DEFAULT 0,
			cluster     INTEGER NOT NULL DEFAULT 0,
			embedding   vector(%d),
			created_at  TIMESTAMPTZ NOT NULL
		)
	`, dimensions)); err != nil {
		return fmt.Errorf("creating chunks table: %w", err)
	}

	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status)",
		"CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id)",
		`CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks
			USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
	} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}

	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ==================== Documents ====================

// SaveDocument stores or updates a document record.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents
			(id, filename, storage_path, content_type, status, failure, chunk_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			storage_path = EXCLUDED.storage_path,
			content_type = EXCLUDED.content_type,
			status = EXCLUDED.status,
			failure = EXCLUDED.failure,
			chunk_count = EXCLUDED.chunk_count,
			updated_at = EXCLUDED.updated_at
	`, doc.ID, doc.Filename, doc.StoragePath, doc.ContentType, string(doc.Status),
		doc.Failure, doc.ChunkCount, doc.CreatedAt.UTC(), doc.UpdatedAt.UTC())

	if err != nil {
		return fmt.Errorf("%w: saving document: %w", domain.ErrPersistence, err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, filename, storage_path, content_type, status, failure, chunk_count, created_at, updated_at
		FROM documents WHERE id = $1
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, storage_path, content_type, status, failure, chunk_count, created_at, updated_at
		FROM documents
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ListDocumentsByStatus returns documents in the given state, oldest first.
func (s *Store) ListDocumentsByStatus(ctx context.Context, status domain.Status) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, storage_path, content_type, status, failure, chunk_count, created_at, updated_at
		FROM documents WHERE status = $1
		ORDER BY created_at ASC, id ASC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents by status: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// SetDocumentStatus performs a lifecycle transition. The current row is
// locked while the transition is checked and written.
func (s *Store) SetDocumentStatus(ctx context.Context, id string, status domain.Status, failure string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidStatus, status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var raw string
	err = tx.QueryRow(ctx, "SELECT status FROM documents WHERE id = $1 FOR UPDATE", id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: reading status: %w", domain.ErrPersistence, err)
	}

	current := domain.Status(raw)
	if !current.CanTransition(status) {
		return fmt.Errorf("%w: cannot transition from %q to %q", domain.ErrInvalidStatus, current, status)
	}

	if status != domain.StatusFailed {
		failure = ""
	}
	if _, err := tx.Exec(ctx, `
		UPDATE documents SET status = $1, failure = $2, updated_at = $3 WHERE id = $4
	`, string(status), failure, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("%w: updating status: %w", domain.ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing status update: %w", domain.ErrPersistence, err)
	}
	return nil
}

// DeleteDocument removes a document; its chunks cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("%w: deleting document: %w", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Chunks ====================

// ReplaceChunks atomically swaps the document's chunk set using a batched
// insert inside one transaction.
func (s *Store) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	replacement := make([]domain.Chunk, len(chunks))
	copy(replacement, chunks)
	sort.Slice(replacement, func(i, j int) bool {
		return replacement[i].Index < replacement[j].Index
	})

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var exists int
	err = tx.QueryRow(ctx, "SELECT 1 FROM documents WHERE id = $1 FOR UPDATE", documentID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: checking document: %w", domain.ErrPersistence, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM chunks WHERE document_id = $1", documentID); err != nil {
		return fmt.Errorf("%w: deleting previous chunks: %w", domain.ErrPersistence, err)
	}

	batch := &pgx.Batch{}
	for _, chunk := range replacement {
		batch.Queue(`
			INSERT INTO chunks (id, document_id, chunk_index, content, token_count, cluster, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, chunk.ID, documentID, chunk.Index, chunk.Text, chunk.TokenCount,
			chunk.Cluster, pgvector.NewVector(chunk.Embedding), chunk.CreatedAt.UTC())
	}
	if err := runBatch(ctx, tx, batch); err != nil {
		return fmt.Errorf("%w: inserting chunks: %w", domain.ErrPersistence, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE documents SET chunk_count = $1, updated_at = $2 WHERE id = $3
	`, len(replacement), time.Now().UTC(), documentID); err != nil {
		return fmt.Errorf("%w: updating chunk count: %w", domain.ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing chunk replacement: %w", domain.ErrPersistence, err)
	}
	return nil
}

// runBatch sends the batch and drains every queued statement's result.
func runBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	results := tx.SendBatch(ctx, batch)
	var firstErr error
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := results.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// GetChunks retrieves a document's chunks ordered by Index.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, chunk_index, content, token_count, cluster, embedding, created_at
		FROM chunks WHERE document_id = $1
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %w", domain.ErrPersistence, err)
	}

	return chunks, nil
}

// SearchSimilar runs the cosine query on the server. pgvector's <=> operator
// is cosine distance, so similarity is 1 - distance; ordering by the
// operator ascending equals similarity descending, with the chunk ID as the
// tie-break.
func (s *Store) SearchSimilar(ctx context.Context, query domain.SimilarityQuery) ([]domain.ScoredChunk, error) {
	if len(query.Vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrInvalidInput)
	}
	if query.TopK <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive", domain.ErrInvalidInput)
	}

	vector := pgvector.NewVector(query.Vector)
	q := `
		SELECT id, document_id, chunk_index, content, token_count, cluster, embedding, created_at,
			1 - (embedding <=> $1) AS similarity
		FROM chunks
		WHERE 1 - (embedding <=> $1) >= $2
	`
	args := []any{vector, query.MinSimilarity}
	if len(query.DocumentIDs) > 0 {
		q += " AND document_id = ANY($3) ORDER BY embedding <=> $1, id LIMIT $4"
		args = append(args, query.DocumentIDs, query.TopK)
	} else {
		q += " ORDER BY embedding <=> $1, id LIMIT $3"
		args = append(args, query.TopK)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying similar chunks: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var hits []domain.ScoredChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit domain.ScoredChunk
		var embedding pgvector.Vector
		if err := rows.Scan(&hit.ID, &hit.DocumentID, &hit.Index, &hit.Text,
			&hit.TokenCount, &hit.Cluster, &embedding, &hit.CreatedAt, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("%w: scanning hit: %w", domain.ErrPersistence, err)
		}
		hit.Embedding = embedding.Slice()
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating hits: %w", domain.ErrPersistence, err)
	}

	return hits, nil
}

// ==================== Helper Functions ====================

// scanDocument scans a document from a pgx row. pgx.ErrNoRows passes through
// for the caller to map.
func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	var status string

	if err := row.Scan(&doc.ID, &doc.Filename, &doc.StoragePath, &doc.ContentType,
		&status, &doc.Failure, &doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scanning document: %w", domain.ErrPersistence, err)
	}

	doc.Status = domain.Status(status)
	return &doc, nil
}

// scanDocuments scans all document rows.
func scanDocuments(rows pgx.Rows) ([]domain.Document, error) {
	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating documents: %w", domain.ErrPersistence, err)
	}

	return docs, nil
}

// scanChunk scans a chunk row.
func scanChunk(row pgx.Row) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embedding pgvector.Vector

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Text,
		&chunk.TokenCount, &chunk.Cluster, &embedding, &chunk.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning chunk: %w", domain.ErrPersistence, err)
	}

	chunk.Embedding = embedding.Slice()
	return &chunk, nil
}
