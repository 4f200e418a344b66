package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tessera-kb/tessera/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/tessera-kb/tessera/internal/core/domain"
	"github.com/tessera-kb/tessera/internal/core/ports/driven"
)

var _ driven.DocumentStore = (*Store)(nil)

// Store is a SQLite-backed document store. Embeddings are persisted as
// little-endian float32 blobs and similarity search scores candidates in Go,
// which holds up fine at single-machine corpus sizes.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store under the given data directory.
// If dataDir is empty, defaults to ~/.tessera/data/tessera.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tessera", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "tessera.db")

	// WAL for concurrent readers; pragmas live in the DSN so every pooled
	// connection picks them up. Timestamps are stored in SQLite's text
	// format, which keeps ORDER BY on them correct.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Documents ====================

// SaveDocument stores or updates a document record.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, filename, storage_path, content_type, status, failure, chunk_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			storage_path = excluded.storage_path,
			content_type = excluded.content_type,
			status = excluded.status,
			failure = excluded.failure,
			chunk_count = excluded.chunk_count,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Filename, doc.StoragePath, doc.ContentType, string(doc.Status),
		doc.Failure, doc.ChunkCount, doc.CreatedAt.UTC(), doc.UpdatedAt.UTC())

	if err != nil {
		return fmt.Errorf("%w: saving document: %w", domain.ErrPersistence, err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, storage_path, content_type, status, failure, chunk_count, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, storage_path, content_type, status, failure, chunk_count, created_at, updated_at
		FROM documents WHERE status = ?
		ORDER BY created_at ASC, id ASC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents by status: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// SetDocumentStatus performs a lifecycle transition. The current status is
// read and checked inside the same transaction that writes the new one.
func (s *Store) SetDocumentStatus(ctx context.Context, id string, status domain.Status, failure string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidStatus, status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var raw string
	err = tx.QueryRowContext(ctx, "SELECT status FROM documents WHERE id = ?", id).Scan(&raw)
	if err == sql.ErrNoRows {
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
	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET status = ?, failure = ?, updated_at = ? WHERE id = ?
	`, string(status), failure, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("%w: updating status: %w", domain.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing status update: %w", domain.ErrPersistence, err)
	}
	return nil
}

// DeleteDocument removes a document; its chunks cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: deleting document: %w", domain.ErrPersistence, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: deleting document: %w", domain.ErrPersistence, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Chunks ====================

// ReplaceChunks atomically swaps the document's chunk set.
func (s *Store) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	replacement := make([]domain.Chunk, len(chunks))
	copy(replacement, chunks)
	sort.Slice(replacement, func(i, j int) bool {
		return replacement[i].Index < replacement[j].Index
	})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", documentID).Scan(&exists)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: checking document: %w", domain.ErrPersistence, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("%w: deleting previous chunks: %w", domain.ErrPersistence, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, position, text, token_count, cluster, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %w", domain.ErrPersistence, err)
	}
	defer stmt.Close()

	for _, chunk := range replacement {
		if _, err := stmt.ExecContext(ctx, chunk.ID, documentID, chunk.Index, chunk.Text,
			chunk.TokenCount, chunk.Cluster, float32SliceToBytes(chunk.Embedding),
			chunk.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("%w: inserting chunk %s: %w", domain.ErrPersistence, chunk.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET chunk_count = ?, updated_at = ? WHERE id = ?
	`, len(replacement), time.Now().UTC(), documentID); err != nil {
		return fmt.Errorf("%w: updating chunk count: %w", domain.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing chunk replacement: %w", domain.ErrPersistence, err)
	}
	return nil
}

// GetChunks retrieves a document's chunks ordered by Index.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, position, text, token_count, cluster, embedding, created_at
		FROM chunks WHERE document_id = ?
		ORDER BY position
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

// SearchSimilar loads candidate chunks and scores them in Go. SQLite has no
// vector index, so this is a scan over the (optionally scoped) corpus.
func (s *Store) SearchSimilar(ctx context.Context, query domain.SimilarityQuery) ([]domain.ScoredChunk, error) {
	if len(query.Vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrInvalidInput)
	}
	if query.TopK <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive", domain.ErrInvalidInput)
	}

	q := `
		SELECT id, document_id, position, text, token_count, cluster, embedding, created_at
		FROM chunks
	`
	var args []any
	if len(query.DocumentIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(query.DocumentIDs)), ",")
		q += " WHERE document_id IN (" + placeholders + ")"
		for _, id := range query.DocumentIDs {
			args = append(args, id)
		}
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying candidates: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var hits []domain.ScoredChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		similarity := cosineSimilarity(query.Vector, chunk.Embedding)
		if similarity < query.MinSimilarity {
			continue
		}
		hits = append(hits, domain.ScoredChunk{Chunk: *chunk, Similarity: similarity})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating candidates: %w", domain.ErrPersistence, err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > query.TopK {
		hits = hits[:query.TopK]
	}
	return hits, nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row. sql.ErrNoRows passes through for
// the caller to map.
func scanDocument(r rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status string

	if err := r.Scan(&doc.ID, &doc.Filename, &doc.StoragePath, &doc.ContentType,
		&status, &doc.Failure, &doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scanning document: %w", domain.ErrPersistence, err)
	}

	doc.Status = domain.Status(status)
	return &doc, nil
}

// scanDocuments scans all document rows.
func scanDocuments(rows *sql.Rows) ([]domain.Document, error) {
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
func scanChunk(r rowScanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte

	if err := r.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Text,
		&chunk.TokenCount, &chunk.Cluster, &embeddingBlob, &chunk.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning chunk: %w", domain.ErrPersistence, err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &chunk, nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector has zero norm or lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
