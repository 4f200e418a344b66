// Package sqlite provides a SQLite-based implementation of the
// driven.DocumentStore port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. Documents and chunks live
// in two tables with a cascading foreign key; embeddings are stored as
// little-endian float32 blobs and similarity search decodes and scores them
// in Go.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory and applied at construction time.
//
// # Data Location
//
// By default, the database is stored at ~/.tessera/data/tessera.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
