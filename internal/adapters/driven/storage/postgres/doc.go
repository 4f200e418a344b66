// Package postgres provides a PostgreSQL implementation of the
// driven.DocumentStore port backed by the pgvector extension.
//
// Similarity search runs on the server: the <=> cosine distance operator
// with an ivfflat index, so retrieval stays fast as the corpus grows. The
// schema is bootstrapped at construction time, including
// CREATE EXTENSION IF NOT EXISTS vector.
//
// The embedding column width is fixed per database; it must match the
// configured embedding provider's dimensionality.
package postgres
