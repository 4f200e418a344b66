// Package domain defines the core business entities for tessera.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A registered file moving through the processing lifecycle
//   - Chunk: An embedded, cluster-labelled fragment of a document
//   - ScoredChunk: A chunk paired with its similarity to a query
//   - ClusterGroup / ClusterReport: cluster-level views and diagnostics
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
