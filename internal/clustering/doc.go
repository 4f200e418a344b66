// Package clustering groups fragment embeddings into semantic topics.
//
// The strategy is picked by document size: tiny documents skip
// clustering, small ones cut an agglomerative hierarchy, larger ones
// run density clustering over a dimensionality-reduced layout, and
// very large ones fall back to a memory-friendly hierarchical cut.
// Every stochastic stage is seeded, so identical input yields
// identical labels. Internal failures degrade to simpler strategies
// instead of failing the pipeline.
package clustering
