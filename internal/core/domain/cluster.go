package domain

import "time"

// ClusterGroup collects the chunks sharing one cluster label, ordered by
// chunk Index.
type ClusterGroup struct {
	// Cluster is the shared label.
	Cluster int

	// Chunks are the members, ordered by Index.
	Chunks []Chunk
}

// ClusterReport summarises one clustering pass. It is diagnostic output,
// not persisted state.
type ClusterReport struct {
	// Fragments is the number of vectors clustered.
	Fragments int

	// Clusters is the number of distinct labels produced.
	Clusters int

	// Method names the strategy that produced the labels, including
	// fallbacks (degradation is reported here, never as an error).
	Method string

	// Tier is the document size class that selected the strategy.
	Tier string

	// Distribution maps each label to its member count.
	Distribution map[int]int
}

// PipelineResult is returned by a completed processing run.
type PipelineResult struct {
	// DocumentID identifies the processed document.
	DocumentID string

	// Status is the terminal state of the run.
	Status Status

	// Chunks is the number of chunks persisted.
	Chunks int

	// Report carries the clustering diagnostics.
	Report ClusterReport

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}
