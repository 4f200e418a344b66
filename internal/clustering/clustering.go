package clustering

import (
	"fmt"
	"math"
	"sort"

	"github.com/tessera-kb/tessera/internal/core/domain"
	"github.com/tessera-kb/tessera/internal/logger"
)

// Tier classifies a document by fragment count. The tier picks the
// clustering strategy and its adaptive parameters.
type Tier string

const (
	TierTiny      Tier = "tiny"
	TierSmall     Tier = "small"
	TierMedium    Tier = "medium"
	TierLarge     Tier = "large"
	TierVeryLarge Tier = "very_large"
)

// Method records which strategy produced the final labels, including
// any fallback taken along the way.
type Method string

const (
	MethodEmpty              Method = "empty"
	MethodTinyFallback       Method = "tiny_document_fallback"
	MethodHierarchicalSmall  Method = "hierarchical_small"
	MethodDensityGraph       Method = "density_graph"
	MethodHierarchicalLarge  Method = "hierarchical_large"
	MethodSingleCluster      Method = "single_cluster_fallback"
	MethodSequentialFallback Method = "sequential_fallback"
)

const (
	defaultNeighbors     = 10
	defaultMinSamples    = 2
	defaultTinyThreshold = 6
	defaultSeed          = 42

	smallThreshold  = 50
	mediumThreshold = 200
	largeThreshold  = 1000
)

// Config tunes the clusterer. Zero values fall back to defaults.
type Config struct {
	// Neighbors caps the neighbourhood graph size used during
	// dimensionality reduction.
	Neighbors int

	// MinSamples controls how conservative density clustering is
	// about declaring points noise.
	MinSamples int

	// TinyThreshold is the largest fragment count that skips
	// clustering entirely and gets a single label.
	TinyThreshold int

	// Seed drives every stochastic stage so runs repeat exactly.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.Neighbors <= 0 {
		c.Neighbors = defaultNeighbors
	}
	if c.MinSamples <= 0 {
		c.MinSamples = defaultMinSamples
	}
	if c.TinyThreshold <= 0 {
		c.TinyThreshold = defaultTinyThreshold
	}
	if c.Seed == 0 {
		c.Seed = defaultSeed
	}
	return c
}

// Result carries the cluster assignment for one document.
type Result struct {
	// Labels holds one dense cluster label per input vector,
	// in input order.
	Labels []int

	// Clusters is the number of distinct labels.
	Clusters int

	Method Method
	Tier   Tier

	// Distribution maps each label to its member count.
	Distribution map[int]int
}

// Clusterer assigns topic labels to fragment embeddings.
type Clusterer struct {
	cfg Config
}

// New builds a Clusterer. Zero config fields take defaults.
func New(cfg Config) *Clusterer {
	return &Clusterer{cfg: cfg.withDefaults()}
}

// Cluster labels every vector with a cluster. Labels are dense and
// start at zero; no vector is ever left unlabelled. Strategy failures
// degrade to simpler methods and never surface as errors; only
// malformed input does.
func (c *Clusterer) Cluster(vectors [][]float32) (*Result, error) {
	n := len(vectors)
	if n == 0 {
		return &Result{
			Labels:       []int{},
			Method:       MethodEmpty,
			Tier:         TierTiny,
			Distribution: map[int]int{},
		}, nil
	}

	points, err := toPoints(vectors)
	if err != nil {
		return nil, err
	}

	tier := c.classify(n)
	logger.Debug("Clustering %d vectors (tier %s)", n, tier)

	var labels []int
	var method Method
	switch tier {
	case TierTiny:
		labels = make([]int, n)
		method = MethodTinyFallback
	case TierSmall:
		labels, method = c.clusterSmall(points)
	case TierMedium, TierLarge:
		labels, method = c.clusterStandard(points, tier)
	default:
		labels, method = c.clusterVeryLarge(points)
	}

	labels, clusters := remapDense(labels)
	return &Result{
		Labels:       labels,
		Clusters:     clusters,
		Method:       method,
		Tier:         tier,
		Distribution: distribution(labels),
	}, nil
}

func (c *Clusterer) classify(n int) Tier {
	switch {
	case n <= c.cfg.TinyThreshold:
		return TierTiny
	case n <= smallThreshold:
		return TierSmall
	case n <= mediumThreshold:
		return TierMedium
	case n <= largeThreshold:
		return TierLarge
	default:
		return TierVeryLarge
	}
}

// clusterSmall cuts an average-linkage hierarchy over cosine
// distances. The cut targets one cluster per five fragments, between
// two and five in total.
func (c *Clusterer) clusterSmall(points [][]float64) ([]int, Method) {
	n := len(points)
	k := clampInt(n/5, 2, 5)
	labels, err := agglomerate(distanceMatrix(points, cosineDistance), k, linkageAverage)
	if err != nil {
		logger.Warn("Hierarchical clustering failed (%v), using a single cluster", err)
		return make([]int, n), MethodSingleCluster
	}
	return labels, MethodHierarchicalSmall
}

// clusterStandard reduces the vectors to a low-dimensional layout and
// runs density clustering on it. A reduction failure degrades to
// clustering the raw vectors, a clustering failure to sequential
// buckets, and an all-noise outcome to a single cluster.
func (c *Clusterer) clusterStandard(points [][]float64, tier Tier) ([]int, Method) {
	n := len(points)
	p := c.adaptiveParams(n, tier)

	space := points
	reduced, err := c.reduce(points, p.neighbors, p.components, false)
	if err != nil {
		logger.Warn("Dimensionality reduction failed (%v), clustering raw vectors", err)
	} else {
		space = reduced
	}

	labels, err := densityCluster(space, p.minClusterSize, c.cfg.MinSamples)
	if err != nil {
		logger.Warn("Density clustering failed (%v), using sequential buckets", err)
		return sequentialLabels(n), MethodSequentialFallback
	}

	if allNoise(labels) {
		logger.Warn("Density clustering marked all %d points as noise, using a single cluster", n)
		return make([]int, n), MethodSingleCluster
	}
	assignNoise(labels, space)
	return labels, MethodDensityGraph
}

// clusterVeryLarge reduces with a low-memory neighbourhood pass and
// cuts a Ward hierarchy over the layout. Any failure degrades to
// fixed-size sequential buckets.
func (c *Clusterer) clusterVeryLarge(points [][]float64) ([]int, Method) {
	n := len(points)
	p := c.adaptiveParams(n, TierVeryLarge)

	reduced, err := c.reduce(points, p.neighbors, p.components, true)
	if err == nil {
		k := clampInt(n/30, 10, 50)
		var labels []int
		labels, err = agglomerate(distanceMatrix(reduced, euclideanDistance), k, linkageWard)
		if err == nil {
			return labels, MethodHierarchicalLarge
		}
	}
	logger.Warn("Large-document clustering failed (%v), using sequential buckets", err)
	return sequentialLabels(n), MethodSequentialFallback
}

func (c *Clusterer) reduce(points [][]float64, neighbors, components int, lowMemory bool) ([][]float64, error) {
	return reduceDimensions(points, reduceParams{
		neighbors:  neighbors,
		components: components,
		lowMemory:  lowMemory,
		seed:       c.cfg.Seed,
	})
}

type tierParams struct {
	neighbors      int
	components     int
	minClusterSize int
}

// adaptiveParams scales the reduction and density parameters with the
// fragment count, so sparse documents keep enough structure and large
// ones stay tractable.
func (c *Clusterer) adaptiveParams(n int, tier Tier) tierParams {
	switch tier {
	case TierMedium:
		return tierParams{
			neighbors:      minInt(c.cfg.Neighbors, n-1),
			components:     minInt(15, maxInt(10, n/20)),
			minClusterSize: maxInt(3, n/30),
		}
	case TierLarge:
		return tierParams{
			neighbors:      minInt(c.cfg.Neighbors, n-1),
			components:     minInt(25, maxInt(15, n/30)),
			minClusterSize: maxInt(5, n/50),
		}
	default:
		return tierParams{
			neighbors:  minInt(15, n-1),
			components: minInt(30, n/50),
		}
	}
}

// sequentialLabels buckets fragments in document order. Adjacent text
// tends to share a topic, which makes this a usable last resort.
func sequentialLabels(n int) []int {
	size := maxInt(20, n/20)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i / size
	}
	return labels
}

// remapDense renumbers labels to 0..K-1, ordered by original value.
func remapDense(labels []int) ([]int, int) {
	seen := make(map[int]struct{}, 8)
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	uniq := make([]int, 0, len(seen))
	for l := range seen {
		uniq = append(uniq, l)
	}
	sort.Ints(uniq)

	lookup := make(map[int]int, len(uniq))
	for i, l := range uniq {
		lookup[l] = i
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = lookup[l]
	}
	return out, len(uniq)
}

func distribution(labels []int) map[int]int {
	dist := make(map[int]int, 8)
	for _, l := range labels {
		dist[l]++
	}
	return dist
}

// allNoise reports whether density clustering rejected every point.
func allNoise(labels []int) bool {
	for _, l := range labels {
		if l != noiseLabel {
			return false
		}
	}
	return true
}

// assignNoise attaches each noise point to the cluster of its nearest
// originally-labelled neighbour. Reassigned points never attract
// other noise points.
func assignNoise(labels []int, points [][]float64) {
	orig := make([]bool, len(labels))
	for i, l := range labels {
		orig[i] = l == noiseLabel
	}
	for i := range labels {
		if !orig[i] {
			continue
		}
		best, bestDist := -1, math.Inf(1)
		for j := range labels {
			if orig[j] {
				continue
			}
			if d := squaredEuclidean(points[i], points[j]); d < bestDist {
				best, bestDist = j, d
			}
		}
		if best >= 0 {
			labels[i] = labels[best]
		}
	}
}

// toPoints widens the input and validates that every vector has the
// same non-zero dimensionality.
func toPoints(vectors [][]float32) ([][]float64, error) {
	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: zero-dimensional vector at index 0", domain.ErrInvalidInput)
	}
	points := make([][]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", domain.ErrInvalidInput, i, len(v), dims)
		}
		p := make([]float64, dims)
		for j, x := range v {
			p[j] = float64(x)
		}
		points[i] = p
	}
	return points, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
