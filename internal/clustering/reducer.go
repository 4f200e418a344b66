package clustering

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Force-curve coefficients for a layout with zero minimum distance
// and unit spread.
const (
	layoutA = 1.9296
	layoutB = 0.7915
)

const (
	negativeSamples = 5
	moveClip        = 4.0
	initialAlpha    = 1.0
)

type reduceParams struct {
	neighbors  int
	components int
	lowMemory  bool
	seed       int64
}

type graphEdge struct {
	from, to int
	weight   float64
}

// reduceDimensions projects points into a smaller space that keeps
// local neighbourhood structure, so density estimates on the result
// stay meaningful. The requested dimensionality is clamped to what
// the data supports.
func reduceDimensions(points [][]float64, p reduceParams) ([][]float64, error) {
	n := len(points)
	if n < 4 {
		return nil, fmt.Errorf("too few points (%d) to reduce", n)
	}
	dims := len(points[0])

	components := p.components
	if components > dims {
		components = dims
	}
	if components > n-2 {
		components = n - 2
	}
	if components < 1 {
		return nil, fmt.Errorf("cannot reduce %d points of %d dimensions", n, dims)
	}
	k := p.neighbors
	if k > n-1 {
		k = n - 1
	}
	if k < 2 {
		return nil, fmt.Errorf("neighbourhood size %d too small", p.neighbors)
	}

	idx, dst := nearestNeighbours(points, k, p.lowMemory)
	edges := fuzzyGraph(idx, dst)
	layout, err := principalLayout(points, components)
	if err != nil {
		return nil, err
	}
	optimiseLayout(layout, edges, n, p.seed, epochsFor(n))
	return layout, nil
}

// nearestNeighbours finds each point's k closest points by cosine
// distance. The low-memory path recomputes one distance row at a time
// instead of holding the full matrix.
func nearestNeighbours(points [][]float64, k int, lowMemory bool) ([][]int, [][]float64) {
	n := len(points)
	idx := make([][]int, n)
	dst := make([][]float64, n)

	var full [][]float64
	if !lowMemory {
		full = distanceMatrix(points, cosineDistance)
	}

	row := make([]float64, n)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		d := row
		if full != nil {
			d = full[i]
		} else {
			for j := 0; j < n; j++ {
				row[j] = cosineDistance(points[i], points[j])
			}
		}
		for j := range order {
			order[j] = j
		}
		sort.Slice(order, func(a, b int) bool {
			if d[order[a]] != d[order[b]] {
				return d[order[a]] < d[order[b]]
			}
			return order[a] < order[b]
		})

		neigh := make([]int, 0, k)
		neighD := make([]float64, 0, k)
		for _, j := range order {
			if j == i {
				continue
			}
			neigh = append(neigh, j)
			neighD = append(neighD, d[j])
			if len(neigh) == k {
				break
			}
		}
		idx[i] = neigh
		dst[i] = neighD
	}
	return idx, dst
}

// fuzzyGraph turns raw neighbour distances into a symmetric weighted
// edge list. Each point gets a bandwidth calibrated so its total
// neighbour affinity is log2(k), measured beyond the distance to its
// closest neighbour; directed weights a and b combine as a + b - ab.
func fuzzyGraph(idx [][]int, dst [][]float64) []graphEdge {
	n := len(idx)
	if n == 0 {
		return nil
	}
	target := math.Log2(float64(len(idx[0])))

	directed := make(map[[2]int]float64, n*len(idx[0]))
	for i := 0; i < n; i++ {
		rho, sigma := calibrate(dst[i], target)
		for j, nb := range idx[i] {
			d := dst[i][j] - rho
			if d < 0 {
				d = 0
			}
			w := 1.0
			if sigma > 0 {
				w = math.Exp(-d / sigma)
			}
			directed[[2]int{i, nb}] = w
		}
	}

	edges := make([]graphEdge, 0, len(directed))
	for i := 0; i < n; i++ {
		for _, nb := range idx[i] {
			if i > nb {
				if _, ok := directed[[2]int{nb, i}]; ok {
					continue // emitted from the other side
				}
			}
			lo, hi := i, nb
			if lo > hi {
				lo, hi = hi, lo
			}
			wab := directed[[2]int{lo, hi}]
			wba := directed[[2]int{hi, lo}]
			w := wab + wba - wab*wba
			if w > 0 {
				edges = append(edges, graphEdge{from: lo, to: hi, weight: w})
			}
		}
	}
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].from != edges[b].from {
			return edges[a].from < edges[b].from
		}
		return edges[a].to < edges[b].to
	})
	return edges
}

// calibrate finds, by bisection, the smoothing bandwidth under which
// one point's neighbour affinities sum to the target.
func calibrate(dists []float64, target float64) (rho, sigma float64) {
	rho = math.Inf(1)
	for _, d := range dists {
		if d > 0 && d < rho {
			rho = d
		}
	}
	if math.IsInf(rho, 1) {
		rho = 0 // every neighbour is a duplicate
	}

	lo, hi := 0.0, math.Inf(1)
	sigma = 1.0
	for iter := 0; iter < 64; iter++ {
		var sum float64
		for _, d := range dists {
			adj := d - rho
			if adj <= 0 {
				sum++
				continue
			}
			sum += math.Exp(-adj / sigma)
		}
		if math.Abs(sum-target) < 1e-5 {
			break
		}
		if sum > target {
			hi = sigma
			sigma = (lo + hi) / 2
		} else {
			lo = sigma
			if math.IsInf(hi, 1) {
				sigma *= 2
			} else {
				sigma = (lo + hi) / 2
			}
		}
	}
	return rho, sigma
}

// principalLayout seeds the embedding with the leading principal
// components, rescaled to a compact extent.
func principalLayout(points [][]float64, components int) ([][]float64, error) {
	n := len(points)
	dims := len(points[0])

	mean := make([]float64, dims)
	for _, p := range points {
		for j, v := range p {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	centred := mat.NewDense(n, dims, nil)
	for i, p := range points {
		for j, v := range p {
			centred.Set(i, j, v-mean[j])
		}
	}

	var svd mat.SVD
	if !svd.Factorize(centred, mat.SVDThin) {
		return nil, fmt.Errorf("decomposition did not converge")
	}
	var u mat.Dense
	svd.UTo(&u)
	values := svd.Values(nil)

	layout := make([][]float64, n)
	maxAbs := 0.0
	for i := range layout {
		row := make([]float64, components)
		for c := 0; c < components; c++ {
			row[c] = u.At(i, c) * values[c]
			if a := math.Abs(row[c]); a > maxAbs {
				maxAbs = a
			}
		}
		layout[i] = row
	}
	if maxAbs == 0 {
		return layout, nil // all points identical
	}
	scale := 10 / maxAbs
	for _, row := range layout {
		for c := range row {
			row[c] *= scale
		}
	}
	return layout, nil
}

// optimiseLayout runs stochastic gradient descent over the fuzzy
// graph: sampled edges attract their endpoints, random vertices repel
// the head. Edges fire at a rate proportional to their weight.
func optimiseLayout(layout [][]float64, edges []graphEdge, n int, seed int64, epochs int) {
	if len(edges) == 0 {
		return
	}
	rng := rand.New(rand.NewSource(seed))

	maxW := 0.0
	for _, e := range edges {
		if e.weight > maxW {
			maxW = e.weight
		}
	}
	epochsPerSample := make([]float64, len(edges))
	nextEpoch := make([]float64, len(edges))
	for i, e := range edges {
		epochsPerSample[i] = maxW / e.weight
		nextEpoch[i] = epochsPerSample[i]
	}

	for epoch := 1; epoch <= epochs; epoch++ {
		alpha := initialAlpha * (1 - float64(epoch-1)/float64(epochs))
		for i, e := range edges {
			if nextEpoch[i] > float64(epoch) {
				continue
			}
			nextEpoch[i] += epochsPerSample[i]
			attract(layout[e.from], layout[e.to], alpha)
			for s := 0; s < negativeSamples; s++ {
				other := rng.Intn(n)
				if other == e.from || other == e.to {
					continue
				}
				repel(layout[e.from], layout[other], alpha)
			}
		}
	}
}

// attract pulls both endpoints of an edge together.
func attract(a, b []float64, alpha float64) {
	d2 := squaredEuclidean(a, b)
	if d2 <= 0 {
		return
	}
	g := -2 * layoutA * layoutB * math.Pow(d2, layoutB-1) / (1 + layoutA*math.Pow(d2, layoutB))
	for c := range a {
		move := alpha * clipMove(g*(a[c]-b[c]))
		a[c] += move
		b[c] -= move
	}
}

// repel pushes the head away from a sampled vertex. Coincident points
// get a fixed shove so duplicates can separate.
func repel(a, b []float64, alpha float64) {
	d2 := squaredEuclidean(a, b)
	if d2 <= 0 {
		for c := range a {
			a[c] += alpha * moveClip
		}
		return
	}
	g := 2 * layoutB / ((0.001 + d2) * (1 + layoutA*math.Pow(d2, layoutB)))
	for c := range a {
		a[c] += alpha * clipMove(g*(a[c]-b[c]))
	}
}

func clipMove(v float64) float64 {
	if v > moveClip {
		return moveClip
	}
	if v < -moveClip {
		return -moveClip
	}
	return v
}

// epochsFor gives smaller graphs more optimisation epochs.
func epochsFor(n int) int {
	if n <= 500 {
		return 500
	}
	return 200
}
