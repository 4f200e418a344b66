package clustering

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceDimensions_ShapeAndDeterminism(t *testing.T) {
	points := randomPoints(60, 32, 3)
	params := reduceParams{neighbors: 10, components: 8, seed: 42}

	out, err := reduceDimensions(points, params)

	require.NoError(t, err)
	require.Len(t, out, 60)
	for _, row := range out {
		require.Len(t, row, 8)
	}

	again, err := reduceDimensions(points, params)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestReduceDimensions_ComponentsClampedToData(t *testing.T) {
	points := randomPoints(10, 4, 5)

	out, err := reduceDimensions(points, reduceParams{neighbors: 3, components: 20, seed: 42})

	require.NoError(t, err)
	for _, row := range out {
		require.Len(t, row, 4)
	}
}

func TestReduceDimensions_TooFewPoints(t *testing.T) {
	_, err := reduceDimensions(randomPoints(3, 4, 1), reduceParams{neighbors: 2, components: 2, seed: 42})
	require.Error(t, err)
}

func TestReduceDimensions_LowMemoryMatchesDefault(t *testing.T) {
	points := randomPoints(40, 12, 9)

	standard, err := reduceDimensions(points, reduceParams{neighbors: 6, components: 4, seed: 42})
	require.NoError(t, err)

	low, err := reduceDimensions(points, reduceParams{neighbors: 6, components: 4, lowMemory: true, seed: 42})
	require.NoError(t, err)

	assert.Equal(t, standard, low)
}

func TestReduceDimensions_KeepsGroupsApart(t *testing.T) {
	vectors := groupedVectors(2, 15, 16, 4)
	points := make([][]float64, len(vectors))
	for i, v := range vectors {
		p := make([]float64, len(v))
		for j, x := range v {
			p[j] = float64(x)
		}
		points[i] = p
	}

	out, err := reduceDimensions(points, reduceParams{neighbors: 5, components: 3, seed: 42})
	require.NoError(t, err)

	var intra, inter float64
	var intraN, interN int
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			d := euclideanDistance(out[i], out[j])
			if (i < 15) == (j < 15) {
				intra += d
				intraN++
			} else {
				inter += d
				interN++
			}
		}
	}
	assert.Less(t, intra/float64(intraN), inter/float64(interN))
}

func TestCalibrate_HitsAffinityTarget(t *testing.T) {
	dists := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	target := 2.5

	rho, sigma := calibrate(dists, target)

	assert.InDelta(t, 0.1, rho, 1e-9)
	require.Greater(t, sigma, 0.0)
	var sum float64
	for _, d := range dists {
		adj := d - rho
		if adj <= 0 {
			sum++
			continue
		}
		sum += math.Exp(-adj / sigma)
	}
	assert.InDelta(t, target, sum, 1e-3)
}

func TestFuzzyGraph_SymmetricUnionWeights(t *testing.T) {
	// Two mutual neighbours and one asymmetric pairing.
	idx := [][]int{{1, 2}, {0, 2}, {1, 0}}
	dst := [][]float64{{0.1, 0.9}, {0.1, 0.5}, {0.5, 0.9}}

	edges := fuzzyGraph(idx, dst)

	require.NotEmpty(t, edges)
	seen := make(map[[2]int]float64)
	for _, e := range edges {
		require.Less(t, e.from, e.to)
		require.Greater(t, e.weight, 0.0)
		require.LessOrEqual(t, e.weight, 1.0)
		seen[[2]int{e.from, e.to}] = e.weight
	}
	// Every neighbour relation appears exactly once, undirected.
	assert.Len(t, seen, 3)
}
