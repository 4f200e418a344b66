package clustering

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPoints(n, dims int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	points := make([][]float64, n)
	for i := range points {
		p := make([]float64, dims)
		for j := range p {
			p[j] = rng.NormFloat64()
		}
		points[i] = p
	}
	return points
}

func distinctLabels(labels []int) int {
	seen := make(map[int]bool)
	for _, l := range labels {
		seen[l] = true
	}
	return len(seen)
}

func TestAgglomerate_ExactClusterCount(t *testing.T) {
	points := randomPoints(30, 8, 11)

	labels, err := agglomerate(distanceMatrix(points, cosineDistance), 4, linkageAverage)

	require.NoError(t, err)
	require.Len(t, labels, 30)
	assert.Equal(t, 4, distinctLabels(labels))
}

func TestAgglomerate_AverageLinkageSeparatesGroups(t *testing.T) {
	points := [][]float64{{0}, {0.1}, {0.2}, {10}, {10.1}, {10.2}}

	labels, err := agglomerate(distanceMatrix(points, euclideanDistance), 2, linkageAverage)

	require.NoError(t, err)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[1], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.Equal(t, labels[4], labels[5])
	assert.NotEqual(t, labels[0], labels[3])
}

func TestAgglomerate_WardSeparatesGroups(t *testing.T) {
	points := [][]float64{
		{0, 0}, {0.2, 0}, {0, 0.2}, {0.2, 0.2},
		{50, 50}, {50.2, 50}, {50, 50.2}, {50.2, 50.2},
	}

	labels, err := agglomerate(distanceMatrix(points, euclideanDistance), 2, linkageWard)

	require.NoError(t, err)
	for i := 1; i < 4; i++ {
		assert.Equal(t, labels[0], labels[i])
	}
	for i := 5; i < 8; i++ {
		assert.Equal(t, labels[4], labels[i])
	}
	assert.NotEqual(t, labels[0], labels[4])
}

func TestAgglomerate_MoreClustersThanPoints(t *testing.T) {
	points := randomPoints(4, 3, 5)

	labels, err := agglomerate(distanceMatrix(points, euclideanDistance), 10, linkageAverage)

	require.NoError(t, err)
	require.Len(t, labels, 4)
	assert.Equal(t, 4, distinctLabels(labels))
}

func TestAgglomerate_RejectsInvalidCount(t *testing.T) {
	points := randomPoints(4, 3, 5)

	_, err := agglomerate(distanceMatrix(points, euclideanDistance), 0, linkageAverage)

	require.Error(t, err)
}

func TestAgglomerate_Deterministic(t *testing.T) {
	points := randomPoints(40, 6, 21)

	first, err := agglomerate(distanceMatrix(points, cosineDistance), 5, linkageAverage)
	require.NoError(t, err)

	again, err := agglomerate(distanceMatrix(points, cosineDistance), 5, linkageAverage)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}
