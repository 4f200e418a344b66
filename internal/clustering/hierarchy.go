package clustering

import (
	"fmt"
	"math"
)

type linkageKind int

const (
	// linkageAverage merges on the mean pairwise distance between
	// clusters.
	linkageAverage linkageKind = iota
	// linkageWard merges on the growth in within-cluster variance.
	// Requires Euclidean input distances.
	linkageWard
)

// agglomerate repeatedly merges the closest pair of clusters until k
// remain and returns one label per point. Labels are cluster slot
// indices, not dense; callers renumber them. The distance matrix is
// consumed.
func agglomerate(dist [][]float64, k int, linkage linkageKind) ([]int, error) {
	n := len(dist)
	if n == 0 {
		return nil, fmt.Errorf("no points to cluster")
	}
	if k < 1 {
		return nil, fmt.Errorf("invalid cluster count %d", k)
	}
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}
	if k >= n {
		return labels, nil
	}

	active := make([]bool, n)
	size := make([]int, n)
	for i := 0; i < n; i++ {
		active[i] = true
		size[i] = 1
	}

	// Each active slot caches its nearest active neighbour so the
	// closest pair is found with one linear scan per merge.
	nn := make([]int, n)
	nnDist := make([]float64, n)
	for i := 0; i < n; i++ {
		nn[i], nnDist[i] = nearestSlot(dist, active, i)
	}

	for remaining := n; remaining > k; remaining-- {
		x := -1
		for i := 0; i < n; i++ {
			if !active[i] || nn[i] < 0 {
				continue
			}
			if x < 0 || nnDist[i] < nnDist[x] {
				x = i
			}
		}
		if x < 0 {
			return nil, fmt.Errorf("no mergeable clusters left")
		}
		y := nn[x]
		if y < x {
			x, y = y, x
		}

		// Lance-Williams update: distances from the merged pair
		// (kept in slot x) to every other active slot.
		for j := 0; j < n; j++ {
			if !active[j] || j == x || j == y {
				continue
			}
			var d float64
			switch linkage {
			case linkageWard:
				sx, sy, sj := float64(size[x]), float64(size[y]), float64(size[j])
				t := 1 / (sx + sy + sj)
				d = math.Sqrt((sx+sj)*t*dist[x][j]*dist[x][j] +
					(sy+sj)*t*dist[y][j]*dist[y][j] -
					sj*t*dist[x][y]*dist[x][y])
			default:
				sx, sy := float64(size[x]), float64(size[y])
				d = (sx*dist[x][j] + sy*dist[y][j]) / (sx + sy)
			}
			dist[x][j] = d
			dist[j][x] = d
		}

		active[y] = false
		size[x] += size[y]
		for i := range labels {
			if labels[i] == y {
				labels[i] = x
			}
		}

		nn[x], nnDist[x] = nearestSlot(dist, active, x)
		for j := 0; j < n; j++ {
			if !active[j] || j == x {
				continue
			}
			if nn[j] == x || nn[j] == y {
				nn[j], nnDist[j] = nearestSlot(dist, active, j)
			} else if dist[j][x] < nnDist[j] {
				nn[j], nnDist[j] = x, dist[j][x]
			}
		}
	}

	return labels, nil
}

// nearestSlot scans for the closest active slot to i, ties going to
// the lowest index.
func nearestSlot(dist [][]float64, active []bool, i int) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for j := range active {
		if !active[j] || j == i {
			continue
		}
		if dist[i][j] < bestDist {
			best, bestDist = j, dist[i][j]
		}
	}
	return best, bestDist
}
