package clustering

import "math"

// cosineDistance is 1 minus the cosine similarity of a and b. Zero
// vectors count as maximally distant.
func cosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	if d < 0 {
		return 0
	}
	return d
}

func euclideanDistance(a, b []float64) float64 {
	return math.Sqrt(squaredEuclidean(a, b))
}

func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// distanceMatrix computes the full symmetric pairwise distance matrix.
func distanceMatrix(points [][]float64, metric func(a, b []float64) float64) [][]float64 {
	n := len(points)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := metric(points[i], points[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}
