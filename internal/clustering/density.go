package clustering

import (
	"fmt"
	"math"
	"sort"
)

// noiseLabel marks points that belong to no stable dense region.
// It never leaves this package: callers either reassign noise points
// or collapse an all-noise result into a single cluster.
const noiseLabel = -1

// maxLambda caps the density value 1/height so zero-height merges
// (duplicate points) keep the arithmetic finite.
const maxLambda = 1e12

// densityCluster labels points by hierarchical density estimation:
// a spanning tree over mutual reachability distances is condensed
// into the clusters that ever hold minClusterSize points, and the
// most stable of those are kept.
func densityCluster(points [][]float64, minClusterSize, minSamples int) ([]int, error) {
	n := len(points)
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 points, have %d", n)
	}
	if minClusterSize < 2 {
		minClusterSize = 2
	}
	minSamples = clampInt(minSamples, 1, n-1)

	core := coreDistances(points, minSamples)
	edges := spanningTree(points, core)
	nodes := singleLinkage(edges, n)
	clusters, leaveCluster := condense(nodes, n, minClusterSize)
	selected := selectClusters(clusters)
	return labelPoints(clusters, selected, leaveCluster), nil
}

// coreDistances returns each point's distance to its k-th nearest
// other point.
func coreDistances(points [][]float64, k int) []float64 {
	n := len(points)
	core := make([]float64, n)
	dists := make([]float64, 0, n-1)
	for i := range points {
		dists = dists[:0]
		for j := range points {
			if j == i {
				continue
			}
			dists = append(dists, euclideanDistance(points[i], points[j]))
		}
		sort.Float64s(dists)
		core[i] = dists[k-1]
	}
	return core
}

type mstEdge struct {
	a, b   int
	weight float64
}

// spanningTree builds a minimum spanning tree over the mutual
// reachability graph without materialising the full matrix. The
// reachability between two points is their distance, floored by
// either point's core distance.
func spanningTree(points [][]float64, core []float64) []mstEdge {
	n := len(points)
	inTree := make([]bool, n)
	dist := make([]float64, n)
	from := make([]int, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		from[i] = -1
	}

	edges := make([]mstEdge, 0, n-1)
	current := 0
	inTree[0] = true
	for len(edges) < n-1 {
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			d := euclideanDistance(points[current], points[j])
			if core[current] > d {
				d = core[current]
			}
			if core[j] > d {
				d = core[j]
			}
			if d < dist[j] {
				dist[j] = d
				from[j] = current
			}
		}
		next, bestDist := -1, math.Inf(1)
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			if dist[j] < bestDist {
				next, bestDist = j, dist[j]
			}
		}
		edges = append(edges, mstEdge{a: from[next], b: next, weight: bestDist})
		inTree[next] = true
		current = next
	}
	return edges
}

// dendroNode is one merge in the single-linkage tree. Leaves are the
// points 0..n-1; internal nodes are numbered n..2n-2 with the root
// last.
type dendroNode struct {
	left, right int
	height      float64
	size        int
}

// singleLinkage folds the spanning tree edges, sorted by weight, into
// a merge tree.
func singleLinkage(edges []mstEdge, n int) []dendroNode {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].weight != edges[j].weight {
			return edges[i].weight < edges[j].weight
		}
		if edges[i].a != edges[j].a {
			return edges[i].a < edges[j].a
		}
		return edges[i].b < edges[j].b
	})

	parent := make([]int, n)
	nodeOf := make([]int, n)
	for i := 0; i < n; i++ {
		parent[i] = i
		nodeOf[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	nodes := make([]dendroNode, 0, n-1)
	for _, e := range edges {
		ra, rb := find(e.a), find(e.b)
		na, nb := nodeOf[ra], nodeOf[rb]
		nodes = append(nodes, dendroNode{
			left:   na,
			right:  nb,
			height: e.weight,
			size:   subtreeSize(nodes, na, n) + subtreeSize(nodes, nb, n),
		})
		parent[rb] = ra
		nodeOf[ra] = n + len(nodes) - 1
	}
	return nodes
}

func subtreeSize(nodes []dendroNode, id, n int) int {
	if id < n {
		return 1
	}
	return nodes[id-n].size
}

// condensedCluster is a region of the merge tree that held at least
// minClusterSize points for some density range.
type condensedCluster struct {
	parent    int
	birth     float64
	stability float64
	children  []int
}

// condense collapses the single-linkage tree into the hierarchy of
// clusters of at least minClusterSize points. Each point records the
// cluster it fell out of; stability accumulates how long members
// persisted beyond the cluster's birth density.
func condense(nodes []dendroNode, n, minClusterSize int) ([]condensedCluster, []int) {
	leaveCluster := make([]int, n)
	clusters := []condensedCluster{{parent: -1}}

	type frame struct{ node, cluster int }
	stack := []frame{{2*n - 2, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nd := nodes[f.node-n]
		lambda := edgeLambda(nd.height)
		sl := subtreeSize(nodes, nd.left, n)
		sr := subtreeSize(nodes, nd.right, n)

		switch {
		case sl >= minClusterSize && sr >= minClusterSize:
			// True split: two new clusters are born here.
			for _, child := range []int{nd.left, nd.right} {
				id := len(clusters)
				clusters = append(clusters, condensedCluster{parent: f.cluster, birth: lambda})
				clusters[f.cluster].children = append(clusters[f.cluster].children, id)
				clusters[f.cluster].stability += (lambda - clusters[f.cluster].birth) * float64(subtreeSize(nodes, child, n))
				stack = append(stack, frame{child, id})
			}
		case sl >= minClusterSize:
			// The small side dissolves; the cluster carries on
			// through the large one.
			dropPoints(nodes, nd.right, n, f.cluster, lambda, clusters, leaveCluster)
			stack = append(stack, frame{nd.left, f.cluster})
		case sr >= minClusterSize:
			dropPoints(nodes, nd.left, n, f.cluster, lambda, clusters, leaveCluster)
			stack = append(stack, frame{nd.right, f.cluster})
		default:
			// Both sides are too small; the cluster ends here.
			dropPoints(nodes, nd.left, n, f.cluster, lambda, clusters, leaveCluster)
			dropPoints(nodes, nd.right, n, f.cluster, lambda, clusters, leaveCluster)
		}
	}
	return clusters, leaveCluster
}

// dropPoints records every point under node as leaving cluster at
// density lambda.
func dropPoints(nodes []dendroNode, node, n, cluster int, lambda float64, clusters []condensedCluster, leaveCluster []int) {
	count := 0
	stack := []int{node}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id < n {
			leaveCluster[id] = cluster
			count++
			continue
		}
		nd := nodes[id-n]
		stack = append(stack, nd.left, nd.right)
	}
	clusters[cluster].stability += (lambda - clusters[cluster].birth) * float64(count)
}

func edgeLambda(height float64) float64 {
	if height < 1/maxLambda {
		return maxLambda
	}
	return 1 / height
}

// selectClusters keeps each cluster whose own stability beats the
// summed stability of its descendants (excess of mass). The root is
// never selectable, so a tree with no surviving split yields nothing.
func selectClusters(clusters []condensedCluster) []bool {
	m := len(clusters)
	isCluster := make([]bool, m)
	best := make([]float64, m)

	// Children always carry larger ids than their parent, so a
	// reverse sweep visits them first.
	for id := m - 1; id >= 1; id-- {
		c := clusters[id]
		var childSum float64
		for _, ch := range c.children {
			childSum += best[ch]
		}
		if len(c.children) == 0 || c.stability >= childSum {
			isCluster[id] = true
			deselectDescendants(clusters, id, isCluster)
			best[id] = c.stability
		} else {
			best[id] = childSum
		}
	}
	return isCluster
}

func deselectDescendants(clusters []condensedCluster, id int, isCluster []bool) {
	for _, ch := range clusters[id].children {
		isCluster[ch] = false
		deselectDescendants(clusters, ch, isCluster)
	}
}

// labelPoints maps every point to its nearest selected ancestor
// cluster, or noise when none exists.
func labelPoints(clusters []condensedCluster, selected []bool, leaveCluster []int) []int {
	labelOf := make(map[int]int, len(clusters))
	next := 0
	for id := 1; id < len(clusters); id++ {
		if selected[id] {
			labelOf[id] = next
			next++
		}
	}

	labels := make([]int, len(leaveCluster))
	for p := range leaveCluster {
		labels[p] = noiseLabel
		for c := leaveCluster[p]; c >= 0; c = clusters[c].parent {
			if l, ok := labelOf[c]; ok {
				labels[p] = l
				break
			}
		}
	}
	return labels
}
