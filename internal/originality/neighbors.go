package originality

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// nearest returns, for every row of the distance matrix, the indices of its k closest
// points excluding itself. Ties are broken by index so results are reproducible.
func nearest(dist [][]float64, k int) [][]int {
	n := len(dist)
	if k > n-1 {
		k = n - 1
	}

	result := make([][]int, n)
	for i := 0; i < n; i++ {
		idx := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				idx = append(idx, j)
			}
		}
		row := dist[i]
		sort.SliceStable(idx, func(a, b int) bool {
			return row[idx[a]] < row[idx[b]]
		})
		result[i] = idx[:k]
	}
	return result
}

// euclideanDistances returns the pairwise Euclidean distance matrix of points.
func euclideanDistances(points [][]float64) [][]float64 {
	n := len(points)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := floats.Distance(points[i], points[j], 2)
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}
