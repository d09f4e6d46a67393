// Package cluster implements hierarchical agglomerative clustering over embedding vectors.
package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Agglomerate groups vectors into k clusters using average-linkage agglomerative clustering
// with cosine distance. It returns one label per vector in [0, k).
//
// Labels are numbered in order of each cluster's smallest member index, so the first vector
// always carries label 0. When two candidate merges are equally close, the pair with the
// lowest cluster indices wins. Both rules make the output a pure function of the input.
//
// If k >= len(vectors) every vector gets its own label; k < 1 is treated as 1.
func Agglomerate(vectors [][]float32, k int) []int {
	n := len(vectors)
	labels := make([]int, n)
	if n == 0 {
		return labels
	}
	if k < 1 {
		k = 1
	}
	if k >= n {
		for i := range labels {
			labels[i] = i
		}
		return labels
	}

	dist := CosineDistances(vectors)

	// Each active cluster is identified by the index of its founding point.
	members := make([][]int, n)
	active := make([]bool, n)
	for i := range members {
		members[i] = []int{i}
		active[i] = true
	}

	for clusters := n; clusters > k; clusters-- {
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if dist[i][j] < best {
					best = dist[i][j]
					bi, bj = i, j
				}
			}
		}

		// Lance-Williams update for average linkage.
		ni := float64(len(members[bi]))
		nj := float64(len(members[bj]))
		for m := 0; m < n; m++ {
			if !active[m] || m == bi || m == bj {
				continue
			}
			d := (ni*dist[bi][m] + nj*dist[bj][m]) / (ni + nj)
			dist[bi][m] = d
			dist[m][bi] = d
		}

		members[bi] = append(members[bi], members[bj]...)
		members[bj] = nil
		active[bj] = false
	}

	// Founding indices only ever absorb higher indices, so walking them in order
	// numbers clusters by smallest member.
	label := 0
	for i := 0; i < n; i++ {
		if !active[i] {
			continue
		}
		for _, m := range members[i] {
			labels[m] = label
		}
		label++
	}

	return labels
}

// CosineDistances returns the symmetric matrix of pairwise cosine distances (1 - cosine
// similarity). A zero vector is at distance 1 from every other vector.
func CosineDistances(vectors [][]float32) [][]float64 {
	n := len(vectors)
	unit := make([][]float64, n)
	for i, v := range vectors {
		unit[i] = Normalize(v)
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1 - floats.Dot(unit[i], unit[j])
			if d < 0 {
				d = 0 // rounding on near-identical vectors
			}
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// Normalize converts v to float64 and scales it to unit length.
// The zero vector is returned unchanged.
func Normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	if norm := floats.Norm(out, 2); norm > 0 {
		floats.Scale(1/norm, out)
	}
	return out
}
