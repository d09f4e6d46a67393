package originality

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/bull/idea-toc-server/internal/cluster"
)

// Curve parameters of the low-dimensional similarity 1 / (1 + a*d^(2b)),
// fitted for spread=1 and min_dist=0.1.
const (
	curveA = 1.577
	curveB = 0.895

	negativeSampleRate = 5
	gradientClip       = 4.0
	initialSpread      = 10.0
	minKDistScale      = 1e-3
	sigmaIterations    = 64
	sigmaTolerance     = 1e-5
)

// reducer embeds high-dimensional vectors into a few dimensions while preserving local
// neighbourhoods measured by cosine distance. It follows UMAP: a fuzzy k-nearest-neighbour
// graph, a spectral starting layout and a force-directed refinement.
type reducer struct {
	neighbors  int
	components int
	epochs     int
	seed       uint64
}

// fitTransform returns one low-dimensional point per input vector. Identical input vectors
// always receive identical coordinates.
func (r reducer) fitTransform(vectors [][]float32) [][]float64 {
	unique, index := dedupe(vectors)

	var points [][]float64
	if len(unique) <= r.components+1 {
		// Too few distinct points for a spectral layout; keep the unit vectors.
		points = make([][]float64, len(unique))
		for i, v := range unique {
			points[i] = cluster.Normalize(v)
		}
	} else {
		points = r.embed(unique)
	}

	out := make([][]float64, len(vectors))
	for i, u := range index {
		out[i] = points[u]
	}
	return out
}

func (r reducer) embed(vectors [][]float32) [][]float64 {
	n := len(vectors)
	k := min(r.neighbors, n-1)

	dist := cluster.CosineDistances(vectors)
	knn := nearest(dist, k)
	graph := fuzzyGraph(dist, knn)

	layout, ok := spectralLayout(graph, r.components)
	rng := rand.New(rand.NewPCG(r.seed, r.seed^0x9e3779b97f4a7c15))
	if !ok {
		layout = randomLayout(n, r.components, rng)
	}

	r.optimize(layout, graph, rng)
	return layout
}

// fuzzyGraph builds the symmetric membership-strength matrix of the k-nearest-neighbour
// graph. Each point is connected to its nearest neighbour with strength 1 and the
// remaining strengths decay so that they sum to log2(k).
func fuzzyGraph(dist [][]float64, knn [][]int) [][]float64 {
	n := len(dist)
	var meanDist float64
	for i := range dist {
		meanDist += floats.Sum(dist[i])
	}
	if n > 1 {
		meanDist /= float64(n * (n - 1))
	}

	directed := make([][]float64, n)
	for i := range directed {
		directed[i] = make([]float64, n)
	}

	for i, nb := range knn {
		if len(nb) == 0 {
			continue
		}
		rho := 0.0
		for _, j := range nb {
			if dist[i][j] > 0 {
				rho = dist[i][j]
				break
			}
		}
		sigma := smoothKNNSigma(dist[i], nb, rho)
		if sigma < minKDistScale*meanDist {
			sigma = minKDistScale * meanDist
		}

		for _, j := range nb {
			d := dist[i][j] - rho
			if d <= 0 || sigma == 0 {
				directed[i][j] = 1
				continue
			}
			directed[i][j] = math.Exp(-d / sigma)
		}
	}

	graph := make([][]float64, n)
	for i := range graph {
		graph[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := directed[i][j], directed[j][i]
			w := a + b - a*b
			graph[i][j] = w
			graph[j][i] = w
		}
	}
	return graph
}

// smoothKNNSigma binary-searches the bandwidth that makes the neighbour strengths of one
// point sum to log2(k).
func smoothKNNSigma(row []float64, nb []int, rho float64) float64 {
	target := math.Log2(float64(len(nb)))
	lo, hi, mid := 0.0, math.Inf(1), 1.0

	for iter := 0; iter < sigmaIterations; iter++ {
		var psum float64
		for _, j := range nb {
			d := row[j] - rho
			if d > 0 {
				psum += math.Exp(-d / mid)
			} else {
				psum++
			}
		}

		if math.Abs(psum-target) < sigmaTolerance {
			break
		}
		if psum > target {
			hi = mid
			mid = (lo + hi) / 2
		} else {
			lo = mid
			if math.IsInf(hi, 1) {
				mid *= 2
			} else {
				mid = (lo + hi) / 2
			}
		}
	}
	return mid
}

// spectralLayout uses the eigenvectors of the normalized graph Laplacian with the smallest
// non-trivial eigenvalues as starting coordinates, scaled to [-10, 10].
func spectralLayout(graph [][]float64, dim int) ([][]float64, bool) {
	n := len(graph)
	if dim > n-1 {
		return nil, false
	}

	invSqrtDeg := make([]float64, n)
	for i := range graph {
		deg := floats.Sum(graph[i])
		if deg <= 0 {
			return nil, false
		}
		invSqrtDeg[i] = 1 / math.Sqrt(deg)
	}

	laplacian := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		laplacian.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			laplacian.SetSym(i, j, -graph[i][j]*invSqrtDeg[i]*invSqrtDeg[j])
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(laplacian, true) {
		return nil, false
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	layout := make([][]float64, n)
	maxAbs := 0.0
	for i := 0; i < n; i++ {
		layout[i] = make([]float64, dim)
		for d := 0; d < dim; d++ {
			// Eigenvalues come in ascending order; column 0 is the trivial one.
			v := vectors.At(i, d+1)
			layout[i][d] = v
			maxAbs = max(maxAbs, math.Abs(v))
		}
	}
	if maxAbs == 0 {
		return nil, false
	}
	for i := range layout {
		floats.Scale(initialSpread/maxAbs, layout[i])
	}
	return layout, true
}

func randomLayout(n, dim int, rng *rand.Rand) [][]float64 {
	layout := make([][]float64, n)
	for i := range layout {
		layout[i] = make([]float64, dim)
		for d := range layout[i] {
			layout[i][d] = (rng.Float64()*2 - 1) * initialSpread
		}
	}
	return layout
}

type edge struct {
	head, tail int
	weight     float64
}

// optimize refines the layout with stochastic gradient descent: graph edges attract their
// endpoints in proportion to their strength, random pairs repel.
func (r reducer) optimize(layout [][]float64, graph [][]float64, rng *rand.Rand) {
	n := len(layout)
	var edges []edge
	maxWeight := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if w := graph[i][j]; w > 0 {
				edges = append(edges, edge{head: i, tail: j, weight: w})
				maxWeight = max(maxWeight, w)
			}
		}
	}
	if len(edges) == 0 || r.epochs <= 0 {
		return
	}

	// Edges too weak to be sampled even once are dropped.
	epochsPerSample := make([]float64, 0, len(edges))
	kept := edges[:0]
	for _, e := range edges {
		if e.weight < maxWeight/float64(r.epochs) {
			continue
		}
		kept = append(kept, e)
		epochsPerSample = append(epochsPerSample, maxWeight/e.weight)
	}
	edges = kept

	nextSample := make([]float64, len(edges))
	copy(nextSample, epochsPerSample)

	for epoch := 0; epoch < r.epochs; epoch++ {
		alpha := 1 - float64(epoch)/float64(r.epochs)
		for e := range edges {
			if nextSample[e] > float64(epoch+1) {
				continue
			}
			head, tail := layout[edges[e].head], layout[edges[e].tail]

			d2 := squaredDistance(head, tail)
			if d2 > 0 {
				coeff := -2 * curveA * curveB * math.Pow(d2, curveB-1) / (curveA*math.Pow(d2, curveB) + 1)
				for d := range head {
					g := clip(coeff*(head[d]-tail[d])) * alpha
					head[d] += g
					tail[d] -= g
				}
			}
			nextSample[e] += epochsPerSample[e]

			for p := 0; p < negativeSampleRate; p++ {
				k := rng.IntN(n)
				if k == edges[e].head {
					continue
				}
				other := layout[k]
				d2 := squaredDistance(head, other)
				if d2 == 0 {
					continue
				}
				coeff := 2 * curveB / ((0.001 + d2) * (curveA*math.Pow(d2, curveB) + 1))
				for d := range head {
					head[d] += clip(coeff*(head[d]-other[d])) * alpha
				}
			}
		}
	}
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func clip(v float64) float64 {
	return max(-gradientClip, min(gradientClip, v))
}

// dedupe returns the distinct vectors in first-seen order and, for each input, the index
// of its distinct representative.
func dedupe(vectors [][]float32) ([][]float32, []int) {
	seen := make(map[string]int, len(vectors))
	var unique [][]float32
	index := make([]int, len(vectors))

	for i, v := range vectors {
		key := vectorKey(v)
		u, ok := seen[key]
		if !ok {
			u = len(unique)
			seen[key] = u
			unique = append(unique, v)
		}
		index[i] = u
	}
	return unique, index
}

func vectorKey(v []float32) string {
	buf := make([]byte, 0, len(v)*4)
	for _, x := range v {
		bits := math.Float32bits(x)
		buf = append(buf, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}
	return string(buf)
}
