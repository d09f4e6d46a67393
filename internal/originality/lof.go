package originality

// lrdEpsilon keeps the local reachability density finite when a point has
// k duplicates.
const lrdEpsilon = 1e-10

// localOutlierFactor returns the LOF of every point using its k nearest neighbours.
// Values near 1 mean the point is as dense as its neighbourhood; larger values mean it is
// more isolated.
func localOutlierFactor(points [][]float64, k int) []float64 {
	n := len(points)
	dist := euclideanDistances(points)
	neighbors := nearest(dist, k)

	kDistance := make([]float64, n)
	for i, nb := range neighbors {
		if len(nb) > 0 {
			kDistance[i] = dist[i][nb[len(nb)-1]]
		}
	}

	lrd := make([]float64, n)
	for i, nb := range neighbors {
		var sum float64
		for _, o := range nb {
			sum += max(kDistance[o], dist[i][o])
		}
		mean := 0.0
		if len(nb) > 0 {
			mean = sum / float64(len(nb))
		}
		lrd[i] = 1 / (mean + lrdEpsilon)
	}

	lof := make([]float64, n)
	for i, nb := range neighbors {
		if len(nb) == 0 {
			lof[i] = 1
			continue
		}
		var sum float64
		for _, o := range nb {
			sum += lrd[o]
		}
		lof[i] = sum / float64(len(nb)) / lrd[i]
	}
	return lof
}
