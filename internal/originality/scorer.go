// Package originality scores how much each idea stands apart from the rest of the corpus.
//
// Embeddings are first reduced to a handful of dimensions with a neighbourhood-preserving
// manifold embedding (raw embedding spaces are too high-dimensional for density estimates
// to mean anything), then each point gets a local outlier factor, and the factors are
// min-max normalized to [0, 1] over the batch.
//
// Scores are relative to the batch they were computed in: adding or removing ideas changes
// everybody's score, so scores from different builds are not comparable. The scaling also
// means a batch without real outliers, such as near-duplicates, still spans 0 to 1. Only
// byte-identical vectors, which collapse to one point, all score 0.
package originality

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultNeighbors  = 10
	DefaultComponents = 10
	DefaultEpochs     = 200
	DefaultSeed       = 42
)

// Config tunes the scorer. Zero values take the defaults.
type Config struct {
	// Neighbors is the neighbourhood size used by both the reduction and the outlier factor.
	Neighbors int
	// Components is the dimensionality of the reduced space.
	Components int
	// Epochs is the number of layout optimization rounds.
	Epochs int
	// Seed makes the layout optimization reproducible.
	Seed uint64
}

// Scorer computes normalized originality scores for a batch of embeddings.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer, filling unset config fields with defaults.
func NewScorer(cfg Config) *Scorer {
	if cfg.Neighbors <= 0 {
		cfg.Neighbors = DefaultNeighbors
	}
	if cfg.Components <= 0 {
		cfg.Components = DefaultComponents
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = DefaultEpochs
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}
	return &Scorer{cfg: cfg}
}

// MinItems is the smallest batch the scorer accepts.
func (s *Scorer) MinItems() int {
	return 2 * s.cfg.Neighbors
}

// Score returns one score in [0, 1] per embedding, in input order. Higher means more
// isolated relative to the local density around it.
func (s *Scorer) Score(embeddings [][]float32) ([]float64, error) {
	if len(embeddings) < s.MinItems() {
		return nil, fmt.Errorf("%w: got %d items, need at least %d",
			ErrInsufficientData, len(embeddings), s.MinItems())
	}
	if err := validate(embeddings); err != nil {
		return nil, err
	}

	r := reducer{
		neighbors:  s.cfg.Neighbors,
		components: s.cfg.Components,
		epochs:     s.cfg.Epochs,
		seed:       s.cfg.Seed,
	}
	reduced := r.fitTransform(embeddings)

	return minMax(localOutlierFactor(reduced, s.cfg.Neighbors)), nil
}

func validate(embeddings [][]float32) error {
	dim := len(embeddings[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty vector at index 0", ErrInvalidEmbedding)
	}
	for i, v := range embeddings {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrInvalidEmbedding, i, len(v), dim)
		}
		for _, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return fmt.Errorf("%w: vector %d has a non-finite component", ErrInvalidEmbedding, i)
			}
		}
	}
	return nil
}

// minMax rescales values to [0, 1]. A constant batch maps to all zeros.
func minMax(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if hi-lo == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
