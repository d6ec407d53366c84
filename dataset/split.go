package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

// splitStream is the second PCG word; the seed is the first.
const splitStream = 0x5851f42d4c957f2d

// RandomSplit partitions the rows of f into len(weights) Frames.
//
// Weights are normalised to sum to 1. Row i draws one uniform value from a PCG
// stream seeded by seed and goes to the bucket whose cumulative weight range
// contains it, so the same seed over the same row order always gives the same
// partition and the bucket sizes add up to Count(). Row order is preserved
// inside each bucket.
func (f *Frame) RandomSplit(weights []float64, seed uint64) ([]*Frame, error) {
	if len(weights) == 0 {
		return nil, errors.NewValidationError("weights", "at least one weight is required", weights)
	}
	var total float64
	for _, w := range weights {
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errors.NewValidationError("weights", "every weight must be positive and finite", weights)
		}
		total += w
	}

	bounds := make([]float64, len(weights))
	var acc float64
	for i, w := range weights {
		acc += w / total
		bounds[i] = acc
	}
	bounds[len(bounds)-1] = 1

	rng := rand.New(rand.NewPCG(seed, splitStream))
	buckets := make([][]int, len(weights))
	for i := 0; i < f.rows; i++ {
		u := rng.Float64()
		k := 0
		for k < len(bounds)-1 && u >= bounds[k] {
			k++
		}
		buckets[k] = append(buckets[k], i)
	}

	out := make([]*Frame, len(weights))
	for k, rows := range buckets {
		out[k] = f.Subset(rows)
	}
	return out, nil
}
