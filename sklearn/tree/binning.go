package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/co2ml/core/parallel"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

// MaxBinsLimit is the largest supported MaxBins; bin ids are stored as bytes.
const MaxBinsLimit = 256

// below this many features binning runs on the calling goroutine
const binParallelThreshold = 32

// Binned is a feature matrix discretised once into at most maxBins bins per
// feature. It is read-only after construction and may be shared by any
// number of trees fitted concurrently.
//
// Bin b of feature j holds the values x with thresholds[j][b-1] < x <=
// thresholds[j][b], so a split "x <= thresholds[j][k]" sends bins 0..k left.
type Binned struct {
	rows, cols int
	thresholds [][]float64
	bins       [][]uint8
}

// NewBinned discretises X. A feature with at most maxBins distinct values
// gets the midpoints between consecutive values as split candidates;
// otherwise the maxBins-1 quantile cut points of its values are used.
func NewBinned(X mat.Matrix, maxBins int) (*Binned, error) {
	if maxBins < 2 || maxBins > MaxBinsLimit {
		return nil, errors.NewValidationError("max_bins", "must be in [2, 256]", maxBins)
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError("tree.NewBinned", "empty data", errors.ErrEmptyData)
	}

	b := &Binned{
		rows:       rows,
		cols:       cols,
		thresholds: make([][]float64, cols),
		bins:       make([][]uint8, cols),
	}
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			if math.IsNaN(X.At(i, j)) {
				return nil, errors.NewValueError("tree.NewBinned", "input contains NaN")
			}
		}
	}

	// 列ごとに独立なので並列に処理する
	parallel.ParallelizeWithThreshold(cols, binParallelThreshold, func(start, end int) {
		col := make([]float64, rows)
		sorted := make([]float64, rows)
		for j := start; j < end; j++ {
			for i := range col {
				col[i] = X.At(i, j)
			}
			copy(sorted, col)
			sort.Float64s(sorted)

			th := splitCandidates(sorted, maxBins)
			ids := make([]uint8, rows)
			for i, v := range col {
				ids[i] = uint8(sort.SearchFloat64s(th, v))
			}
			b.thresholds[j] = th
			b.bins[j] = ids
		}
	})
	return b, nil
}

func splitCandidates(sorted []float64, maxBins int) []float64 {
	distinct := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) <= 1 {
		return nil
	}
	if len(distinct) <= maxBins {
		th := make([]float64, len(distinct)-1)
		for i := range th {
			th[i] = (distinct[i] + distinct[i+1]) / 2
		}
		return th
	}

	th := make([]float64, 0, maxBins-1)
	for k := 1; k < maxBins; k++ {
		q := stat.Quantile(float64(k)/float64(maxBins), stat.Empirical, sorted, nil)
		// the maximum cannot split anything off
		if q >= sorted[len(sorted)-1] {
			continue
		}
		if len(th) == 0 || q > th[len(th)-1] {
			th = append(th, q)
		}
	}
	return th
}

// Dims returns the number of rows and features.
func (b *Binned) Dims() (rows, cols int) {
	return b.rows, b.cols
}

// Thresholds returns the split candidates of feature j.
func (b *Binned) Thresholds(j int) []float64 {
	return b.thresholds[j]
}
