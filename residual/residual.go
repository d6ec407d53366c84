// Package residual computes and summarises the prediction errors of a fitted
// model: actual minus predicted, per row, per group and as charts.
package residual

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/co2ml/dataset"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

// Summary describes a residual distribution.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Compute returns actual[i] - predicted[i] for every row.
func Compute(actual, predicted []float64) ([]float64, error) {
	if len(actual) != len(predicted) {
		return nil, errors.NewDimensionError("residual.Compute", len(actual), len(predicted), 0)
	}
	out := make([]float64, len(actual))
	floats.SubTo(out, actual, predicted)
	return out, nil
}

// Summarize returns count, mean, sample standard deviation, extremes and
// quartiles of residuals.
func Summarize(residuals []float64) (Summary, error) {
	n := len(residuals)
	if n == 0 {
		return Summary{}, errors.NewValueError("residual.Summarize", "no residuals")
	}
	for _, r := range residuals {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return Summary{}, errors.NewValueError("residual.Summarize", "residuals must be finite")
		}
	}

	sorted := append([]float64(nil), residuals...)
	sort.Float64s(sorted)

	s := Summary{
		Count:  n,
		Min:    sorted[0],
		Max:    sorted[n-1],
		Q1:     stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q3:     stat.Quantile(0.75, stat.Empirical, sorted, nil),
	}
	if n > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(residuals, nil)
	} else {
		s.Mean = residuals[0]
	}
	return s, nil
}

// WithResiduals returns f with a float column outCol holding labelCol minus
// predictionCol.
func WithResiduals(f *dataset.Frame, labelCol, predictionCol, outCol string) (*dataset.Frame, error) {
	actual, err := f.Floats(labelCol)
	if err != nil {
		return nil, err
	}
	predicted, err := f.Floats(predictionCol)
	if err != nil {
		return nil, err
	}
	res, err := Compute(actual, predicted)
	if err != nil {
		return nil, err
	}
	return f.WithFloats(outCol, res)
}

// ByGroup returns the mean residual per distinct value of key, ordered by key.
func ByGroup(f *dataset.Frame, key, residualCol string) ([]dataset.GroupStat, error) {
	return f.GroupMean(key, residualCol)
}

// Mean returns the mean residual column of f.
func Mean(f *dataset.Frame, residualCol string) (float64, error) {
	res, err := f.Floats(residualCol)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, errors.NewValueError("residual.Mean", "no residuals")
	}
	return stat.Mean(res, nil), nil
}
