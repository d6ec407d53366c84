package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/co2ml/dataset"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

// Metric names understood by RegressionEvaluator.
const (
	MetricRMSE = "rmse"
	MetricMSE  = "mse"
	MetricR2   = "r2"
	MetricMAE  = "mae"
	// MetricVar is the explained variance: the mean squared deviation of the
	// predictions from the label mean.
	MetricVar = "var"
)

// RegressionEvaluator scores the prediction column of a Frame against its
// label column.
type RegressionEvaluator struct {
	LabelCol      string
	PredictionCol string
	MetricName    string
}

// NewRegressionEvaluator returns an evaluator for labelCol and predictionCol
// using RMSE.
func NewRegressionEvaluator(labelCol, predictionCol string) *RegressionEvaluator {
	return &RegressionEvaluator{
		LabelCol:      labelCol,
		PredictionCol: predictionCol,
		MetricName:    MetricRMSE,
	}
}

// WithMetricName sets the metric
func (e *RegressionEvaluator) WithMetricName(name string) *RegressionEvaluator {
	e.MetricName = name
	return e
}

// Evaluate computes MetricName over the rows of f.
func (e *RegressionEvaluator) Evaluate(f *dataset.Frame) (float64, error) {
	return e.EvaluateWith(f, e.MetricName)
}

// EvaluateWith computes the named metric over the rows of f.
func (e *RegressionEvaluator) EvaluateWith(f *dataset.Frame, metricName string) (float64, error) {
	if metricName == "" {
		metricName = MetricRMSE
	}
	labels, err := f.Floats(e.LabelCol)
	if err != nil {
		return 0, err
	}
	preds, err := f.Floats(e.PredictionCol)
	if err != nil {
		return 0, err
	}
	// mat.NewVecDense panics on zero length
	if len(labels) == 0 || len(preds) == 0 {
		return 0, errors.NewValueError("RegressionEvaluator.Evaluate", "no rows to evaluate")
	}
	yTrue := mat.NewVecDense(len(labels), labels)
	yPred := mat.NewVecDense(len(preds), preds)

	switch metricName {
	case MetricRMSE:
		return RMSE(yTrue, yPred)
	case MetricMSE:
		return MSE(yTrue, yPred)
	case MetricR2:
		return R2Score(yTrue, yPred)
	case MetricMAE:
		return MAE(yTrue, yPred)
	case MetricVar:
		if _, err := checkPair("RegressionEvaluator.var", yTrue, yPred); err != nil {
			return 0, err
		}
		mean := stat.Mean(labels, nil)
		dev := make([]float64, len(preds))
		copy(dev, preds)
		floats.AddConst(-mean, dev)
		return floats.Dot(dev, dev) / float64(len(dev)), nil
	default:
		return 0, errors.NewValidationError("metricName", "must be rmse, mse, r2, mae or var", metricName)
	}
}

// IsLargerBetter reports whether a larger value of MetricName is better.
func (e *RegressionEvaluator) IsLargerBetter() bool {
	return e.MetricName == MetricR2 || e.MetricName == MetricVar
}
