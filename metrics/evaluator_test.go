package metrics

import (
	"math"
	"testing"

	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/co2ml/dataset"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

func predictionFrame(t *testing.T, label, pred []float64) *dataset.Frame {
	t.Helper()
	f, err := dataset.New(
		series.New([]string{"ACURA", "BMW", "FORD", "KIA"}[:len(label)], series.String, "Make"),
		series.New(label, series.Float, "label"),
		series.New(pred, series.Float, "prediction"),
	)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestRegressionEvaluator(t *testing.T) {
	f := predictionFrame(t, []float64{200, 220, 240, 260}, []float64{210, 220, 230, 260})

	tests := []struct {
		metric         string
		want           float64
		largerIsBetter bool
	}{
		{MetricMSE, 50, false},
		{MetricRMSE, math.Sqrt(50), false},
		{MetricMAE, 5, false},
		{MetricR2, 1 - 200.0/2000.0, true},
		// predictions deviate from the label mean 230 by -20, -10, 0, 30
		{MetricVar, (400 + 100 + 0 + 900) / 4.0, true},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			e := NewRegressionEvaluator("label", "prediction").WithMetricName(tt.metric)
			got, err := e.Evaluate(f)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("%s = %v, want %v", tt.metric, got, tt.want)
			}
			if e.IsLargerBetter() != tt.largerIsBetter {
				t.Errorf("IsLargerBetter = %v", e.IsLargerBetter())
			}
		})
	}
}

func TestRegressionEvaluator_Defaults(t *testing.T) {
	f := predictionFrame(t, []float64{1, 2, 3}, []float64{1, 2, 5})
	e := NewRegressionEvaluator("label", "prediction")

	rmse, err := e.Evaluate(f)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rmse-math.Sqrt(4.0/3.0)) > 1e-12 {
		t.Errorf("default metric should be rmse, got %v", rmse)
	}

	r2, err := e.EvaluateWith(f, MetricR2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r2-(1-4.0/2.0)) > 1e-12 {
		t.Errorf("r2 = %v", r2)
	}
	if e.MetricName != MetricRMSE {
		t.Error("EvaluateWith must not change MetricName")
	}
}

func TestRegressionEvaluator_Errors(t *testing.T) {
	f := predictionFrame(t, []float64{1, 2}, []float64{1, 2})

	var schema *errors.SchemaError
	if _, err := NewRegressionEvaluator("missing", "prediction").Evaluate(f); !errors.As(err, &schema) {
		t.Errorf("expected SchemaError for a missing column, got %v", err)
	}
	if _, err := NewRegressionEvaluator("Make", "prediction").Evaluate(f); !errors.As(err, &schema) {
		t.Errorf("expected SchemaError for a string column, got %v", err)
	}

	var ve *errors.ValidationError
	if _, err := NewRegressionEvaluator("label", "prediction").EvaluateWith(f, "mape"); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for an unknown metric, got %v", err)
	}

	if _, err := NewRegressionEvaluator("label", "prediction").Evaluate(f.Head(0)); err == nil {
		t.Error("empty frame should fail")
	}

	constant := predictionFrame(t, []float64{5, 5}, []float64{5, 6})
	_, err := NewRegressionEvaluator("label", "prediction").EvaluateWith(constant, MetricR2)
	if !errors.Is(err, errors.ErrUndefinedMetric) {
		t.Errorf("expected ErrUndefinedMetric, got %v", err)
	}
}
