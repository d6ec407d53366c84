package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "co2ml: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "co2ml: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestModelErrorUnwrapsSentinel(t *testing.T) {
	err := NewModelError("StringIndexer.Fit", "empty data", ErrEmptyData)
	if !Is(err, ErrEmptyData) {
		t.Error("Expected Is(err, ErrEmptyData) to be true")
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 7, 5, 1)

	want := "co2ml: Predict: dimension mismatch on axis 1 (features). Expected 7, got 5"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Fatal("Error should be castable to *DimensionError")
	}
	if dimErr.Expected != 7 || dimErr.Got != 5 {
		t.Errorf("unexpected fields %+v", dimErr)
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("GBTRegressor", "Predict")

	want := "co2ml: GBTRegressor: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewSchemaError(t *testing.T) {
	err := NewSchemaError("CO2 Emissions(g/km)", "not found")

	want := "co2ml: schema: column 'CO2 Emissions(g/km)': not found"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var schemaErr *SchemaError
	if !As(err, &schemaErr) {
		t.Fatal("Error should be castable to *SchemaError")
	}
	if schemaErr.Column != "CO2 Emissions(g/km)" {
		t.Errorf("Column = %q", schemaErr.Column)
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("subsampling_rate", "must be in (0, 1]", 1.5)

	want := "co2ml: validation failed for parameter 'subsampling_rate': must be in (0, 1] (got: 1.5)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrapf(ErrUndefinedMetric, "R2Score: %s", "zero variance")

	if !Is(wrapped, ErrUndefinedMetric) {
		t.Error("Expected Is(wrapped, ErrUndefinedMetric) to be true")
	}
	if !strings.Contains(wrapped.Error(), "zero variance") {
		t.Error("Expected wrapped error to contain wrapping message")
	}
}

func TestWarnRoutesToHandlers(t *testing.T) {
	defer SetZerologWarnFunc(nil)

	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	Warn(NewUndefinedMetricWarning("r2", "zero variance", math.NaN()))
	if len(got) != 1 {
		t.Fatalf("expected 1 warning through handler, got %d", len(got))
	}

	var viaZerolog int
	SetZerologWarnFunc(func(error) { viaZerolog++ })
	Warn(NewDataConversionWarning("Cylinders", "int", "float"))
	if viaZerolog != 1 || len(got) != 1 {
		t.Errorf("zerolog sink should take precedence, zerolog=%d handler=%d", viaZerolog, len(got))
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("loss", []float64{1, 2, 3}, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := CheckNumericalStability("loss", []float64{1, math.NaN()}, 4)
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if numErr.Iteration != 4 {
		t.Errorf("Iteration = %d, want 4", numErr.Iteration)
	}

	if err := CheckScalar("mean", math.Inf(1), 0); err == nil {
		t.Error("expected error for +Inf")
	}
	if SafeDivide(1, 0) != 0 {
		t.Error("SafeDivide by zero should return 0")
	}
}
