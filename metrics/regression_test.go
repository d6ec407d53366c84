package metrics

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

func vec(xs ...float64) *mat.VecDense {
	return mat.NewVecDense(len(xs), xs)
}

func TestErrorMetrics(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		mse     float64
		mae     float64
		wantErr bool
	}{
		{
			name:  "perfect prediction",
			yTrue: vec(196, 221, 136, 255, 244),
			yPred: vec(196, 221, 136, 255, 244),
			mse:   0,
			mae:   0,
		},
		{
			name:  "symmetric half errors",
			yTrue: vec(1, 2, 3, 4),
			yPred: vec(1.5, 2.5, 2.5, 3.5),
			mse:   0.25,
			mae:   0.5,
		},
		{
			name:  "grams per km",
			yTrue: vec(200, 230, 180),
			yPred: vec(202, 228, 183),
			mse:   17.0 / 3.0, // (4 + 4 + 9) / 3
			mae:   7.0 / 3.0,
		},
		{
			name:    "dimension mismatch",
			yTrue:   vec(1, 2, 3),
			yPred:   vec(1, 2),
			wantErr: true,
		},
		{
			name:    "empty vectors",
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mse, err := MSE(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MSE() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if _, err := MAE(tt.yTrue, tt.yPred); err == nil {
					t.Error("MAE() should fail as well")
				}
				return
			}
			if math.Abs(mse-tt.mse) > 1e-10 {
				t.Errorf("MSE() = %v, want %v", mse, tt.mse)
			}

			rmse, _ := RMSE(tt.yTrue, tt.yPred)
			if math.Abs(rmse-math.Sqrt(tt.mse)) > 1e-10 {
				t.Errorf("RMSE() = %v, want %v", rmse, math.Sqrt(tt.mse))
			}

			mae, _ := MAE(tt.yTrue, tt.yPred)
			if math.Abs(mae-tt.mae) > 1e-10 {
				t.Errorf("MAE() = %v, want %v", mae, tt.mae)
			}
		})
	}
}

func TestMSEMatrix(t *testing.T) {
	got, err := MSEMatrix(
		mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
		mat.NewDense(4, 1, []float64{1.5, 2.5, 2.5, 3.5}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-0.25) > 1e-10 {
		t.Errorf("MSEMatrix() = %v, want 0.25", got)
	}

	if _, err := MSEMatrix(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil)); err == nil {
		t.Error("multi-column input should fail")
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     *mat.VecDense
		yPred     *mat.VecDense
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect prediction",
			yTrue:     vec(1, 2, 3, 4, 5),
			yPred:     vec(1, 2, 3, 4, 5),
			want:      1.0,
			tolerance: 1e-12,
		},
		{
			name:      "mean predictor",
			yTrue:     vec(1, 2, 3, 4, 5),
			yPred:     vec(3, 3, 3, 3, 3),
			want:      0.0,
			tolerance: 1e-12,
		},
		{
			name:      "worse than mean baseline",
			yTrue:     vec(1, 2, 3, 4),
			yPred:     vec(4, 3, 2, 1),
			want:      -3.0,
			tolerance: 1e-12,
		},
		{
			name:    "dimension mismatch",
			yTrue:   vec(1, 2, 3),
			yPred:   vec(1, 2),
			wantErr: true,
		},
		{
			name:    "empty",
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("R2Score() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("R2Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestR2ScoreUndefinedForConstantTarget(t *testing.T) {
	errors.SetWarningHandler(func(error) {})
	defer errors.SetWarningHandler(nil)

	_, err := R2Score(vec(3, 3, 3, 3), vec(2, 3, 4, 3))
	if !errors.Is(err, errors.ErrUndefinedMetric) {
		t.Fatalf("expected ErrUndefinedMetric, got %v", err)
	}
}

func TestR2ScoreUpperBound(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.IntN(40)
		yTrue := mat.NewVecDense(n, nil)
		yPred := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			yTrue.SetVec(i, 100+rng.NormFloat64()*30)
			yPred.SetVec(i, 100+rng.NormFloat64()*30)
		}
		got, err := R2Score(yTrue, yPred)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		if got > 1 || math.IsNaN(got) {
			t.Fatalf("trial %d: R2 = %v outside (-inf, 1]", trial, got)
		}
		if got == 1 {
			t.Fatalf("trial %d: random predictor scored a perfect R2", trial)
		}
	}
}

func TestExplainedVarianceScore(t *testing.T) {
	// a constant offset is fully explained
	got, err := ExplainedVarianceScore(vec(1, 2, 3, 4), vec(2, 3, 4, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("ExplainedVarianceScore() = %v, want 1", got)
	}

	if _, err := ExplainedVarianceScore(vec(2, 2), vec(1, 3)); !errors.Is(err, errors.ErrUndefinedMetric) {
		t.Errorf("expected ErrUndefinedMetric, got %v", err)
	}
}

func BenchmarkR2Score(b *testing.B) {
	size := 10000
	yTrue := mat.NewVecDense(size, nil)
	yPred := mat.NewVecDense(size, nil)
	for i := 0; i < size; i++ {
		yTrue.SetVec(i, float64(i))
		yPred.SetVec(i, float64(i)+0.1*float64(i%10))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = R2Score(yTrue, yPred)
	}
}
