package residual

import (
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/co2ml/dataset"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

func TestCompute(t *testing.T) {
	res, err := Compute([]float64{200, 250, 180}, []float64{190, 260, 180})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{10, -10, 0}
	for i := range want {
		if res[i] != want[i] {
			t.Errorf("residual %d = %v, want %v", i, res[i], want[i])
		}
	}

	_, err = Compute([]float64{1, 2}, []float64{1})
	var dim *errors.DimensionError
	if !errors.As(err, &dim) {
		t.Errorf("expected DimensionError, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want Summary
	}{
		{
			name: "single",
			in:   []float64{4},
			want: Summary{Count: 1, Mean: 4, Min: 4, Q1: 4, Median: 4, Q3: 4, Max: 4},
		},
		{
			name: "five values",
			in:   []float64{-2, 4, 0, 2, -4},
			want: Summary{Count: 5, Mean: 0, StdDev: math.Sqrt(10), Min: -4, Q1: -2, Median: 0, Q3: 2, Max: 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Summarize(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got.Count != tt.want.Count {
				t.Errorf("Count = %d, want %d", got.Count, tt.want.Count)
			}
			pairs := [][2]float64{
				{got.Mean, tt.want.Mean}, {got.StdDev, tt.want.StdDev},
				{got.Min, tt.want.Min}, {got.Q1, tt.want.Q1}, {got.Median, tt.want.Median},
				{got.Q3, tt.want.Q3}, {got.Max, tt.want.Max},
			}
			for i, p := range pairs {
				if math.Abs(p[0]-p[1]) > 1e-9 {
					t.Errorf("field %d = %v, want %v (%+v)", i, p[0], p[1], got)
				}
			}
		})
	}

	if _, err := Summarize(nil); err == nil {
		t.Error("empty residuals should fail")
	}
	if _, err := Summarize([]float64{1, math.NaN()}); err == nil {
		t.Error("NaN residual should fail")
	}
}

// 任意の有限な入力で平均が有限であること
func TestSummarizeMeanIsFinite(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 13))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.IntN(200)
		res := make([]float64, n)
		for i := range res {
			res[i] = (rng.Float64() - 0.5) * 1e6
		}
		s, err := Summarize(res)
		if err != nil {
			t.Fatal(err)
		}
		if math.IsNaN(s.Mean) || math.IsInf(s.Mean, 0) {
			t.Fatalf("mean not finite for %d residuals", n)
		}
		if s.Mean < s.Min || s.Mean > s.Max {
			t.Fatalf("mean %v outside [%v, %v]", s.Mean, s.Min, s.Max)
		}
	}
}

func frame(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.New(
		series.New([]string{"FORD", "KIA", "FORD", "KIA"}, series.String, "Make"),
		series.New([]float64{200, 150, 300, 170}, series.Float, "CO2 Emissions(g/km)"),
		series.New([]float64{210, 140, 280, 180}, series.Float, "prediction"),
	)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestWithResidualsAndGroups(t *testing.T) {
	f, err := WithResiduals(frame(t), "CO2 Emissions(g/km)", "prediction", "residual")
	if err != nil {
		t.Fatal(err)
	}
	res, err := f.Floats("residual")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-10, 10, 20, -10}
	for i := range want {
		if res[i] != want[i] {
			t.Errorf("residual %d = %v, want %v", i, res[i], want[i])
		}
	}

	mean, err := Mean(f, "residual")
	if err != nil {
		t.Fatal(err)
	}
	if mean != 2.5 {
		t.Errorf("mean residual = %v, want 2.5", mean)
	}

	groups, err := ByGroup(f, "Make", "residual")
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[0].Key != "FORD" || groups[1].Key != "KIA" {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if groups[0].Mean != 5 || groups[1].Mean != 0 || groups[0].Count != 2 {
		t.Errorf("unexpected group means %+v", groups)
	}

	if _, err := WithResiduals(frame(t), "Make", "prediction", "residual"); err == nil {
		t.Error("string label column should fail")
	}
}

func TestSaveCharts(t *testing.T) {
	dir := t.TempDir()
	hist := filepath.Join(dir, "residuals.png")
	scatter := filepath.Join(dir, "scatter.svg")

	if err := SaveHistogram([]float64{-3, -1, 0, 0.5, 2, 4}, hist); err != nil {
		t.Fatalf("SaveHistogram: %v", err)
	}
	if err := SaveScatter([]float64{200, 150, 300}, []float64{210, 140, 280}, scatter); err != nil {
		t.Fatalf("SaveScatter: %v", err)
	}
	for _, p := range []string{hist, scatter} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("chart not written: %v", err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", p)
		}
	}

	if err := SaveHistogram(nil, hist); err == nil {
		t.Error("empty histogram should fail")
	}
	if err := SaveScatter([]float64{1}, []float64{1, 2}, scatter); err == nil {
		t.Error("mismatched scatter should fail")
	}
}
