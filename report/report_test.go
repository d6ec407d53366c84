package report

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/co2ml/dataset"
)

func vehicles(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.New(
		series.New([]string{"ACURA", "BMW", "FORD"}, series.String, "Make"),
		series.New([]float64{2.0, 3.5, 5.0}, series.Float, "Engine Size(L)"),
		series.New([]int{196, 255, 300}, series.Int, "CO2 Emissions(g/km)"),
	)
	if err != nil {
		t.Fatal(err)
	}
	f, err = f.WithVectorData("features", 2, []float64{1, 0, 0, 1, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Table(&buf, vehicles(t), []string{"Make", "features", "CO2 Emissions(g/km)"}, 2); err != nil {
		t.Fatalf("Table: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, 2 rows and a footer, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "Make") || !strings.Contains(lines[0], "features") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "ACURA") || !strings.Contains(lines[1], "[1, 0]") || !strings.Contains(lines[1], "196") {
		t.Errorf("unexpected first row %q", lines[1])
	}
	if !strings.Contains(lines[3], "top 2 rows (1 more)") {
		t.Errorf("unexpected footer %q", lines[3])
	}
	// columns are aligned
	if strings.Index(lines[0], "features") != strings.Index(lines[1], "[1, 0]") {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestTableAllColumns(t *testing.T) {
	var buf bytes.Buffer
	if err := Table(&buf, vehicles(t), nil, 0); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Engine Size(L)", "FORD", "3.5", "[0, 0]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "more)") {
		t.Error("no footer expected when every row is shown")
	}

	if err := Table(&buf, vehicles(t), []string{"Model"}, 0); err == nil {
		t.Error("unknown column should fail")
	}
}

func TestMetrics(t *testing.T) {
	var buf bytes.Buffer
	err := Metrics(&buf, []ModelResult{
		{Name: "RandomForestRegressor", Trees: 5, R2: 0.91234, RMSE: 17.5, MAE: 11.25, ResidualMean: -0.5},
		{Name: "GBTRegressor", Trees: 50, R2: math.NaN()},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"r2", "RandomForestRegressor", "0.9123", "17.5000", "GBTRegressor", "undefined"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestPredictionsParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictions.parquet")
	rows := []PredictionRow{
		{Model: "GBTRegressor", Make: "ACURA", Actual: 196, Prediction: 200.5, Residual: -4.5},
		{Model: "GBTRegressor", Make: "BMW", Actual: 255, Prediction: 250, Residual: 5},
		{Model: "RandomForestRegressor", Make: "FORD", Actual: 300, Prediction: 290, Residual: 10},
	}
	if err := WritePredictionsParquet(path, rows); err != nil {
		t.Fatalf("WritePredictionsParquet: %v", err)
	}

	got, err := ReadPredictionsParquet(path)
	if err != nil {
		t.Fatalf("ReadPredictionsParquet: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("read %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], rows[i])
		}
	}
}
