package synth

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/YuminosukeSato/co2ml/dataset"
)

func generate(t *testing.T, opts Options) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Generate(&buf, opts); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return buf.Bytes()
}

func TestGenerateDeterministic(t *testing.T) {
	opts := Options{Rows: 50, Seed: 7}
	a := generate(t, opts)
	b := generate(t, opts)
	if !bytes.Equal(a, b) {
		t.Error("same seed should give identical output")
	}

	opts.Seed = 8
	if bytes.Equal(a, generate(t, opts)) {
		t.Error("different seeds should give different output")
	}
}

func TestGenerateSchema(t *testing.T) {
	data := generate(t, Options{Rows: 200, Seed: 1})

	f, err := dataset.Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.Count() != 200 {
		t.Errorf("expected 200 rows, got %d", f.Count())
	}
	for _, c := range Columns {
		if !f.HasColumn(c) {
			t.Errorf("missing column %q", c)
		}
	}

	for _, c := range []string{"Engine Size(L)", "Cylinders", "Fuel Consumption Comb (L/100 km)", Label} {
		k, _ := f.Kind(c)
		if k != dataset.KindFloat && k != dataset.KindInt {
			t.Errorf("column %q inferred as %s, want numeric", c, k)
		}
	}

	co2, err := f.Floats(Label)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range co2 {
		if v < 50 || v > 700 {
			t.Fatalf("row %d: implausible CO2 %v", i, v)
		}
	}
	if got := f.DropNA().Count(); got != 200 {
		t.Errorf("no nulls expected with NullRate 0, %d rows survive cleaning", got)
	}
}

func TestGenerateNulls(t *testing.T) {
	data := generate(t, Options{Rows: 300, Seed: 3, NullRate: 0.05})

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	empty := 0
	for _, rec := range records[1:] {
		for _, cell := range rec {
			if cell == "" {
				empty++
			}
		}
	}
	cells := 300 * len(Columns)
	if empty == 0 || empty > cells/10 {
		t.Errorf("%d empty cells out of %d, want about 5%%", empty, cells)
	}

	f, err := dataset.Read(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if cleaned := f.DropNA().Count(); cleaned >= f.Count() {
		t.Errorf("cleaning should drop rows: %d -> %d", f.Count(), cleaned)
	}

	// the mask does not change the non-null values
	clean := generate(t, Options{Rows: 300, Seed: 3})
	cleanRecords, _ := csv.NewReader(bytes.NewReader(clean)).ReadAll()
	for i := 1; i < len(records); i++ {
		for j, cell := range records[i] {
			if cell != "" && cell != cleanRecords[i][j] {
				t.Fatalf("row %d column %d: %q vs %q", i, j, cell, cleanRecords[i][j])
			}
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", DefaultOptions(), false},
		{"no rows", Options{Rows: 0}, true},
		{"negative rate", Options{Rows: 1, NullRate: -0.1}, true},
		{"rate one", Options{Rows: 1, NullRate: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
