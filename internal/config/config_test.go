package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.RandomForest.NumTrees != 5 || cfg.RandomForest.SubsamplingRate != 0.8 {
		t.Errorf("unexpected random forest defaults %+v", cfg.RandomForest)
	}
	if cfg.GBT.MaxIter != 50 {
		t.Errorf("unexpected GBT defaults %+v", cfg.GBT)
	}
	if !reflect.DeepEqual(cfg.Split.Weights, []float64{0.7, 0.3}) || cfg.Split.Seed != 0 {
		t.Errorf("unexpected split defaults %+v", cfg.Split)
	}
	if cfg.Delimiter() != ',' {
		t.Errorf("Delimiter() = %q", cfg.Delimiter())
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load without sources should equal Default()\n got %+v\nwant %+v", cfg, Default())
	}
}

func TestLoadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "co2ml.yaml")
	yaml := `
data:
  path: vehicles.csv
features:
  numeric:
    - Engine Size(L)
    - Cylinders
gbt:
  max_iter: 20
  step_size: 0.2
output:
  show_rows: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CO2ML_GBT_MAX_ITER", "30")
	t.Setenv("CO2ML_LOG_LEVEL", "debug")

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("data", "co2.csv", "")
	flags.Int("show-rows", 20, "")
	flags.Int("seed", 0, "")
	if err := flags.Parse([]string{"--show-rows=3"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// file
	if cfg.Data.Path != "vehicles.csv" {
		t.Errorf("data.path = %q, want the file value (unset flag must not override)", cfg.Data.Path)
	}
	if !reflect.DeepEqual(cfg.Features.Numeric, []string{"Engine Size(L)", "Cylinders"}) {
		t.Errorf("features.numeric = %v", cfg.Features.Numeric)
	}
	if cfg.GBT.StepSize != 0.2 {
		t.Errorf("gbt.step_size = %v", cfg.GBT.StepSize)
	}
	// environment over file
	if cfg.GBT.MaxIter != 30 {
		t.Errorf("gbt.max_iter = %d, want 30 from the environment", cfg.GBT.MaxIter)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
	// flag over file
	if cfg.Output.ShowRows != 3 {
		t.Errorf("output.show_rows = %d, want 3 from the flag", cfg.Output.ShowRows)
	}
	// defaults survive
	if cfg.RandomForest.NumTrees != 5 || cfg.Data.Label != "CO2 Emissions(g/km)" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Error("missing config file should fail")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"split": {"weights": [0.7]}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path, nil)
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty path", func(c *Config) { c.Data.Path = "" }},
		{"empty label", func(c *Config) { c.Data.Label = "" }},
		{"long delimiter", func(c *Config) { c.Data.Delimiter = ";;" }},
		{"no features", func(c *Config) { c.Features.Categorical, c.Features.Numeric = nil, nil }},
		{"label as feature", func(c *Config) { c.Features.Numeric = append(c.Features.Numeric, c.Data.Label) }},
		{"handle invalid", func(c *Config) { c.Features.HandleInvalid = "drop" }},
		{"three weights", func(c *Config) { c.Split.Weights = []float64{0.5, 0.3, 0.2} }},
		{"zero weight", func(c *Config) { c.Split.Weights = []float64{1, 0} }},
		{"no trees", func(c *Config) { c.RandomForest.NumTrees = 0 }},
		{"no iterations", func(c *Config) { c.GBT.MaxIter = 0 }},
		{"negative rows", func(c *Config) { c.Output.ShowRows = -1 }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
