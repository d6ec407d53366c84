// Package config holds the run configuration of the co2ml pipeline. Values
// are layered: built-in defaults, then an optional yaml, json or toml file,
// then CO2ML_* environment variables, then command line flags.
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. CO2ML_DATA_PATH.
const EnvPrefix = "CO2ML"

type DataConfig struct {
	Path       string   `mapstructure:"path"`
	Delimiter  string   `mapstructure:"delimiter"`
	NullValues []string `mapstructure:"null_values"`
	Label      string   `mapstructure:"label"`
}

type FeaturesConfig struct {
	Categorical   []string `mapstructure:"categorical"`
	Numeric       []string `mapstructure:"numeric"`
	Column        string   `mapstructure:"column"`
	DropLast      bool     `mapstructure:"drop_last"`
	HandleInvalid string   `mapstructure:"handle_invalid"`
}

type SplitConfig struct {
	Weights []float64 `mapstructure:"weights"`
	Seed    uint64    `mapstructure:"seed"`
}

type RandomForestConfig struct {
	NumTrees              int     `mapstructure:"num_trees"`
	MaxDepth              int     `mapstructure:"max_depth"`
	MaxBins               int     `mapstructure:"max_bins"`
	SubsamplingRate       float64 `mapstructure:"subsampling_rate"`
	FeatureSubsetStrategy string  `mapstructure:"feature_subset_strategy"`
	Bootstrap             bool    `mapstructure:"bootstrap"`
	Seed                  uint64  `mapstructure:"seed"`
}

type GBTConfig struct {
	MaxIter         int     `mapstructure:"max_iter"`
	StepSize        float64 `mapstructure:"step_size"`
	MaxDepth        int     `mapstructure:"max_depth"`
	MaxBins         int     `mapstructure:"max_bins"`
	Loss            string  `mapstructure:"loss"`
	SubsamplingRate float64 `mapstructure:"subsampling_rate"`
	Seed            uint64  `mapstructure:"seed"`
}

// OutputConfig controls what a run displays and writes. Nothing is written
// to disk unless PlotDir or PredictionsPath is set.
type OutputConfig struct {
	// ShowRows is the row limit of every displayed table; 0 disables tables.
	ShowRows        int    `mapstructure:"show_rows"`
	PlotDir         string `mapstructure:"plot_dir"`
	PredictionsPath string `mapstructure:"predictions_path"`
	Progress        bool   `mapstructure:"progress"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// Config is the full run configuration.
type Config struct {
	Data         DataConfig         `mapstructure:"data"`
	Features     FeaturesConfig     `mapstructure:"features"`
	Split        SplitConfig        `mapstructure:"split"`
	RandomForest RandomForestConfig `mapstructure:"random_forest"`
	GBT          GBTConfig          `mapstructure:"gbt"`
	Output       OutputConfig       `mapstructure:"output"`
	Log          LogConfig          `mapstructure:"log"`
}

// Default returns the configuration of the reference CO2 notebook run.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Path:       "co2.csv",
			Delimiter:  ",",
			NullValues: []string{"", "NA", "NaN", "null", "<nil>"},
			Label:      "CO2 Emissions(g/km)",
		},
		Features: FeaturesConfig{
			Categorical: []string{"Make", "Model", "Vehicle Class", "Transmission", "Fuel Type"},
			Numeric: []string{
				"Engine Size(L)",
				"Cylinders",
				"Fuel Consumption City (L/100 km)",
				"Fuel Consumption Hwy (L/100 km)",
			},
			Column:        "features",
			DropLast:      true,
			HandleInvalid: "error",
		},
		Split: SplitConfig{
			Weights: []float64{0.7, 0.3},
			Seed:    0,
		},
		RandomForest: RandomForestConfig{
			NumTrees:              5,
			MaxDepth:              5,
			MaxBins:               32,
			SubsamplingRate:       0.8,
			FeatureSubsetStrategy: "auto",
			Bootstrap:             true,
		},
		GBT: GBTConfig{
			MaxIter:         50,
			StepSize:        0.1,
			MaxDepth:        5,
			MaxBins:         32,
			Loss:            "squared",
			SubsamplingRate: 1.0,
		},
		Output: OutputConfig{
			ShowRows: 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"data":             "data.path",
	"label":            "data.label",
	"seed":             "split.seed",
	"show-rows":        "output.show_rows",
	"plot-dir":         "output.plot_dir",
	"predictions-out":  "output.predictions_path",
	"progress":         "output.progress",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"rf-trees":         "random_forest.num_trees",
	"gbt-max-iter":     "gbt.max_iter",
	"handle-invalid":   "features.handle_invalid",
	"one-hot-droplast": "features.drop_last",
}

// toMap flattens the defaults into viper's key/value form.
func toMap(c *Config) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := mapstructure.Decode(c, &out); err != nil {
		return nil, errors.Wrap(err, "config: encode defaults")
	}
	return out, nil
}

// Load builds the configuration. path may be empty; flags may be nil. Only
// flags explicitly set on the command line override the lower layers.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	defaults, err := toMap(Default())
	if err != nil {
		return nil, err
	}
	setDefaults(v, "", defaults)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: read %s", path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.Wrapf(err, "config: bind flag %s", name)
			}
		}
	}

	var cfg Config
	hook := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			dc.DecodeHook,
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, errors.Wrap(err, "config: decode")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, prefix string, m map[string]interface{}) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]interface{}); ok {
			setDefaults(v, key, nested)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Validate checks the configuration for values no run can use.
func (c *Config) Validate() error {
	switch {
	case c.Data.Path == "":
		return errors.NewValidationError("data.path", "must not be empty", c.Data.Path)
	case c.Data.Label == "":
		return errors.NewValidationError("data.label", "must not be empty", c.Data.Label)
	case len([]rune(c.Data.Delimiter)) != 1:
		return errors.NewValidationError("data.delimiter", "must be a single character", c.Data.Delimiter)
	case len(c.Features.Categorical)+len(c.Features.Numeric) == 0:
		return errors.NewValidationError("features", "at least one feature column is required", nil)
	case c.Features.Column == "":
		return errors.NewValidationError("features.column", "must not be empty", c.Features.Column)
	}
	for _, col := range append(append([]string(nil), c.Features.Categorical...), c.Features.Numeric...) {
		if col == c.Data.Label {
			return errors.NewValidationError("features", fmt.Sprintf("label %q cannot be a feature", col), col)
		}
	}
	switch c.Features.HandleInvalid {
	case "error", "keep", "skip":
	default:
		return errors.NewValidationError("features.handle_invalid", "must be error, keep or skip", c.Features.HandleInvalid)
	}

	if len(c.Split.Weights) != 2 {
		return errors.NewValidationError("split.weights", "need a train and a test weight", c.Split.Weights)
	}
	for _, w := range c.Split.Weights {
		if !(w > 0) || math.IsInf(w, 0) {
			return errors.NewValidationError("split.weights", "weights must be positive", c.Split.Weights)
		}
	}

	if c.RandomForest.NumTrees < 1 {
		return errors.NewValidationError("random_forest.num_trees", "must be >= 1", c.RandomForest.NumTrees)
	}
	if c.GBT.MaxIter < 1 {
		return errors.NewValidationError("gbt.max_iter", "must be >= 1", c.GBT.MaxIter)
	}
	if c.Output.ShowRows < 0 {
		return errors.NewValidationError("output.show_rows", "must be >= 0", c.Output.ShowRows)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.NewValidationError("log.format", "must be console or json", c.Log.Format)
	}
	return nil
}

// Delimiter returns the data delimiter as a rune.
func (c *Config) Delimiter() rune {
	return []rune(c.Data.Delimiter)[0]
}
