package main

import (
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/co2ml/internal/experiment"
	"github.com/YuminosukeSato/co2ml/sklearn/ensemble"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Train and evaluate both regressors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		opts := []experiment.Option{experiment.WithOutput(cmd.OutOrStdout())}
		if cfg.Output.Progress {
			opts = append(opts, experiment.WithGBTCallbacks(progressCallback(cfg.GBT.MaxIter)))
		}
		_, err = experiment.Run(ctx, cfg, logger, opts...)
		return err
	},
}

func init() {
	f := runCmd.Flags()
	f.String("data", "co2.csv", "input CSV path")
	f.String("label", "CO2 Emissions(g/km)", "label column")
	f.Uint64("seed", 0, "seed of the train/test split")
	f.Int("show-rows", 20, "rows shown per table, 0 to hide tables")
	f.String("plot-dir", "", "directory for residual charts")
	f.String("predictions-out", "", "parquet file for the test predictions")
	f.Bool("progress", false, "show a progress bar while boosting")
	f.Int("rf-trees", 5, "number of random forest trees")
	f.Int("gbt-max-iter", 50, "number of boosting iterations")
	f.String("handle-invalid", "error", "unseen categories: error, keep or skip")
	f.Bool("one-hot-droplast", true, "drop the last category of each one-hot vector")
}

// progressCallback advances a terminal progress bar once per boosting
// iteration.
func progressCallback(maxIter int) ensemble.Callback {
	bar := progressbar.NewOptions(maxIter,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("boosting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return func(env *ensemble.CallbackEnv) error {
		if err := bar.Add(1); err != nil {
			return err
		}
		if env.StopTraining || env.Iteration == env.NumIterations-1 {
			return bar.Finish()
		}
		return nil
	}
}
