package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/co2ml/pkg/errors"
	"github.com/YuminosukeSato/co2ml/pkg/log"
	"github.com/YuminosukeSato/co2ml/synth"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic vehicle CO2 emissions CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		opts := synth.DefaultOptions()
		if opts.Rows, err = f.GetInt("rows"); err != nil {
			return err
		}
		if opts.Seed, err = f.GetInt64("seed"); err != nil {
			return err
		}
		if opts.NullRate, err = f.GetFloat64("null-rate"); err != nil {
			return err
		}
		out, _ := f.GetString("out")

		w := cmd.OutOrStdout()
		if out != "" {
			fh, err := os.Create(out)
			if err != nil {
				return errors.Wrapf(err, "generate: create %s", out)
			}
			defer fh.Close()
			w = fh
		}
		if err := synth.Generate(w, opts); err != nil {
			return err
		}
		logger.Info("Synthetic dataset written",
			log.SamplesKey, opts.Rows,
			log.RandomSeedKey, opts.Seed,
			log.SourceKey, out,
		)
		return nil
	},
}

func init() {
	d := synth.DefaultOptions()
	f := generateCmd.Flags()
	f.Int("rows", d.Rows, "number of rows")
	f.Int64("seed", d.Seed, "random seed")
	f.Float64("null-rate", d.NullRate, "probability that a cell is left empty")
	f.String("out", "", "output path, stdout when empty")
}
