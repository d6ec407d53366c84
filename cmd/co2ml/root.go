package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/co2ml/internal/config"
	"github.com/YuminosukeSato/co2ml/pkg/log"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "co2ml",
	Short: "Predicts vehicle CO2 emissions with tree ensembles",
	Long: `co2ml loads a vehicle CO2 emissions CSV, encodes its categorical columns,
trains a random forest and a gradient-boosted trees regressor on a seeded
70/30 split and reports R2 and the residuals of the held-out rows.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: console (zerolog) or json (structured slog)")

	rootCmd.AddCommand(runCmd, generateCmd)
}

// setupLogging installs the process-wide logger described by lc.
func setupLogging(lc config.LogConfig) (log.Logger, error) {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	if lc.Format == "json" {
		log.SetProvider(log.NewSlogProvider(os.Stderr, level))
	} else {
		log.SetProvider(log.NewZerologProvider(os.Stderr, level, true))
	}
	return log.GetLoggerWithName("co2ml"), nil
}

// loadConfig reads --config and the changed flags of cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, log.Logger, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger, err := setupLogging(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	if cfgFile != "" {
		logger.Debug("Using config file", log.SourceKey, cfgFile)
	}
	return cfg, logger, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
