package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/co2ml/report"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("co2ml %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestGenerateAndRun(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "co2.csv")
	preds := filepath.Join(dir, "predictions.parquet")

	execute(t, "generate", "--rows", "150", "--seed", "3", "--out", data, "--log-level", "error")
	raw, err := os.ReadFile(data)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(raw), "\n"); lines != 151 {
		t.Errorf("generated %d lines, want header plus 150 rows", lines)
	}

	out := execute(t, "run",
		"--data", data,
		"--gbt-max-iter", "3",
		"--show-rows", "3",
		"--predictions-out", preds,
		"--log-level", "error",
	)
	for _, s := range []string{"== metrics ==", "RandomForestRegressor", "GBTRegressor", "mean residual"} {
		if !strings.Contains(out, s) {
			t.Errorf("run output lacks %q", s)
		}
	}
	rows, err := report.ReadPredictionsParquet(preds)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) == 0 {
		t.Error("no predictions exported")
	}
}
