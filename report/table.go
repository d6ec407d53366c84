// Package report renders pipeline results: aligned text tables of frames and
// metrics, and an optional parquet export of the test-set predictions.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/YuminosukeSato/co2ml/dataset"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

// Table writes the first limit rows of the named columns of f as an aligned
// text table. An empty columns list prints every column; limit <= 0 prints
// every row. A trailing line reports how many rows were omitted.
func Table(w io.Writer, f *dataset.Frame, columns []string, limit int) error {
	if len(columns) == 0 {
		columns = f.Columns()
	}
	for _, c := range columns {
		if !f.HasColumn(c) {
			return errors.NewSchemaError(c, "not found")
		}
	}
	n := f.Count()
	if limit > 0 && limit < n {
		n = limit
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	cells := make([]string, len(columns))
	for i := 0; i < n; i++ {
		for j, c := range columns {
			v, err := f.Cell(i, c)
			if err != nil {
				return err
			}
			cells[j] = v
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "report: write table")
	}
	if rest := f.Count() - n; rest > 0 {
		if _, err := fmt.Fprintf(w, "only showing top %d rows (%d more)\n", n, rest); err != nil {
			return errors.Wrap(err, "report: write table")
		}
	}
	return nil
}

// ModelResult is the evaluation of one fitted model on the test subset.
type ModelResult struct {
	Name         string
	EstimatorID  string
	Trees        int
	R2           float64
	RMSE         float64
	MAE          float64
	ResidualMean float64
}

func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "undefined"
	}
	return fmt.Sprintf("%.4f", v)
}

// Metrics writes one row per model with its test metrics.
func Metrics(w io.Writer, results []ModelResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "model\ttrees\tr2\trmse\tmae\tresidual mean\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t\n",
			r.Name, r.Trees,
			formatMetric(r.R2), formatMetric(r.RMSE), formatMetric(r.MAE), formatMetric(r.ResidualMean),
		)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "report: write metrics")
	}
	return nil
}
