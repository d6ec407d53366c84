// Package experiment runs the CO2 emission regression end to end: load,
// clean, encode, split, train a random forest and gradient-boosted trees,
// evaluate them on the held-out rows and inspect the residuals.
package experiment

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/lucsky/cuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/co2ml/core/model"
	"github.com/YuminosukeSato/co2ml/dataset"
	"github.com/YuminosukeSato/co2ml/internal/config"
	"github.com/YuminosukeSato/co2ml/metrics"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
	"github.com/YuminosukeSato/co2ml/pkg/log"
	"github.com/YuminosukeSato/co2ml/preprocessing"
	"github.com/YuminosukeSato/co2ml/report"
	"github.com/YuminosukeSato/co2ml/residual"
	"github.com/YuminosukeSato/co2ml/sklearn/ensemble"
)

// Column names added by the run.
const (
	PredictionCol = "prediction"
	ResidualCol   = "residual"
	groupCol      = "Make"
)

// Pipeline steps, in execution order.
const (
	StepLoad     = "load"
	StepClean    = "clean"
	StepEncode   = "encode"
	StepSplit    = "split"
	StepTrain    = "train"
	StepEvaluate = "evaluate"
	StepResidual = "residual"
	StepOutput   = "output"
)

// Result is everything a run produced.
type Result struct {
	RunID        string
	LoadedRows   int
	CleanRows    int
	TrainRows    int
	TestRows     int
	FeatureWidth int

	// Models holds the test metrics of the random forest and then the GBT.
	Models []report.ModelResult
	// Residual statistics of the last model (GBT) on the test rows.
	Residuals    residual.Summary
	ResidualMean float64
	ByMake       []dataset.GroupStat

	Features     *preprocessing.PipelineModel
	RandomForest *ensemble.RandomForestRegressor
	GBT          *ensemble.GBTRegressor
	// Predictions is the GBT prediction frame with its residual column.
	Predictions *dataset.Frame
}

// Option configures Run.
type Option func(*runner)

// WithOutput sets where tables are displayed. Without it nothing is printed.
func WithOutput(w io.Writer) Option {
	return func(r *runner) { r.out = w }
}

// WithGBTCallbacks adds boosting callbacks, e.g. a progress bar.
func WithGBTCallbacks(cbs ...ensemble.Callback) Option {
	return func(r *runner) { r.gbtCallbacks = append(r.gbtCallbacks, cbs...) }
}

// WithStepHook calls fn after every completed step.
func WithStepHook(fn func(step string)) Option {
	return func(r *runner) { r.onStep = fn }
}

type runner struct {
	cfg          *config.Config
	logger       log.Logger
	out          io.Writer
	gbtCallbacks []ensemble.Callback
	onStep       func(string)
	res          *Result
}

// Run executes the steps strictly in order. The context is checked between
// steps; a cancelled run returns the context error.
func Run(ctx context.Context, cfg *config.Config, logger log.Logger, opts ...Option) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runID := cuid.New()
	r := &runner{
		cfg:    cfg,
		logger: logger.With(log.RunIDKey, runID),
		out:    io.Discard,
		res:    &Result{RunID: runID},
	}
	for _, o := range opts {
		o(r)
	}

	start := time.Now()
	r.logger.Info("Run started",
		log.SourceKey, cfg.Data.Path,
		log.RandomSeedKey, cfg.Split.Seed,
	)

	var (
		raw, clean, encoded *dataset.Frame
		train, test         *dataset.Frame
		err                 error
	)
	steps := []struct {
		name string
		fn   func() error
	}{
		{StepLoad, func() error { raw, err = r.load(); return err }},
		{StepClean, func() error { clean, err = r.clean(raw); return err }},
		{StepEncode, func() error { encoded, err = r.encode(clean); return err }},
		{StepSplit, func() error { train, test, err = r.split(encoded); return err }},
		{StepTrain, func() error { return r.train(train) }},
		{StepEvaluate, func() error { return r.evaluate(test) }},
		{StepResidual, r.inspectResiduals},
		{StepOutput, r.writeOutputs},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "experiment: cancelled before %s", s.name)
		}
		t0 := time.Now()
		if err := s.fn(); err != nil {
			return nil, errors.Wrapf(err, "experiment: %s", s.name)
		}
		r.logger.Debug("Step finished",
			log.StepKey, s.name,
			log.DurationMsKey, time.Since(t0).Milliseconds(),
		)
		if r.onStep != nil {
			r.onStep(s.name)
		}
	}

	r.logger.Info("Run finished",
		log.DurationMsKey, time.Since(start).Milliseconds(),
		log.ResidualMeanKey, r.res.ResidualMean,
	)
	return r.res, nil
}

// display writes a titled table when tables are enabled. Columns missing
// from f are left out.
func (r *runner) display(title string, f *dataset.Frame, columns ...string) error {
	if r.cfg.Output.ShowRows == 0 {
		return nil
	}
	var present []string
	for _, c := range columns {
		if f.HasColumn(c) {
			present = append(present, c)
		}
	}
	if len(columns) > 0 && len(present) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(r.out, "\n== %s ==\n", title); err != nil {
		return errors.Wrap(err, "experiment: display")
	}
	return report.Table(r.out, f, present, r.cfg.Output.ShowRows)
}

func (r *runner) printf(format string, args ...any) error {
	if r.cfg.Output.ShowRows == 0 {
		return nil
	}
	_, err := fmt.Fprintf(r.out, format, args...)
	return err
}

func (r *runner) load() (*dataset.Frame, error) {
	f, err := dataset.Load(r.cfg.Data.Path,
		dataset.WithDelimiter(r.cfg.Delimiter()),
		dataset.WithNullValues(r.cfg.Data.NullValues...),
	)
	if err != nil {
		return nil, err
	}
	if !f.HasColumn(r.cfg.Data.Label) {
		return nil, errors.NewSchemaError(r.cfg.Data.Label, "label column not found")
	}
	r.res.LoadedRows = f.Count()
	r.logger.Info("Dataset loaded",
		log.StepKey, StepLoad,
		log.SamplesKey, f.Count(),
		log.FeaturesKey, len(f.Columns()),
	)
	if err := r.display("dataset", f); err != nil {
		return nil, err
	}
	return f, r.printf("rows: %d\n", f.Count())
}

func (r *runner) clean(f *dataset.Frame) (*dataset.Frame, error) {
	out := f.DropNA()
	r.res.CleanRows = out.Count()
	r.logger.Info("Rows with nulls dropped",
		log.StepKey, StepClean,
		log.SamplesKey, out.Count(),
		log.DroppedKey, f.Count()-out.Count(),
	)
	if out.Count() == 0 {
		return nil, errors.NewModelError("experiment.clean", "every row holds a null", errors.ErrEmptyData)
	}
	if err := r.printf("rows after cleaning: %d\n", out.Count()); err != nil {
		return nil, err
	}

	label := r.cfg.Data.Label
	for _, col := range []string{"", "Vehicle Class", "Fuel Type", "Engine Size(L)"} {
		cols := []string{label}
		title := label
		if col != "" {
			cols = []string{col, label}
			title = col + " vs " + label
		}
		if err := r.display(title, out, cols...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *runner) encode(f *dataset.Frame) (*dataset.Frame, error) {
	fc := r.cfg.Features
	p := preprocessing.NewFeaturePipeline(fc.Categorical, fc.Numeric, fc.Column,
		preprocessing.FeatureDropLast(fc.DropLast),
		preprocessing.FeatureHandleInvalid(fc.HandleInvalid),
	)
	pm, err := p.Fit(f)
	if err != nil {
		return nil, err
	}
	out, err := pm.Transform(f)
	if err != nil {
		return nil, err
	}
	width, err := out.VectorWidth(fc.Column)
	if err != nil {
		return nil, err
	}
	r.res.Features = pm
	r.res.FeatureWidth = width
	r.logger.Info("Features assembled",
		log.StepKey, StepEncode,
		log.SamplesKey, out.Count(),
		log.FeaturesKey, width,
	)
	return out, r.display("features", out, fc.Column, r.cfg.Data.Label)
}

func (r *runner) split(f *dataset.Frame) (*dataset.Frame, *dataset.Frame, error) {
	parts, err := f.RandomSplit(r.cfg.Split.Weights, r.cfg.Split.Seed)
	if err != nil {
		return nil, nil, err
	}
	train, test := parts[0], parts[1]
	r.res.TrainRows, r.res.TestRows = train.Count(), test.Count()
	r.logger.Info("Dataset split",
		log.StepKey, StepSplit,
		"train", train.Count(),
		"test", test.Count(),
		log.RandomSeedKey, r.cfg.Split.Seed,
	)
	if train.Count() == 0 || test.Count() == 0 {
		return nil, nil, errors.NewModelError("experiment.split", "a split is empty", errors.ErrEmptyData)
	}
	return train, test, r.printf("train: %d, test: %d\n", train.Count(), test.Count())
}

// xy returns the feature matrix and the label column of f.
func (r *runner) xy(f *dataset.Frame) (*mat.Dense, *mat.Dense, error) {
	X, err := f.Vector(r.cfg.Features.Column)
	if err != nil {
		return nil, nil, err
	}
	labels, err := f.Floats(r.cfg.Data.Label)
	if err != nil {
		return nil, nil, err
	}
	return X, mat.NewDense(len(labels), 1, labels), nil
}

func (r *runner) train(f *dataset.Frame) error {
	X, y, err := r.xy(f)
	if err != nil {
		return err
	}

	rc := r.cfg.RandomForest
	rf := ensemble.NewRandomForestRegressor().
		WithNumTrees(rc.NumTrees).
		WithMaxDepth(rc.MaxDepth).
		WithMaxBins(rc.MaxBins).
		WithSubsamplingRate(rc.SubsamplingRate).
		WithFeatureSubsetStrategy(rc.FeatureSubsetStrategy).
		WithBootstrap(rc.Bootstrap).
		WithSeed(rc.Seed)
	if err := rf.Fit(X, y); err != nil {
		return err
	}

	gc := r.cfg.GBT
	gbt := ensemble.NewGBTRegressor().
		WithMaxIter(gc.MaxIter).
		WithStepSize(gc.StepSize).
		WithMaxDepth(gc.MaxDepth).
		WithMaxBins(gc.MaxBins).
		WithLoss(gc.Loss).
		WithSubsamplingRate(gc.SubsamplingRate).
		WithSeed(gc.Seed).
		WithCallbacks(ensemble.LogEvaluation(r.logger, 10)).
		WithCallbacks(r.gbtCallbacks...)
	if err := gbt.Fit(X, y); err != nil {
		return err
	}

	r.res.RandomForest = rf
	r.res.GBT = gbt
	r.logger.Info("Models trained",
		log.StepKey, StepTrain,
		log.SamplesKey, f.Count(),
		"random_forest_id", rf.ID(),
		"gbt_id", gbt.ID(),
	)
	return nil
}

func (r *runner) evaluate(test *dataset.Frame) error {
	label := r.cfg.Data.Label
	ev := metrics.NewRegressionEvaluator(label, PredictionCol)

	models := []struct {
		name  string
		id    string
		trees int
		p     model.Predictor
	}{
		{"RandomForestRegressor", r.res.RandomForest.ID(), len(r.res.RandomForest.Trees()), r.res.RandomForest},
		{"GBTRegressor", r.res.GBT.ID(), r.res.GBT.NumTrees(), r.res.GBT},
	}
	for _, m := range models {
		pred, err := model.PredictFrame(m.p, test, r.cfg.Features.Column, PredictionCol)
		if err != nil {
			return err
		}
		withRes, err := residual.WithResiduals(pred, label, PredictionCol, ResidualCol)
		if err != nil {
			return err
		}

		mr := report.ModelResult{Name: m.name, EstimatorID: m.id, Trees: m.trees}
		// R² is NaN when the test labels are constant; a warning has been emitted
		if mr.R2, err = ev.EvaluateWith(pred, metrics.MetricR2); err != nil && !errors.Is(err, errors.ErrUndefinedMetric) {
			return err
		}
		if mr.RMSE, err = ev.EvaluateWith(pred, metrics.MetricRMSE); err != nil {
			return err
		}
		if mr.MAE, err = ev.EvaluateWith(pred, metrics.MetricMAE); err != nil {
			return err
		}
		if mr.ResidualMean, err = residual.Mean(withRes, ResidualCol); err != nil {
			return err
		}
		r.res.Models = append(r.res.Models, mr)
		r.res.Predictions = withRes

		r.logger.Info("Model evaluated",
			log.StepKey, StepEvaluate,
			log.ModelNameKey, m.name,
			log.EstimatorIDKey, m.id,
			log.SamplesKey, test.Count(),
			log.R2ScoreKey, mr.R2,
			log.RMSEKey, mr.RMSE,
			log.MAEKey, mr.MAE,
		)
		if err := r.display(m.name+" predictions", pred, PredictionCol, label, r.cfg.Features.Column); err != nil {
			return err
		}
		if err := r.printf("r2: %s\n", formatR2(mr.R2)); err != nil {
			return err
		}
	}
	if r.cfg.Output.ShowRows == 0 {
		return nil
	}
	if err := r.printf("\n== metrics ==\n"); err != nil {
		return err
	}
	return report.Metrics(r.out, r.res.Models)
}

func formatR2(v float64) string {
	if math.IsNaN(v) {
		return "undefined"
	}
	return fmt.Sprintf("%.6f", v)
}

// inspectResiduals summarises the residuals of the last evaluated model.
func (r *runner) inspectResiduals() error {
	f := r.res.Predictions
	res, err := f.Floats(ResidualCol)
	if err != nil {
		return err
	}
	sum, err := residual.Summarize(res)
	if err != nil {
		return err
	}
	r.res.Residuals = sum
	r.res.ResidualMean = sum.Mean

	if f.HasColumn(groupCol) {
		groups, err := residual.ByGroup(f, groupCol, ResidualCol)
		if err != nil {
			return err
		}
		r.res.ByMake = groups
	}

	r.logger.Info("Residuals inspected",
		log.StepKey, StepResidual,
		log.SamplesKey, sum.Count,
		log.ResidualMeanKey, sum.Mean,
		"residual_std", sum.StdDev,
	)

	if err := r.printf("\nmean residual: %.6f\n", sum.Mean); err != nil {
		return err
	}
	if err := r.display("residual by "+groupCol, f, groupCol, ResidualCol); err != nil {
		return err
	}
	return r.display("residual", f, ResidualCol)
}

// writeOutputs writes the optional charts and the parquet export.
func (r *runner) writeOutputs() error {
	oc := r.cfg.Output
	f := r.res.Predictions
	if oc.PlotDir != "" {
		if err := os.MkdirAll(oc.PlotDir, 0o755); err != nil {
			return errors.Wrapf(err, "experiment: create %s", oc.PlotDir)
		}
		res, _ := f.Floats(ResidualCol)
		actual, _ := f.Floats(r.cfg.Data.Label)
		pred, _ := f.Floats(PredictionCol)
		if err := residual.SaveHistogram(res, filepath.Join(oc.PlotDir, "residuals.png")); err != nil {
			return err
		}
		if err := residual.SaveScatter(actual, pred, filepath.Join(oc.PlotDir, "predicted_vs_actual.png")); err != nil {
			return err
		}
		r.logger.Info("Charts written", log.SourceKey, oc.PlotDir)
	}

	if oc.PredictionsPath != "" {
		rows, err := r.predictionRows()
		if err != nil {
			return err
		}
		if err := report.WritePredictionsParquet(oc.PredictionsPath, rows); err != nil {
			return err
		}
	}
	return nil
}

// predictionRows collects the GBT test predictions for export.
func (r *runner) predictionRows() ([]report.PredictionRow, error) {
	f := r.res.Predictions
	actual, err := f.Floats(r.cfg.Data.Label)
	if err != nil {
		return nil, err
	}
	pred, err := f.Floats(PredictionCol)
	if err != nil {
		return nil, err
	}
	res, err := f.Floats(ResidualCol)
	if err != nil {
		return nil, err
	}
	makes := make([]string, f.Count())
	if f.HasColumn(groupCol) {
		if makes, err = f.Strings(groupCol); err != nil {
			return nil, err
		}
	}
	rows := make([]report.PredictionRow, f.Count())
	for i := range rows {
		rows[i] = report.PredictionRow{
			Model:      "GBTRegressor",
			Make:       makes[i],
			Actual:     actual[i],
			Prediction: pred[i],
			Residual:   res[i],
		}
	}
	return rows, nil
}
