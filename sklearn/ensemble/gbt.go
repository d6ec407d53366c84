package ensemble

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/co2ml/core/model"
	"github.com/YuminosukeSato/co2ml/metrics"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
	"github.com/YuminosukeSato/co2ml/pkg/log"
	"github.com/YuminosukeSato/co2ml/sklearn/tree"
)

// Boosting losses.
const (
	LossSquared  = "squared"
	LossAbsolute = "absolute"
)

// GBTRegressor fits regression trees sequentially, each on the negative
// gradient of the loss of the ensemble built so far.
//
// The first tree is fitted on the labels and added with weight 1. Every later
// tree is added with weight StepSize.
type GBTRegressor struct {
	model.BaseEstimator

	// Hyperparameters
	MaxIter             int     // Number of boosting iterations
	StepSize            float64 // Weight of every tree after the first
	MaxDepth            int     // Maximum depth of each tree
	MaxBins             int     // Bins per continuous feature
	MinInstancesPerNode int     // Minimum rows in each child of a split
	MinInfoGain         float64 // Minimum squared error decrease per row of a split
	Loss                string  // squared or absolute
	SubsamplingRate     float64 // Fraction of rows drawn per iteration, without replacement
	Seed                uint64  // Random seed

	callbacks  []Callback
	validX     mat.Matrix
	validY     mat.Matrix
	trees      []*tree.DecisionTreeRegressor
	weights    []float64
	nFeatures  int
	trainError float64
}

// NewGBTRegressor returns a booster of 50 depth-5 trees with step size 0.1.
func NewGBTRegressor() *GBTRegressor {
	return &GBTRegressor{
		MaxIter:             50,
		StepSize:            0.1,
		MaxDepth:            5,
		MaxBins:             32,
		MinInstancesPerNode: 1,
		Loss:                LossSquared,
		SubsamplingRate:     1.0,
	}
}

// WithMaxIter sets the number of boosting iterations
func (g *GBTRegressor) WithMaxIter(n int) *GBTRegressor {
	g.MaxIter = n
	return g
}

// WithStepSize sets the learning rate
func (g *GBTRegressor) WithStepSize(s float64) *GBTRegressor {
	g.StepSize = s
	return g
}

// WithMaxDepth sets the maximum depth
func (g *GBTRegressor) WithMaxDepth(d int) *GBTRegressor {
	g.MaxDepth = d
	return g
}

// WithMaxBins sets the number of bins per feature
func (g *GBTRegressor) WithMaxBins(n int) *GBTRegressor {
	g.MaxBins = n
	return g
}

// WithLoss sets the loss function
func (g *GBTRegressor) WithLoss(loss string) *GBTRegressor {
	g.Loss = loss
	return g
}

// WithSubsamplingRate sets the fraction of rows used per iteration
func (g *GBTRegressor) WithSubsamplingRate(r float64) *GBTRegressor {
	g.SubsamplingRate = r
	return g
}

// WithSeed sets the random seed
func (g *GBTRegressor) WithSeed(seed uint64) *GBTRegressor {
	g.Seed = seed
	return g
}

// WithCallbacks adds callbacks run after every iteration, in order.
func (g *GBTRegressor) WithCallbacks(cbs ...Callback) *GBTRegressor {
	g.callbacks = append(g.callbacks, cbs...)
	return g
}

// WithValidation sets a held-out set whose loss is reported as ValidLoss.
func (g *GBTRegressor) WithValidation(X, y mat.Matrix) *GBTRegressor {
	g.validX, g.validY = X, y
	return g
}

func (g *GBTRegressor) validate() error {
	switch {
	case g.MaxIter < 1:
		return errors.NewValidationError("max_iter", "must be >= 1", g.MaxIter)
	case !(g.StepSize > 0 && g.StepSize <= 1):
		return errors.NewValidationError("step_size", "must be in (0, 1]", g.StepSize)
	case g.MaxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", g.MaxDepth)
	case g.MaxBins < 2 || g.MaxBins > tree.MaxBinsLimit:
		return errors.NewValidationError("max_bins", "must be in [2, 256]", g.MaxBins)
	case g.MinInstancesPerNode < 1:
		return errors.NewValidationError("min_instances_per_node", "must be >= 1", g.MinInstancesPerNode)
	case g.MinInfoGain < 0:
		return errors.NewValidationError("min_info_gain", "must be >= 0", g.MinInfoGain)
	case g.Loss != LossSquared && g.Loss != LossAbsolute:
		return errors.NewValidationError("loss", "must be squared or absolute", g.Loss)
	case !(g.SubsamplingRate > 0 && g.SubsamplingRate <= 1):
		return errors.NewValidationError("subsampling_rate", "must be in (0, 1]", g.SubsamplingRate)
	}
	return nil
}

// negGradient writes the pseudo-residuals of the loss at F into dst.
func (g *GBTRegressor) negGradient(y, F, dst []float64) {
	for i := range dst {
		d := y[i] - F[i]
		if g.Loss == LossAbsolute {
			if d < 0 {
				dst[i] = -1
			} else {
				dst[i] = 1
			}
			continue
		}
		dst[i] = 2 * d
	}
}

// loss returns the mean loss of F against y.
func (g *GBTRegressor) loss(y, F []float64) float64 {
	var s float64
	for i := range y {
		d := y[i] - F[i]
		if g.Loss == LossAbsolute {
			s += math.Abs(d)
		} else {
			s += d * d
		}
	}
	return s / float64(len(y))
}

// Fit runs MaxIter boosting iterations unless a callback stops it earlier.
func (g *GBTRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GBTRegressor.Fit")
	start := time.Now()

	if err := g.validate(); err != nil {
		return err
	}
	rows, cols, err := model.CheckFitInput("GBTRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	var validTarget []float64
	if g.validX != nil {
		_, vc, err := model.CheckFitInput("GBTRegressor.WithValidation", g.validX, g.validY)
		if err != nil {
			return err
		}
		if vc != cols {
			return errors.NewDimensionError("GBTRegressor.WithValidation", cols, vc, 1)
		}
		validTarget = column(g.validY)
	}

	binned, err := tree.NewBinned(X, g.MaxBins)
	if err != nil {
		return err
	}
	target := column(y)
	F := make([]float64, rows)
	validF := make([]float64, len(validTarget))
	labels := make([]float64, rows)

	all := make([]int, rows)
	for i := range all {
		all[i] = i
	}
	size := sampleSize(g.SubsamplingRate, rows)

	logger := log.GetLoggerWithName("ensemble")
	trees := make([]*tree.DecisionTreeRegressor, 0, g.MaxIter)
	weights := make([]float64, 0, g.MaxIter)
	env := &CallbackEnv{NumIterations: g.MaxIter, BestIteration: -1}

	for m := 0; m < g.MaxIter; m++ {
		weight := g.StepSize
		if m == 0 {
			copy(labels, target)
			weight = 1
		} else {
			g.negGradient(target, F, labels)
		}

		idx := all
		if size < rows {
			rng := rand.New(rand.NewPCG(g.Seed, uint64(m)))
			idx = sampleRows(rng, rows, size, false)
		}

		dt := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(g.MaxDepth),
			tree.WithMaxBins(g.MaxBins),
			tree.WithMinSamplesLeaf(g.MinInstancesPerNode),
			tree.WithMinImpurityDecrease(g.MinInfoGain),
		)
		if err := dt.FitIndices(binned, labels, idx, nil); err != nil {
			return errors.Wrapf(err, "boosting iteration %d", m)
		}
		dt.PredictInto(X, weight, F)
		trees = append(trees, dt)
		weights = append(weights, weight)

		env.Iteration = m
		trainLoss := g.loss(target, F)
		if err := errors.CheckScalar("GBTRegressor.Fit", trainLoss, m); err != nil {
			return err
		}
		env.EvalResults = map[string]float64{TrainLoss: trainLoss}
		if validTarget != nil {
			dt.PredictInto(g.validX, weight, validF)
			env.EvalResults[ValidLoss] = g.loss(validTarget, validF)
		}
		logger.Debug("Boosting iteration",
			log.IterationKey, m,
			log.LossKey, env.EvalResults[TrainLoss],
		)
		for _, cb := range g.callbacks {
			if err := cb(env); err != nil {
				return errors.Wrapf(err, "callback at iteration %d", m)
			}
		}
		if env.StopTraining {
			break
		}
	}

	if env.BestIteration >= 0 && env.BestIteration+1 < len(trees) {
		trees = trees[:env.BestIteration+1]
		weights = weights[:env.BestIteration+1]
	}

	g.trees = trees
	g.weights = weights
	g.nFeatures = cols
	g.trainError = env.EvalResults[TrainLoss]
	g.SetFitted()

	logger.Info("Gradient-boosted trees fitted",
		log.ModelNameKey, "GBTRegressor",
		log.EstimatorIDKey, g.ID(),
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.TreesKey, len(trees),
		log.LearningRateKey, g.StepSize,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns the weighted sum of the tree predictions for each row of X.
func (g *GBTRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GBTRegressor", "Predict")
	}
	rows, c := X.Dims()
	if c != g.nFeatures {
		return nil, errors.NewDimensionError("GBTRegressor.Predict", g.nFeatures, c, 1)
	}
	sum := make([]float64, rows)
	for m, t := range g.trees {
		t.PredictInto(X, g.weights[m], sum)
	}
	return mat.NewDense(rows, 1, sum), nil
}

// Score returns the R² of the predictions on X against y.
func (g *GBTRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := g.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(model.ToVec(y), model.ToVec(pred))
}

// NumTrees returns the number of trees kept after training.
func (g *GBTRegressor) NumTrees() int {
	return len(g.trees)
}

// TreeWeights returns the weight of each tree.
func (g *GBTRegressor) TreeWeights() []float64 {
	return append([]float64(nil), g.weights...)
}

// Trees returns the fitted trees.
func (g *GBTRegressor) Trees() []*tree.DecisionTreeRegressor {
	return append([]*tree.DecisionTreeRegressor(nil), g.trees...)
}

// TrainingLoss returns the mean training loss of the final model's last
// iteration.
func (g *GBTRegressor) TrainingLoss() float64 {
	return g.trainError
}

// FeatureImportances averages the tree importances and normalises to sum 1.
func (g *GBTRegressor) FeatureImportances() ([]float64, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GBTRegressor", "FeatureImportances")
	}
	return averageImportances(g.trees, g.nFeatures), nil
}

// GetParams returns the hyperparameters.
func (g *GBTRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_iter":               g.MaxIter,
		"step_size":              g.StepSize,
		"max_depth":              g.MaxDepth,
		"max_bins":               g.MaxBins,
		"min_instances_per_node": g.MinInstancesPerNode,
		"min_info_gain":          g.MinInfoGain,
		"loss":                   g.Loss,
		"subsampling_rate":       g.SubsamplingRate,
		"seed":                   g.Seed,
	}
}

// SetParams updates hyperparameters by name; on error nothing changes.
func (g *GBTRegressor) SetParams(params map[string]interface{}) error {
	next := *g
	for key, v := range params {
		var err error
		switch key {
		case "max_iter":
			next.MaxIter, err = model.IntParam(key, v)
		case "step_size":
			next.StepSize, err = model.FloatParam(key, v)
		case "max_depth":
			next.MaxDepth, err = model.IntParam(key, v)
		case "max_bins":
			next.MaxBins, err = model.IntParam(key, v)
		case "min_instances_per_node":
			next.MinInstancesPerNode, err = model.IntParam(key, v)
		case "min_info_gain":
			next.MinInfoGain, err = model.FloatParam(key, v)
		case "loss":
			next.Loss, err = model.StringParam(key, v)
		case "subsampling_rate":
			next.SubsamplingRate, err = model.FloatParam(key, v)
		case "seed":
			var s int
			s, err = model.IntParam(key, v)
			next.Seed = uint64(s)
		default:
			err = errors.NewValidationError(key, "unknown parameter", v)
		}
		if err != nil {
			return err
		}
	}
	if err := next.validate(); err != nil {
		return err
	}
	*g = next
	return nil
}
