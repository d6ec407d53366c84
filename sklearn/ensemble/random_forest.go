// Package ensemble provides the tree ensembles of the CO2 regression pipeline:
// a bagged random forest and gradient-boosted trees, both built from
// sklearn/tree regressors over one shared binned feature matrix.
package ensemble

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/co2ml/core/model"
	"github.com/YuminosukeSato/co2ml/core/parallel"
	"github.com/YuminosukeSato/co2ml/metrics"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
	"github.com/YuminosukeSato/co2ml/pkg/log"
	"github.com/YuminosukeSato/co2ml/sklearn/tree"
)

var (
	_ model.Regressor          = (*RandomForestRegressor)(nil)
	_ model.Regressor          = (*GBTRegressor)(nil)
	_ model.ParameterSetter    = (*RandomForestRegressor)(nil)
	_ model.ParameterSetter    = (*GBTRegressor)(nil)
	_ model.FeatureImportancer = (*RandomForestRegressor)(nil)
	_ model.FeatureImportancer = (*GBTRegressor)(nil)
)

// Feature subset strategies of the random forest.
const (
	SubsetAuto     = "auto"
	SubsetAll      = "all"
	SubsetSqrt     = "sqrt"
	SubsetLog2     = "log2"
	SubsetOneThird = "onethird"
)

// RandomForestRegressor averages regression trees fitted on random row samples
// with a random feature subset tried at every node.
type RandomForestRegressor struct {
	model.BaseEstimator

	// Hyperparameters
	NumTrees              int     // Number of trees
	MaxDepth              int     // Maximum depth of each tree (root = 0)
	MaxBins               int     // Bins per continuous feature
	MinInstancesPerNode   int     // Minimum rows in each child of a split
	MinInfoGain           float64 // Minimum squared error decrease per row of a split
	SubsamplingRate       float64 // Fraction of rows drawn per tree
	FeatureSubsetStrategy string  // auto, all, sqrt, log2 or onethird
	Bootstrap             bool    // Draw rows with replacement
	Seed                  uint64  // Random seed
	NumWorkers            int     // Trees fitted concurrently, <= 0 means NumCPU

	trees       []*tree.DecisionTreeRegressor
	importances []float64
	nFeatures   int
}

// NewRandomForestRegressor returns a forest of 5 trees on 80% samples.
func NewRandomForestRegressor() *RandomForestRegressor {
	return &RandomForestRegressor{
		NumTrees:              5,
		MaxDepth:              5,
		MaxBins:               32,
		MinInstancesPerNode:   1,
		SubsamplingRate:       0.8,
		FeatureSubsetStrategy: SubsetAuto,
		Bootstrap:             true,
	}
}

// WithNumTrees sets the number of trees
func (rf *RandomForestRegressor) WithNumTrees(n int) *RandomForestRegressor {
	rf.NumTrees = n
	return rf
}

// WithMaxDepth sets the maximum depth
func (rf *RandomForestRegressor) WithMaxDepth(d int) *RandomForestRegressor {
	rf.MaxDepth = d
	return rf
}

// WithMaxBins sets the number of bins per feature
func (rf *RandomForestRegressor) WithMaxBins(n int) *RandomForestRegressor {
	rf.MaxBins = n
	return rf
}

// WithSubsamplingRate sets the fraction of rows drawn per tree
func (rf *RandomForestRegressor) WithSubsamplingRate(r float64) *RandomForestRegressor {
	rf.SubsamplingRate = r
	return rf
}

// WithFeatureSubsetStrategy sets how many features each node tries
func (rf *RandomForestRegressor) WithFeatureSubsetStrategy(s string) *RandomForestRegressor {
	rf.FeatureSubsetStrategy = s
	return rf
}

// WithBootstrap sets sampling with or without replacement
func (rf *RandomForestRegressor) WithBootstrap(b bool) *RandomForestRegressor {
	rf.Bootstrap = b
	return rf
}

// WithSeed sets the random seed
func (rf *RandomForestRegressor) WithSeed(seed uint64) *RandomForestRegressor {
	rf.Seed = seed
	return rf
}

// WithNumWorkers bounds the number of trees fitted at once
func (rf *RandomForestRegressor) WithNumWorkers(n int) *RandomForestRegressor {
	rf.NumWorkers = n
	return rf
}

func (rf *RandomForestRegressor) validate() error {
	switch {
	case rf.NumTrees < 1:
		return errors.NewValidationError("num_trees", "must be >= 1", rf.NumTrees)
	case rf.MaxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", rf.MaxDepth)
	case rf.MaxBins < 2 || rf.MaxBins > tree.MaxBinsLimit:
		return errors.NewValidationError("max_bins", "must be in [2, 256]", rf.MaxBins)
	case rf.MinInstancesPerNode < 1:
		return errors.NewValidationError("min_instances_per_node", "must be >= 1", rf.MinInstancesPerNode)
	case rf.MinInfoGain < 0:
		return errors.NewValidationError("min_info_gain", "must be >= 0", rf.MinInfoGain)
	case !(rf.SubsamplingRate > 0 && rf.SubsamplingRate <= 1):
		return errors.NewValidationError("subsampling_rate", "must be in (0, 1]", rf.SubsamplingRate)
	}
	if _, err := featuresPerNode(rf.FeatureSubsetStrategy, 1, rf.NumTrees); err != nil {
		return err
	}
	return nil
}

// featuresPerNode resolves a subset strategy for nFeatures columns; 0 means
// all features.
func featuresPerNode(strategy string, nFeatures, numTrees int) (int, error) {
	n := float64(nFeatures)
	switch strategy {
	case SubsetAuto:
		if numTrees == 1 {
			return 0, nil
		}
		return int(math.Ceil(n / 3)), nil
	case SubsetAll:
		return 0, nil
	case SubsetOneThird:
		return int(math.Ceil(n / 3)), nil
	case SubsetSqrt:
		return int(math.Ceil(math.Sqrt(n))), nil
	case SubsetLog2:
		return max(1, int(math.Ceil(math.Log2(n)))), nil
	default:
		return 0, errors.NewValidationError("feature_subset_strategy", "must be auto, all, sqrt, log2 or onethird", strategy)
	}
}

// sampleRows draws size row indices out of n.
func sampleRows(rng *rand.Rand, n, size int, replace bool) []int {
	idx := make([]int, size)
	if replace {
		for i := range idx {
			idx[i] = rng.IntN(n)
		}
		return idx
	}
	copy(idx, rng.Perm(n)[:size])
	return idx
}

func sampleSize(rate float64, n int) int {
	return min(n, max(1, int(math.Round(rate*float64(n)))))
}

func column(y mat.Matrix) []float64 {
	r, _ := y.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = y.At(i, 0)
	}
	return out
}

// Fit trains NumTrees trees concurrently. Tree t draws its rows and its
// feature subsets from a stream seeded by (Seed, t), so the fitted forest
// only depends on the data and the hyperparameters.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")
	start := time.Now()

	if err := rf.validate(); err != nil {
		return err
	}
	rows, cols, err := model.CheckFitInput("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	binned, err := tree.NewBinned(X, rf.MaxBins)
	if err != nil {
		return err
	}
	target := column(y)
	k, _ := featuresPerNode(rf.FeatureSubsetStrategy, cols, rf.NumTrees)
	size := sampleSize(rf.SubsamplingRate, rows)

	trees := make([]*tree.DecisionTreeRegressor, rf.NumTrees)
	err = parallel.ForEach(rf.NumTrees, rf.NumWorkers, func(t int) error {
		rng := rand.New(rand.NewPCG(rf.Seed, uint64(t)))
		idx := sampleRows(rng, rows, size, rf.Bootstrap)
		dt := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(rf.MaxDepth),
			tree.WithMaxBins(rf.MaxBins),
			tree.WithMinSamplesLeaf(rf.MinInstancesPerNode),
			tree.WithMinImpurityDecrease(rf.MinInfoGain),
			tree.WithMaxFeatures(k),
		)
		if err := dt.FitIndices(binned, target, idx, rng); err != nil {
			return errors.Wrapf(err, "random forest tree %d", t)
		}
		trees[t] = dt
		return nil
	})
	if err != nil {
		return err
	}

	rf.trees = trees
	rf.importances = averageImportances(trees, cols)
	rf.nFeatures = cols
	rf.SetFitted()

	log.GetLoggerWithName("ensemble").Info("Random forest fitted",
		log.ModelNameKey, "RandomForestRegressor",
		log.EstimatorIDKey, rf.ID(),
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.TreesKey, len(trees),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// averageImportances は各木の重要度を平均し、合計1に正規化する
func averageImportances(trees []*tree.DecisionTreeRegressor, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	for _, t := range trees {
		for j, v := range t.GetFeatureImportances() {
			out[j] += v
		}
	}
	var total float64
	for _, v := range out {
		total += v
	}
	for j := range out {
		out[j] = errors.SafeDivide(out[j], total)
	}
	return out
}

func (rf *RandomForestRegressor) checkPredict(X mat.Matrix) error {
	if !rf.IsFitted() {
		return errors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	if _, c := X.Dims(); c != rf.nFeatures {
		return errors.NewDimensionError("RandomForestRegressor.Predict", rf.nFeatures, c, 1)
	}
	return nil
}

// Predict returns the mean tree prediction for each row of X.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.checkPredict(X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	sum := make([]float64, rows)
	w := 1 / float64(len(rf.trees))
	for _, t := range rf.trees {
		t.PredictInto(X, w, sum)
	}
	return mat.NewDense(rows, 1, sum), nil
}

// Score returns the R² of the predictions on X against y.
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(model.ToVec(y), model.ToVec(pred))
}

// Trees returns the fitted trees.
func (rf *RandomForestRegressor) Trees() []*tree.DecisionTreeRegressor {
	return append([]*tree.DecisionTreeRegressor(nil), rf.trees...)
}

// FeatureImportances returns the mean tree importances, normalised to sum 1.
func (rf *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "FeatureImportances")
	}
	return append([]float64(nil), rf.importances...), nil
}

// GetParams returns the hyperparameters.
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"num_trees":               rf.NumTrees,
		"max_depth":               rf.MaxDepth,
		"max_bins":                rf.MaxBins,
		"min_instances_per_node":  rf.MinInstancesPerNode,
		"min_info_gain":           rf.MinInfoGain,
		"subsampling_rate":        rf.SubsamplingRate,
		"feature_subset_strategy": rf.FeatureSubsetStrategy,
		"bootstrap":               rf.Bootstrap,
		"seed":                    rf.Seed,
	}
}

// SetParams updates hyperparameters by name; on error nothing changes.
func (rf *RandomForestRegressor) SetParams(params map[string]interface{}) error {
	next := *rf
	for key, v := range params {
		var err error
		switch key {
		case "num_trees":
			next.NumTrees, err = model.IntParam(key, v)
		case "max_depth":
			next.MaxDepth, err = model.IntParam(key, v)
		case "max_bins":
			next.MaxBins, err = model.IntParam(key, v)
		case "min_instances_per_node":
			next.MinInstancesPerNode, err = model.IntParam(key, v)
		case "min_info_gain":
			next.MinInfoGain, err = model.FloatParam(key, v)
		case "subsampling_rate":
			next.SubsamplingRate, err = model.FloatParam(key, v)
		case "feature_subset_strategy":
			next.FeatureSubsetStrategy, err = model.StringParam(key, v)
		case "bootstrap":
			next.Bootstrap, err = model.BoolParam(key, v)
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
	*rf = next
	return nil
}
