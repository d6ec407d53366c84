// Package tree implements the CART regression tree used as the base learner
// of the random forest and gradient-boosted ensembles.
//
// Splits minimise the squared error of the children over histogram bins
// computed once per training matrix (see Binned), the way distributed tree
// learners evaluate continuous features.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/co2ml/core/model"
	"github.com/YuminosukeSato/co2ml/metrics"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
	"github.com/YuminosukeSato/co2ml/pkg/log"
)

var (
	_ model.Regressor          = (*DecisionTreeRegressor)(nil)
	_ model.ParameterGetter    = (*DecisionTreeRegressor)(nil)
	_ model.FeatureImportancer = (*DecisionTreeRegressor)(nil)
)

// node is one tree node; left < 0 marks a leaf.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
	samples   int
	impurity  float64
}

// DecisionTreeRegressor is a CART regressor with variance-reduction splits.
type DecisionTreeRegressor struct {
	state *model.StateManager

	// Hyperparameters
	maxDepth            int     // root depth = 0
	minSamplesSplit     int     // minimum samples to attempt a split
	minSamplesLeaf      int     // minimum samples in each child
	maxBins             int     // bins per feature when fitting from a matrix
	maxFeatures         int     // features tried per node, 0 => all
	minImpurityDecrease float64 // minimum mean squared error decrease of a split
	randomState         uint64  // seed for feature subsampling in Fit

	// Fitted tree
	nodes       []node
	importances []float64
	depth       int
	nLeaves     int
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

func WithMaxDepth(d int) Option {
	return func(t *DecisionTreeRegressor) { t.maxDepth = d }
}

func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.minSamplesSplit = n }
}

func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.minSamplesLeaf = n }
}

func WithMaxBins(n int) Option {
	return func(t *DecisionTreeRegressor) { t.maxBins = n }
}

func WithMaxFeatures(k int) Option {
	return func(t *DecisionTreeRegressor) { t.maxFeatures = k }
}

func WithRandomState(s uint64) Option {
	return func(t *DecisionTreeRegressor) { t.randomState = s }
}

func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeRegressor) { t.minImpurityDecrease = v }
}

// NewDecisionTreeRegressor returns a regressor with depth 5 and 32 bins.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		state:           model.NewStateManager(),
		maxDepth:        5,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxBins:         32,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *DecisionTreeRegressor) validate() error {
	switch {
	case t.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", t.maxDepth)
	case t.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be >= 2", t.minSamplesSplit)
	case t.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", t.minSamplesLeaf)
	case t.maxFeatures < 0:
		return errors.NewValidationError("max_features", "must be >= 0", t.maxFeatures)
	case t.minImpurityDecrease < 0:
		return errors.NewValidationError("min_impurity_decrease", "must be >= 0", t.minImpurityDecrease)
	}
	return nil
}

// Fit builds the tree from X and a single column y.
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	rows, cols, err := model.CheckFitInput("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	binned, err := NewBinned(X, t.maxBins)
	if err != nil {
		return err
	}
	target := make([]float64, rows)
	for i := range target {
		target[i] = y.At(i, 0)
	}
	idx := make([]int, rows)
	for i := range idx {
		idx[i] = i
	}

	rng := rand.New(rand.NewPCG(t.randomState, uint64(cols)))
	if err := t.FitIndices(binned, target, idx, rng); err != nil {
		return err
	}
	log.GetLoggerWithName("tree").Debug("Tree fitted",
		log.ModelNameKey, "DecisionTreeRegressor",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"depth", t.depth,
		"leaves", t.nLeaves,
	)
	return nil
}

// FitIndices builds the tree on the rows of b listed in rows, which may
// repeat. y is indexed by row of b. rng drives feature subsampling and may be
// nil when every feature is tried at each node.
func (t *DecisionTreeRegressor) FitIndices(b *Binned, y []float64, rows []int, rng *rand.Rand) error {
	if err := t.validate(); err != nil {
		return err
	}
	nRows, nCols := b.Dims()
	if len(y) != nRows {
		return errors.NewDimensionError("DecisionTreeRegressor.FitIndices", nRows, len(y), 0)
	}
	if len(rows) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.FitIndices", "empty data", errors.ErrEmptyData)
	}
	if t.maxFeatures > 0 && t.maxFeatures < nCols && rng == nil {
		return errors.NewValueError("DecisionTreeRegressor.FitIndices", "feature subsampling needs a random source")
	}

	bld := &builder{
		tree:     t,
		b:        b,
		y:        y,
		rng:      rng,
		gains:    make([]float64, nCols),
		counts:   make([]float64, MaxBinsLimit),
		sums:     make([]float64, MaxBinsLimit),
		sumSqs:   make([]float64, MaxBinsLimit),
		features: make([]int, nCols),
	}
	for j := range bld.features {
		bld.features[j] = j
	}

	t.nodes = t.nodes[:0]
	t.depth, t.nLeaves = 0, 0
	bld.grow(rows, 0)

	var total float64
	for _, g := range bld.gains {
		total += g
	}
	t.importances = make([]float64, nCols)
	if total > 0 {
		for j, g := range bld.gains {
			t.importances[j] = g / total
		}
	}

	t.state.SetFitted(nCols, len(rows))
	return nil
}

type builder struct {
	tree  *DecisionTreeRegressor
	b     *Binned
	y     []float64
	rng   *rand.Rand
	gains []float64

	counts, sums, sumSqs []float64
	features             []int
}

type split struct {
	feature int
	bin     int
	gain    float64
}

// grow adds the subtree for rows and returns its node index.
func (bld *builder) grow(rows []int, depth int) int {
	t := bld.tree
	var sum, sumSq float64
	for _, r := range rows {
		v := bld.y[r]
		sum += v
		sumSq += v * v
	}
	n := float64(len(rows))
	mean := sum / n
	sse := math.Max(sumSq-sum*sum/n, 0)

	id := len(t.nodes)
	t.nodes = append(t.nodes, node{left: -1, right: -1, value: mean, samples: len(rows), impurity: sse / n})
	t.depth = max(t.depth, depth)

	if depth >= t.maxDepth || len(rows) < t.minSamplesSplit || len(rows) < 2*t.minSamplesLeaf || sse <= 1e-12 {
		t.nLeaves++
		return id
	}

	best, ok := bld.bestSplit(rows, sum, sse)
	if !ok {
		t.nLeaves++
		return id
	}

	feat := bld.b.bins[best.feature]
	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, r := range rows {
		if int(feat[r]) <= best.bin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	bld.gains[best.feature] += best.gain

	l := bld.grow(left, depth+1)
	r := bld.grow(right, depth+1)
	nd := &t.nodes[id]
	nd.feature = best.feature
	nd.threshold = bld.b.thresholds[best.feature][best.bin]
	nd.left = l
	nd.right = r
	return id
}

// candidates returns the features to try at one node, in ascending order.
func (bld *builder) candidates() []int {
	k := bld.tree.maxFeatures
	if k <= 0 || k >= len(bld.features) {
		return bld.features
	}
	// partial Fisher-Yates over the shared slice
	for i := 0; i < k; i++ {
		j := i + bld.rng.IntN(len(bld.features)-i)
		bld.features[i], bld.features[j] = bld.features[j], bld.features[i]
	}
	chosen := append([]int(nil), bld.features[:k]...)
	sort.Ints(chosen)
	return chosen
}

func (bld *builder) bestSplit(rows []int, sum, sse float64) (split, bool) {
	t := bld.tree
	n := float64(len(rows))
	minLeaf := float64(t.minSamplesLeaf)
	best := split{gain: 0}
	found := false

	for _, j := range bld.candidates() {
		th := bld.b.thresholds[j]
		if len(th) == 0 {
			continue
		}
		nb := len(th) + 1
		counts, sums, sumSqs := bld.counts[:nb], bld.sums[:nb], bld.sumSqs[:nb]
		clear(counts)
		clear(sums)
		clear(sumSqs)

		feat := bld.b.bins[j]
		for _, r := range rows {
			k := feat[r]
			v := bld.y[r]
			counts[k]++
			sums[k] += v
			sumSqs[k] += v * v
		}

		var nl, sl, ssl float64
		for k := 0; k < len(th); k++ {
			nl += counts[k]
			sl += sums[k]
			ssl += sumSqs[k]
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			sr := sum - sl
			ssr := sse + sum*sum/n - ssl // total sum of squares minus left
			gain := sse - (ssl - sl*sl/nl) - (ssr - sr*sr/nr)
			if gain > best.gain+1e-12 {
				best = split{feature: j, bin: k, gain: gain}
				found = true
			}
		}
	}

	if !found || best.gain/n < t.minImpurityDecrease {
		return split{}, false
	}
	return best, true
}

// Predict returns one prediction per row of X as an (n, 1) matrix.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := t.state.CheckPredictInput("DecisionTreeRegressor", X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, t.predictRow(X, i))
	}
	return out, nil
}

// PredictInto adds weight times the prediction of each row of X to dst.
// Callers must have checked the input width.
func (t *DecisionTreeRegressor) PredictInto(X mat.Matrix, weight float64, dst []float64) {
	for i := range dst {
		dst[i] += weight * t.predictRow(X, i)
	}
}

func (t *DecisionTreeRegressor) predictRow(X mat.Matrix, i int) float64 {
	id := 0
	for {
		nd := &t.nodes[id]
		if nd.left < 0 {
			return nd.value
		}
		if X.At(i, nd.feature) <= nd.threshold {
			id = nd.left
		} else {
			id = nd.right
		}
	}
}

// Score returns the R² of the predictions on X against y.
func (t *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(model.ToVec(y), model.ToVec(pred))
}

// IsFitted reports whether the tree has been built.
func (t *DecisionTreeRegressor) IsFitted() bool {
	return t.state.IsFitted()
}

// GetDepth returns the depth of the deepest leaf; a single leaf has depth 0.
func (t *DecisionTreeRegressor) GetDepth() int {
	return t.depth
}

// GetNLeaves returns the number of leaves.
func (t *DecisionTreeRegressor) GetNLeaves() int {
	return t.nLeaves
}

// GetFeatureImportances returns the squared error reduction credited to each
// feature, normalised to sum to 1. All zeros for a single-leaf tree.
func (t *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), t.importances...)
}

// FeatureImportances implements model.FeatureImportancer.
func (t *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if err := t.state.RequireFitted("DecisionTreeRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	return t.GetFeatureImportances(), nil
}
