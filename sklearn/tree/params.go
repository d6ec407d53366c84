package tree

import (
	"github.com/YuminosukeSato/co2ml/core/model"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

// GetParams returns the hyperparameters with scikit-learn style names.
func (t *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             "squared_error",
		"max_depth":             t.maxDepth,
		"min_samples_split":     t.minSamplesSplit,
		"min_samples_leaf":      t.minSamplesLeaf,
		"max_bins":              t.maxBins,
		"max_features":          t.maxFeatures,
		"min_impurity_decrease": t.minImpurityDecrease,
		"random_state":          t.randomState,
	}
}

// SetParams updates hyperparameters by name. Unknown names are rejected and
// leave the tree unchanged.
func (t *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	next := *t
	for key, v := range params {
		var err error
		switch key {
		case "criterion":
			var c string
			if c, err = model.StringParam(key, v); err == nil && c != "squared_error" {
				err = errors.NewValidationError(key, "only squared_error is supported", c)
			}
		case "max_depth":
			next.maxDepth, err = model.IntParam(key, v)
		case "min_samples_split":
			next.minSamplesSplit, err = model.IntParam(key, v)
		case "min_samples_leaf":
			next.minSamplesLeaf, err = model.IntParam(key, v)
		case "max_bins":
			next.maxBins, err = model.IntParam(key, v)
		case "max_features":
			next.maxFeatures, err = model.IntParam(key, v)
		case "min_impurity_decrease":
			next.minImpurityDecrease, err = model.FloatParam(key, v)
		case "random_state":
			var s int
			s, err = model.IntParam(key, v)
			next.randomState = uint64(s)
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
	*t = next
	return nil
}
