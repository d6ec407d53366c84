package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the coefficient of determination R^2 of the prediction.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Estimator
	Scorer
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}

// FeatureImportancer is implemented by tree based models.
type FeatureImportancer interface {
	// FeatureImportances returns one non-negative weight per input feature,
	// normalised to sum to 1 (all zeros when no split was made).
	FeatureImportances() ([]float64, error)
}

// ToVec copies a single column matrix or a single row matrix into a vector.
func ToVec(m mat.Matrix) *mat.VecDense {
	if v, ok := m.(*mat.VecDense); ok {
		return v
	}
	r, c := m.Dims()
	if c == 1 {
		out := mat.NewVecDense(r, nil)
		for i := 0; i < r; i++ {
			out.SetVec(i, m.At(i, 0))
		}
		return out
	}
	out := mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		out.SetVec(j, m.At(0, j))
	}
	return out
}
