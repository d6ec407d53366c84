package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y is a single column.
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict returns one prediction per row of X as an (n, 1) matrix.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は学習と予測の両方を持つ教師あり学習モデル
type Estimator interface {
	Fitter
	Predictor
}
