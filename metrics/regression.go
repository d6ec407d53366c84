// Package metrics は回帰モデルの評価指標を提供する
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

// checkPair validates a (yTrue, yPred) pair and returns its length.
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// residuals returns yTrue - yPred as a fresh slice.
func residuals(yTrue, yPred *mat.VecDense) []float64 {
	n := yTrue.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = yTrue.AtVec(i) - yPred.AtVec(i)
	}
	return out
}

// values copies v into a slice.
func values(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	// MSE = (1/n) * Σ(yTrue - yPred)²
	r := residuals(yTrue, yPred)
	return floats.Dot(r, r) / float64(n), nil
}

// MSEMatrix は行列形式の入力に対してMSEを計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("MSEMatrix", "empty matrix")
	}
	if rTrue != rPred || cTrue != cPred {
		return 0, errors.NewDimensionError("MSEMatrix", rTrue, rPred, 0)
	}
	if cTrue != 1 {
		return 0, errors.NewValueError("MSEMatrix", "must be a column vector (n×1 matrix)")
	}

	return MSE(mat.VecDenseCopyOf(colOf(yTrue)), mat.VecDenseCopyOf(colOf(yPred)))
}

func colOf(m mat.Matrix) mat.Vector {
	if cv, ok := m.(mat.ColViewer); ok {
		return cv.ColView(0)
	}
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	r := residuals(yTrue, yPred)
	return floats.Norm(r, 1) / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
//
// R² = 1 - RSS/TSS. The result is at most 1 and equals 1 only when every
// prediction matches its label. A target without variance has no defined R²;
// the returned error matches ErrUndefinedMetric and an UndefinedMetricWarning
// is emitted.
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yMean := stat.Mean(values(yTrue), nil)

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := 0; i < n; i++ {
		d := yTrue.AtVec(i) - yMean
		e := yTrue.AtVec(i) - yPred.AtVec(i)
		tss += d * d
		rss += e * e
	}

	if tss == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("r2", "no variance in yTrue", math.NaN()))
		return math.NaN(), errors.Wrapf(errors.ErrUndefinedMetric, "R2Score: total sum of squares is zero over %d samples", n)
	}

	return 1 - rss/tss, nil
}

// ExplainedVarianceScore は説明分散スコアを計算する
//
// 1 - Var(yTrue - yPred) / Var(yTrue), population variances.
func ExplainedVarianceScore(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := checkPair("ExplainedVarianceScore", yTrue, yPred); err != nil {
		return 0, err
	}

	_, varTrue := stat.PopMeanVariance(values(yTrue), nil)
	_, varDiff := stat.PopMeanVariance(residuals(yTrue, yPred), nil)

	if varTrue == 0 {
		return math.NaN(), errors.Wrapf(errors.ErrUndefinedMetric, "ExplainedVarianceScore: no variance in yTrue")
	}
	return 1 - varDiff/varTrue, nil
}
