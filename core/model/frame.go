package model

import (
	"github.com/YuminosukeSato/co2ml/dataset"
)

// PredictFrame runs p on the vector column featuresCol of f and returns f with
// the predictions added as the float column predictionCol.
func PredictFrame(p Predictor, f *dataset.Frame, featuresCol, predictionCol string) (*dataset.Frame, error) {
	X, err := f.Vector(featuresCol)
	if err != nil {
		return nil, err
	}
	pred, err := p.Predict(X)
	if err != nil {
		return nil, err
	}
	return f.WithFloats(predictionCol, ToVec(pred).RawVector().Data)
}
