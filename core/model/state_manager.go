// Package model provides the estimator interfaces and fitted-state helpers
// shared by the regressors and feature stages.
package model

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	co2errors "github.com/YuminosukeSato/co2ml/pkg/errors"
)

// StateManager manages the fitted state of a model in a thread-safe manner.
// Regressors compose it to remember the input width seen during Fit.
type StateManager struct {
	mu        sync.RWMutex
	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the model as fitted with the dimensions of its training data.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// GetDimensions returns the number of features and samples seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError naming modelName and method if the
// model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return co2errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// CheckPredictInput verifies the model is fitted and X has the training width.
func (s *StateManager) CheckPredictInput(modelName string, X mat.Matrix) error {
	if err := s.RequireFitted(modelName, "Predict"); err != nil {
		return err
	}
	_, c := X.Dims()
	nFeatures, _ := s.GetDimensions()
	if c != nFeatures {
		return co2errors.NewDimensionError(modelName+".Predict", nFeatures, c, 1)
	}
	return nil
}

// CheckFitInput validates X and y for Fit: non-empty, one target column and
// matching row counts.
func CheckFitInput(op string, X, y mat.Matrix) (rows, cols int, err error) {
	rows, cols = X.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, co2errors.NewModelError(op, "empty data", co2errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yCols != 1 {
		return 0, 0, co2errors.NewDimensionError(op, 1, yCols, 1)
	}
	if yRows != rows {
		return 0, 0, co2errors.NewDimensionError(op, rows, yRows, 0)
	}
	return rows, cols, nil
}
