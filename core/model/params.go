package model

import (
	"fmt"
	"math"

	co2errors "github.com/YuminosukeSato/co2ml/pkg/errors"
)

// IntParam reads an integer hyperparameter. JSON and viper decode numbers as
// float64, so integral floats are accepted.
func IntParam(key string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), nil
		}
	}
	return 0, co2errors.NewValidationError(key, "must be an integer", v)
}

// FloatParam reads a float hyperparameter.
func FloatParam(key string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, co2errors.NewValidationError(key, "must be a number", v)
}

// StringParam reads a string hyperparameter.
func StringParam(key string, v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", co2errors.NewValidationError(key, fmt.Sprintf("must be a string, got %T", v), v)
}

// BoolParam reads a boolean hyperparameter.
func BoolParam(key string, v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, co2errors.NewValidationError(key, "must be a boolean", v)
}
