package ensemble

import (
	"math"

	"github.com/YuminosukeSato/co2ml/pkg/errors"
	"github.com/YuminosukeSato/co2ml/pkg/log"
)

// Evaluation result names reported to callbacks.
const (
	TrainLoss = "train-loss"
	ValidLoss = "valid-loss"
)

// CallbackEnv is passed to every callback after a boosting iteration.
type CallbackEnv struct {
	Iteration     int // 0-based index of the tree just added
	NumIterations int // MaxIter of the run
	EvalResults   map[string]float64

	// StopTraining ends boosting after the current iteration.
	StopTraining bool
	// BestIteration, when >= 0 at the end of training, truncates the model to
	// trees 0..BestIteration.
	BestIteration int
}

// Callback is called after each boosting iteration.
type Callback func(env *CallbackEnv) error

// RecordEvaluation records evaluation history
func RecordEvaluation(history *map[string][]float64) Callback {
	return func(env *CallbackEnv) error {
		if *history == nil {
			*history = make(map[string][]float64)
		}
		for name, value := range env.EvalResults {
			(*history)[name] = append((*history)[name], value)
		}
		return nil
	}
}

// EarlyStopping stops boosting once the validation loss has failed to improve
// for rounds consecutive iterations. An iteration improves on the best loss
// only when it lowers it by more than tol*max(loss, 0.01). The model is then
// truncated to the best iteration. It requires WithValidation.
func EarlyStopping(rounds int, tol float64) Callback {
	best := math.Inf(1)
	bestIteration := -1
	noImprove := 0

	return func(env *CallbackEnv) error {
		value, ok := env.EvalResults[ValidLoss]
		if !ok {
			return errors.NewValueError("EarlyStopping", "no validation set; use WithValidation")
		}
		if env.Iteration == 0 {
			best, bestIteration, noImprove = math.Inf(1), -1, 0
		}

		if best-value > tol*math.Max(value, 0.01) {
			best = value
			bestIteration = env.Iteration
			noImprove = 0
		} else {
			noImprove++
		}
		env.BestIteration = bestIteration

		if noImprove >= rounds {
			log.GetLoggerWithName("ensemble").Info("Early stopping",
				log.IterationKey, env.Iteration,
				"best_iteration", bestIteration,
				log.LossKey, best,
			)
			env.StopTraining = true
		}
		return nil
	}
}

// LogEvaluation logs the evaluation results every period iterations.
func LogEvaluation(logger log.Logger, period int) Callback {
	if period < 1 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if env.Iteration%period != 0 && env.Iteration != env.NumIterations-1 {
			return nil
		}
		args := []any{log.IterationKey, env.Iteration}
		for _, name := range []string{TrainLoss, ValidLoss} {
			if v, ok := env.EvalResults[name]; ok {
				args = append(args, name, v)
			}
		}
		logger.Debug("Boosting iteration", args...)
		return nil
	}
}
