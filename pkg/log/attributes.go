// Package log defines standard attribute keys for pipeline operations.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that runs can be filtered and aggregated by whatever ingests the logs.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of estimator or transformer.
	// Examples: "RandomForestRegressor", "GBTRegressor", "StringIndexer"
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies one fitted instance (a cuid per Fit call).
	EstimatorIDKey = "estimator.id"

	// RunIDKey identifies one end-to-end pipeline run.
	RunIDKey = "run.id"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"

	// StepKey names the pipeline step ("load", "clean", "encode", ...).
	StepKey = "pipeline.step"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the width of the feature vector.
	FeaturesKey = "data.features"

	// ColumnKey names the column an operation applies to.
	ColumnKey = "data.column"

	// CategoriesKey records the number of distinct labels of a categorical column.
	CategoriesKey = "data.categories"

	// SourceKey records where a dataset was read from.
	SourceKey = "data.source"

	// DroppedKey records how many rows an operation removed.
	DroppedKey = "data.dropped"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records the training loss after a boosting iteration.
	LossKey = "metrics.loss"

	// R2ScoreKey records R² coefficient of determination for regression.
	// Range [-∞, 1.0], with 1.0 being perfect prediction.
	R2ScoreKey = "metrics.r2_score"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"

	// MAEKey records mean absolute error.
	MAEKey = "metrics.mae"

	// ResidualMeanKey records the mean residual over the test subset.
	ResidualMeanKey = "metrics.residual_mean"

	// IterationKey records the current boosting iteration.
	IterationKey = "training.iteration"

	// TreesKey records how many trees an ensemble holds.
	TreesKey = "training.trees"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// LearningRateKey records the boosting step size.
	LearningRateKey = "hyperparams.learning_rate"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// ConfigFileKey records the configuration file a run was started with.
	ConfigFileKey = "config.file"
)

// Standard attribute values.
const (
	OperationLoad      = "load"
	OperationClean     = "clean"
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationSplit     = "split"
	OperationScore     = "score"
	OperationInspect   = "inspect"

	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorSchema            = "SCHEMA"
)
