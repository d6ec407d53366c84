// Package preprocessing はカテゴリ列のエンコードと特徴量ベクトルの組み立てを提供する
//
// The stages operate on dataset.Frame values and never modify their input:
//
//	StringIndexer   string column  -> float index column
//	OneHotEncoder   index column   -> one-hot vector column
//	VectorAssembler numeric + vector columns -> single feature vector
//
// Pipeline fits the stages in order, feeding each stage the output of the
// previous one.
package preprocessing

import (
	"fmt"

	"github.com/YuminosukeSato/co2ml/dataset"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
	"github.com/YuminosukeSato/co2ml/pkg/log"
)

// Transformer はFrameを新しいFrameに変換する
type Transformer interface {
	Transform(f *dataset.Frame) (*dataset.Frame, error)
}

// Stage は学習可能なパイプラインのステップ
type Stage interface {
	Transformer
	// Fit learns the stage's state from f.
	Fit(f *dataset.Frame) error
}

// Pipeline はステージを順番に学習・適用する
type Pipeline struct {
	stages []Stage
}

// NewPipeline は与えられた順序でステージを持つPipelineを作成する
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: append([]Stage(nil), stages...)}
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// Fit はステージを順に学習し、学習済みのPipelineModelを返す
//
// パラメータ:
//   - f: 学習データ
//
// 戻り値:
//   - *PipelineModel: 学習済みステージを再生するモデル
//   - error: いずれかのステージの学習または変換に失敗した場合
func (p *Pipeline) Fit(f *dataset.Frame) (pm *PipelineModel, err error) {
	defer errors.Recover(&err, "Pipeline.Fit")

	if len(p.stages) == 0 {
		return nil, errors.NewValueError("Pipeline.Fit", "pipeline has no stages")
	}

	logger := log.GetLoggerWithName("preprocessing.pipeline")
	cur := f
	fitted := make([]Transformer, 0, len(p.stages))
	for i, st := range p.stages {
		if err := st.Fit(cur); err != nil {
			return nil, errors.Wrapf(err, "stage %d (%T)", i, st)
		}
		// the last stage's output is not needed to fit anything
		if i < len(p.stages)-1 {
			if cur, err = st.Transform(cur); err != nil {
				return nil, errors.Wrapf(err, "stage %d (%T)", i, st)
			}
		}
		fitted = append(fitted, st)
	}

	logger.Debug("Pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, f.Count(),
		"stages", len(fitted),
	)
	return &PipelineModel{stages: fitted}, nil
}

// PipelineModel は学習済みのステージ列
type PipelineModel struct {
	stages []Transformer
}

// Transform は全ステージを順に適用する
func (pm *PipelineModel) Transform(f *dataset.Frame) (*dataset.Frame, error) {
	cur := f
	for i, st := range pm.stages {
		next, err := st.Transform(cur)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %d (%T)", i, st)
		}
		cur = next
	}
	return cur, nil
}

// Stages returns the fitted stages.
func (pm *PipelineModel) Stages() []Transformer {
	return append([]Transformer(nil), pm.stages...)
}

type featureConfig struct {
	dropLast      bool
	handleInvalid string
}

// FeatureOption configures NewFeaturePipeline.
type FeatureOption func(*featureConfig)

// FeatureDropLast sets the drop-last convention of every one-hot encoder.
func FeatureDropLast(b bool) FeatureOption {
	return func(c *featureConfig) { c.dropLast = b }
}

// FeatureHandleInvalid sets how indexers and encoders treat unseen categories.
func FeatureHandleInvalid(mode string) FeatureOption {
	return func(c *featureConfig) { c.handleInvalid = mode }
}

// IndexCol and VectorCol name the intermediate columns of a categorical column.
func IndexCol(col string) string  { return col + "Index" }
func VectorCol(col string) string { return col + "classVec" }

// NewFeaturePipeline はカテゴリ列と数値列から特徴量ベクトルを作るPipelineを構築する
//
// 各カテゴリ列 c について StringIndexer(c -> cIndex) と
// OneHotEncoder(cIndex -> cclassVec) を追加し、最後に
// [cclassVec...] + numeric を featuresCol に連結する VectorAssembler を置く。
//
// 使用例:
//
//	p := preprocessing.NewFeaturePipeline(
//	    []string{"Make", "Fuel Type"},
//	    []string{"Engine Size(L)", "Cylinders"},
//	    "features",
//	)
//	pm, err := p.Fit(frame)
//	transformed, err := pm.Transform(frame)
func NewFeaturePipeline(categorical, numeric []string, featuresCol string, opts ...FeatureOption) *Pipeline {
	cfg := featureConfig{dropLast: true, handleInvalid: HandleInvalidError}
	for _, o := range opts {
		o(&cfg)
	}

	// encoders only know error and keep; skipped rows never reach them
	encoderMode := HandleInvalidError
	if cfg.handleInvalid == HandleInvalidKeep {
		encoderMode = HandleInvalidKeep
	}

	stages := make([]Stage, 0, 2*len(categorical)+1)
	inputs := make([]string, 0, len(categorical)+len(numeric))
	for _, col := range categorical {
		stages = append(stages,
			NewStringIndexer(col, IndexCol(col), WithHandleInvalid(cfg.handleInvalid)),
			NewOneHotEncoder(IndexCol(col), VectorCol(col), WithDropLast(cfg.dropLast), WithEncoderHandleInvalid(encoderMode)),
		)
		inputs = append(inputs, VectorCol(col))
	}
	inputs = append(inputs, numeric...)
	stages = append(stages, NewVectorAssembler(inputs, featuresCol))
	return NewPipeline(stages...)
}

// Handle invalid modes shared by StringIndexer and OneHotEncoder.
const (
	HandleInvalidError = "error"
	HandleInvalidKeep  = "keep"
	HandleInvalidSkip  = "skip"
)

func checkHandleInvalid(op, mode string, allowed ...string) error {
	for _, a := range allowed {
		if mode == a {
			return nil
		}
	}
	return errors.NewValidationError("handleInvalid", fmt.Sprintf("%s supports %v", op, allowed), mode)
}
