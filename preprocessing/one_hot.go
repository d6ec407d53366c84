package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/co2ml/core/model"
	"github.com/YuminosukeSato/co2ml/dataset"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
	"github.com/YuminosukeSato/co2ml/pkg/log"
)

// OneHotEncoder はインデックス列をone-hotベクトル列に変換する
//
// With DropLast (the default) the last category is encoded as the all-zero
// vector, so k categories give vectors of width k-1.
type OneHotEncoder struct {
	model.BaseEstimator

	InputCol      string
	OutputCol     string
	DropLast      bool
	HandleInvalid string // "error" (default) or "keep"

	categories int
}

// OneHotOption configures a OneHotEncoder.
type OneHotOption func(*OneHotEncoder)

// WithDropLast sets whether the last category is dropped.
func WithDropLast(b bool) OneHotOption {
	return func(e *OneHotEncoder) { e.DropLast = b }
}

// WithEncoderHandleInvalid sets the treatment of indices outside the learned
// range. "keep" adds one extra category for them.
func WithEncoderHandleInvalid(mode string) OneHotOption {
	return func(e *OneHotEncoder) { e.HandleInvalid = mode }
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
func NewOneHotEncoder(inputCol, outputCol string, opts ...OneHotOption) *OneHotEncoder {
	e := &OneHotEncoder{
		InputCol:      inputCol,
		OutputCol:     outputCol,
		DropLast:      true,
		HandleInvalid: HandleInvalidError,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func checkIndex(col string, row int, v float64) (int, error) {
	if math.IsNaN(v) || v < 0 || v != math.Trunc(v) {
		return 0, errors.NewValueError("OneHotEncoder",
			fmt.Sprintf("column %q row %d: %v is not a category index", col, row, v))
	}
	return int(v), nil
}

// Fit はカテゴリ数（最大インデックス + 1）を学習する
func (e *OneHotEncoder) Fit(f *dataset.Frame) (err error) {
	defer errors.Recover(&err, "OneHotEncoder.Fit")

	if err := checkHandleInvalid("OneHotEncoder", e.HandleInvalid, HandleInvalidError, HandleInvalidKeep); err != nil {
		return err
	}
	values, err := f.Floats(e.InputCol)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	maxIdx := 0
	for i, v := range values {
		idx, err := checkIndex(e.InputCol, i, v)
		if err != nil {
			return err
		}
		maxIdx = max(maxIdx, idx)
	}
	e.categories = maxIdx + 1
	e.SetFitted()

	log.GetLoggerWithName("preprocessing.one_hot").Debug("Categories learned",
		log.OperationKey, log.OperationFit,
		log.EstimatorIDKey, e.ID(),
		log.ColumnKey, e.InputCol,
		log.CategoriesKey, e.categories,
		log.FeaturesKey, e.Width(),
	)
	return nil
}

// Categories returns the number of categories seen during Fit.
func (e *OneHotEncoder) Categories() int {
	return e.categories
}

// Width returns the width of the output vectors.
func (e *OneHotEncoder) Width() int {
	size := e.categories
	if e.HandleInvalid == HandleInvalidKeep {
		size++
	}
	if e.DropLast {
		size--
	}
	return max(size, 0)
}

// Transform はone-hotベクトル列を追加したFrameを返す
func (e *OneHotEncoder) Transform(f *dataset.Frame) (*dataset.Frame, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	values, err := f.Floats(e.InputCol)
	if err != nil {
		return nil, err
	}

	width := e.Width()
	data := make([]float64, len(values)*width)
	for i, v := range values {
		idx, err := checkIndex(e.InputCol, i, v)
		if err != nil {
			return nil, err
		}
		if idx >= e.categories {
			if e.HandleInvalid != HandleInvalidKeep {
				return nil, errors.NewValueError("OneHotEncoder.Transform",
					fmt.Sprintf("column %q row %d: index %d outside the %d learned categories", e.InputCol, i, idx, e.categories))
			}
			idx = e.categories
		}
		// the dropped category stays all zero
		if idx < width {
			data[i*width+idx] = 1
		}
	}
	return f.WithVectorData(e.OutputCol, width, data)
}

// GetParams returns the encoder's configuration.
func (e *OneHotEncoder) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"input_col":      e.InputCol,
		"output_col":     e.OutputCol,
		"drop_last":      e.DropLast,
		"handle_invalid": e.HandleInvalid,
	}
}
