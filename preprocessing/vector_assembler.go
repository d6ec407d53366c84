package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/co2ml/dataset"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

// VectorAssembler は数値列とベクトル列を1つの特徴量ベクトルに連結する
//
// Columns are concatenated in the listed order. It is stateless; Fit only
// checks that the input columns exist.
type VectorAssembler struct {
	InputCols []string
	OutputCol string
}

// NewVectorAssembler は新しいVectorAssemblerを作成する
func NewVectorAssembler(inputCols []string, outputCol string) *VectorAssembler {
	return &VectorAssembler{
		InputCols: append([]string(nil), inputCols...),
		OutputCol: outputCol,
	}
}

// Fit implements Stage.
func (a *VectorAssembler) Fit(f *dataset.Frame) error {
	_, err := a.Width(f)
	return err
}

// Width returns the length of the assembled vector for f.
func (a *VectorAssembler) Width(f *dataset.Frame) (int, error) {
	width := 0
	for _, col := range a.InputCols {
		k, err := f.Kind(col)
		if err != nil {
			return 0, err
		}
		switch k {
		case dataset.KindVector:
			w, _ := f.VectorWidth(col)
			width += w
		case dataset.KindFloat, dataset.KindInt:
			width++
		default:
			return 0, errors.NewSchemaError(col, fmt.Sprintf("cannot assemble a %s column", k))
		}
	}
	return width, nil
}

// Transform は連結したベクトル列を追加したFrameを返す
func (a *VectorAssembler) Transform(f *dataset.Frame) (*dataset.Frame, error) {
	width, err := a.Width(f)
	if err != nil {
		return nil, err
	}
	n := f.Count()
	data := make([]float64, n*width)

	offset := 0
	for _, col := range a.InputCols {
		k, _ := f.Kind(col)
		if k == dataset.KindVector {
			w, block, _ := f.VectorData(col)
			for i := 0; i < n; i++ {
				copy(data[i*width+offset:i*width+offset+w], block[i*w:(i+1)*w])
			}
			offset += w
			continue
		}

		vals, _ := f.Floats(col)
		for i, v := range vals {
			if math.IsNaN(v) {
				return nil, errors.NewValueError("VectorAssembler.Transform",
					fmt.Sprintf("null value in column %q at row %d", col, i))
			}
			data[i*width+offset] = v
		}
		offset++
	}
	return f.WithVectorData(a.OutputCol, width, data)
}
