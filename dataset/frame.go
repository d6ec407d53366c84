// Package dataset holds the immutable tabular Frame the pipeline steps pass to
// each other, together with loading, cleaning and splitting.
//
// Scalar columns live in a gota DataFrame. Vector valued columns, such as a
// one-hot block or an assembled feature vector, are kept beside it as row-major
// float blocks with a fixed width. Every method returns a new Frame and leaves
// the receiver untouched.
package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/co2ml/pkg/errors"
)

// Kind describes how a column is stored.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindVector
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindVector:
		return "vector"
	default:
		return "unknown"
	}
}

func kindOf(t series.Type) Kind {
	switch t {
	case series.Int:
		return KindInt
	case series.Float:
		return KindFloat
	case series.Bool:
		return KindBool
	default:
		return KindString
	}
}

// block is a vector column: rows*width values, row-major.
type block struct {
	width int
	data  []float64
}

func (b block) row(i int) []float64 {
	return b.data[i*b.width : (i+1)*b.width]
}

// Frame is an immutable table of scalar and vector columns.
type Frame struct {
	df      dataframe.DataFrame
	vectors map[string]block
	order   []string
	rows    int
}

// FromDataFrame wraps a gota DataFrame. The DataFrame must not be modified
// afterwards.
func FromDataFrame(df dataframe.DataFrame) (*Frame, error) {
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "dataset: invalid dataframe")
	}
	return &Frame{
		df:      df,
		vectors: map[string]block{},
		order:   df.Names(),
		rows:    df.Nrow(),
	}, nil
}

// New builds a Frame from gota series of equal length.
func New(cols ...series.Series) (*Frame, error) {
	return FromDataFrame(dataframe.New(cols...))
}

// Count returns the number of rows.
func (f *Frame) Count() int {
	return f.rows
}

// Columns returns every column name, scalar and vector, in source order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// HasColumn reports whether name is a column of f.
func (f *Frame) HasColumn(name string) bool {
	for _, c := range f.order {
		if c == name {
			return true
		}
	}
	return false
}

// Kind returns how column name is stored.
func (f *Frame) Kind(name string) (Kind, error) {
	if _, ok := f.vectors[name]; ok {
		return KindVector, nil
	}
	if !f.isScalar(name) {
		return 0, errors.NewSchemaError(name, "not found")
	}
	return kindOf(f.df.Col(name).Type()), nil
}

func (f *Frame) isScalar(name string) bool {
	for _, c := range f.df.Names() {
		if c == name {
			return true
		}
	}
	return false
}

// DataFrame returns the scalar columns as a gota DataFrame.
func (f *Frame) DataFrame() dataframe.DataFrame {
	return f.df.Copy()
}

// Strings returns the textual values of a scalar column. Numeric columns are
// formatted, which emits a DataConversionWarning.
func (f *Frame) Strings(name string) ([]string, error) {
	if _, ok := f.vectors[name]; ok {
		return nil, errors.NewSchemaError(name, "vector column has no string form")
	}
	if !f.isScalar(name) {
		return nil, errors.NewSchemaError(name, "not found")
	}
	s := f.df.Col(name)
	switch s.Type() {
	case series.String:
		return s.Records(), nil
	case series.Float:
		errors.Warn(errors.NewDataConversionWarning(name, "float", "string"))
		vals := s.Float()
		out := make([]string, len(vals))
		for i, v := range vals {
			out[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return out, nil
	default:
		errors.Warn(errors.NewDataConversionWarning(name, kindOf(s.Type()).String(), "string"))
		return s.Records(), nil
	}
}

// Floats returns the values of an int or float column.
func (f *Frame) Floats(name string) ([]float64, error) {
	k, err := f.Kind(name)
	if err != nil {
		return nil, err
	}
	if k != KindFloat && k != KindInt {
		return nil, errors.NewSchemaError(name, fmt.Sprintf("expected a numeric column, got %s", k))
	}
	return f.df.Col(name).Float(), nil
}

// VectorData returns the width and the row-major values of a vector column.
// The returned slice is a copy.
func (f *Frame) VectorData(name string) (width int, data []float64, err error) {
	b, ok := f.vectors[name]
	if !ok {
		if f.isScalar(name) {
			return 0, nil, errors.NewSchemaError(name, "expected a vector column")
		}
		return 0, nil, errors.NewSchemaError(name, "not found")
	}
	out := make([]float64, len(b.data))
	copy(out, b.data)
	return b.width, out, nil
}

// Vector returns a vector column as a (rows, width) matrix.
func (f *Frame) Vector(name string) (*mat.Dense, error) {
	width, data, err := f.VectorData(name)
	if err != nil {
		return nil, err
	}
	if f.rows == 0 || width == 0 {
		return nil, errors.NewModelError("Frame.Vector", "empty data", errors.ErrEmptyData)
	}
	return mat.NewDense(f.rows, width, data), nil
}

// VectorWidth returns the width of a vector column.
func (f *Frame) VectorWidth(name string) (int, error) {
	b, ok := f.vectors[name]
	if !ok {
		return 0, errors.NewSchemaError(name, "expected a vector column")
	}
	return b.width, nil
}

func (f *Frame) cloneVectors() map[string]block {
	out := make(map[string]block, len(f.vectors))
	for k, v := range f.vectors {
		out[k] = v
	}
	return out
}

func (f *Frame) withOrder(name string) []string {
	if f.HasColumn(name) {
		return f.Columns()
	}
	return append(f.Columns(), name)
}

// WithFloats returns a Frame with a float column added, or replaced when
// name already exists.
func (f *Frame) WithFloats(name string, values []float64) (*Frame, error) {
	if len(values) != f.rows {
		return nil, errors.NewDimensionError("Frame.WithFloats", f.rows, len(values), 0)
	}
	vectors := f.cloneVectors()
	delete(vectors, name)

	col := series.New(values, series.Float, name)
	var df dataframe.DataFrame
	if f.df.Ncol() == 0 {
		df = dataframe.New(col)
	} else {
		df = f.df.Mutate(col)
	}
	if df.Err != nil {
		return nil, errors.Wrapf(df.Err, "dataset: add column %q", name)
	}
	return &Frame{df: df, vectors: vectors, order: f.withOrder(name), rows: f.rows}, nil
}

// WithVectorData returns a Frame with a vector column of the given width;
// data is row-major and must hold Count()*width values.
func (f *Frame) WithVectorData(name string, width int, data []float64) (*Frame, error) {
	if width < 0 {
		return nil, errors.NewValueError("Frame.WithVectorData", "negative width")
	}
	if len(data) != f.rows*width {
		return nil, errors.NewDimensionError("Frame.WithVectorData", f.rows*width, len(data), 0)
	}
	df := f.df
	if f.isScalar(name) {
		df = f.df.Drop(name)
		if df.Err != nil {
			return nil, errors.Wrapf(df.Err, "dataset: replace column %q", name)
		}
	}
	vectors := f.cloneVectors()
	vectors[name] = block{width: width, data: append([]float64(nil), data...)}
	return &Frame{df: df, vectors: vectors, order: f.withOrder(name), rows: f.rows}, nil
}

// WithVector returns a Frame with a vector column taken from the rows of m.
func (f *Frame) WithVector(name string, m mat.Matrix) (*Frame, error) {
	r, c := m.Dims()
	if r != f.rows {
		return nil, errors.NewDimensionError("Frame.WithVector", f.rows, r, 0)
	}
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return f.WithVectorData(name, c, data)
}

// Select projects f onto the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	var scalars []string
	vectors := map[string]block{}
	for _, n := range names {
		switch {
		case f.isScalar(n):
			scalars = append(scalars, n)
		case f.hasVector(n):
			vectors[n] = f.vectors[n]
		default:
			return nil, errors.NewSchemaError(n, "not found")
		}
	}

	var df dataframe.DataFrame
	if len(scalars) == 0 {
		df = dataframe.DataFrame{}
	} else {
		df = f.df.Select(scalars)
		if df.Err != nil {
			return nil, errors.Wrap(df.Err, "dataset: select")
		}
	}
	order := append([]string(nil), names...)
	return &Frame{df: df, vectors: vectors, order: order, rows: f.rows}, nil
}

func (f *Frame) hasVector(name string) bool {
	_, ok := f.vectors[name]
	return ok
}

// Subset returns the rows at the given indices, in that order.
func (f *Frame) Subset(rows []int) *Frame {
	var df dataframe.DataFrame
	switch {
	case f.df.Ncol() == 0:
		df = f.df
	case len(rows) == 0:
		df = emptyLike(f.df)
	default:
		df = f.df.Subset(rows)
	}

	vectors := make(map[string]block, len(f.vectors))
	for name, b := range f.vectors {
		data := make([]float64, 0, len(rows)*b.width)
		for _, r := range rows {
			data = append(data, b.row(r)...)
		}
		vectors[name] = block{width: b.width, data: data}
	}
	return &Frame{df: df, vectors: vectors, order: f.Columns(), rows: len(rows)}
}

// emptyLike returns a zero-row DataFrame with the columns and types of df.
func emptyLike(df dataframe.DataFrame) dataframe.DataFrame {
	names := df.Names()
	types := df.Types()
	cols := make([]series.Series, len(names))
	for i, name := range names {
		cols[i] = series.New([]string{}, types[i], name)
	}
	return dataframe.New(cols...)
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	n = max(0, min(n, f.rows))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return f.Subset(idx)
}

// DropNA removes every row holding a null in any scalar column. Vector
// columns never hold nulls. When no row has a null, f itself is returned.
func (f *Frame) DropNA() *Frame {
	if f.rows == 0 || f.df.Ncol() == 0 {
		return f
	}
	bad := make([]bool, f.rows)
	dropped := 0
	for _, name := range f.df.Names() {
		for i, isNA := range f.df.Col(name).IsNaN() {
			if isNA && !bad[i] {
				bad[i] = true
				dropped++
			}
		}
	}
	if dropped == 0 {
		return f
	}
	keep := make([]int, 0, f.rows-dropped)
	for i, b := range bad {
		if !b {
			keep = append(keep, i)
		}
	}
	return f.Subset(keep)
}

// Cell formats the value at row i of column name for display. Vector values
// are rendered as "[a, b, ...]".
func (f *Frame) Cell(i int, name string) (string, error) {
	if i < 0 || i >= f.rows {
		return "", errors.NewValueError("Frame.Cell", fmt.Sprintf("row %d out of range [0, %d)", i, f.rows))
	}
	if b, ok := f.vectors[name]; ok {
		parts := make([]string, b.width)
		for j, v := range b.row(i) {
			parts[j] = strconv.FormatFloat(v, 'g', 6, 64)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}
	if !f.isScalar(name) {
		return "", errors.NewSchemaError(name, "not found")
	}
	e := f.df.Col(name).Elem(i)
	if e.IsNA() {
		return "null", nil
	}
	if e.Type() == series.Float {
		return strconv.FormatFloat(e.Float(), 'g', -1, 64), nil
	}
	return e.String(), nil
}
