package preprocessing

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/co2ml/core/model"
	"github.com/YuminosukeSato/co2ml/dataset"
	"github.com/YuminosukeSato/co2ml/pkg/errors"
	"github.com/YuminosukeSato/co2ml/pkg/log"
)

// Label orderings supported by StringIndexer.
const (
	FrequencyDesc = "frequencyDesc"
	FrequencyAsc  = "frequencyAsc"
	AlphabetDesc  = "alphabetDesc"
	AlphabetAsc   = "alphabetAsc"
)

// StringIndexer は文字列カテゴリを整数インデックスに写像する
//
// The default ordering gives index 0 to the most frequent label; labels with
// equal counts keep the order in which they first appear in the data.
type StringIndexer struct {
	model.BaseEstimator

	InputCol        string
	OutputCol       string
	HandleInvalid   string // "error" (default), "keep" or "skip"
	StringOrderType string // default FrequencyDesc

	labels []string
	index  map[string]int
}

// IndexerOption configures a StringIndexer.
type IndexerOption func(*StringIndexer)

// WithHandleInvalid sets the treatment of labels unseen during Fit.
func WithHandleInvalid(mode string) IndexerOption {
	return func(s *StringIndexer) { s.HandleInvalid = mode }
}

// WithStringOrderType sets the label ordering.
func WithStringOrderType(order string) IndexerOption {
	return func(s *StringIndexer) { s.StringOrderType = order }
}

// NewStringIndexer は新しいStringIndexerを作成する
//
// パラメータ:
//   - inputCol: 文字列カテゴリ列
//   - outputCol: 出力するインデックス列（float）
func NewStringIndexer(inputCol, outputCol string, opts ...IndexerOption) *StringIndexer {
	s := &StringIndexer{
		InputCol:        inputCol,
		OutputCol:       outputCol,
		HandleInvalid:   HandleInvalidError,
		StringOrderType: FrequencyDesc,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Fit はラベルの順序を学習する
func (s *StringIndexer) Fit(f *dataset.Frame) (err error) {
	defer errors.Recover(&err, "StringIndexer.Fit")

	if err := checkHandleInvalid("StringIndexer", s.HandleInvalid, HandleInvalidError, HandleInvalidKeep, HandleInvalidSkip); err != nil {
		return err
	}
	values, err := f.Strings(s.InputCol)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return errors.NewModelError("StringIndexer.Fit", "empty data", errors.ErrEmptyData)
	}

	counts := map[string]int{}
	var firstSeen []string
	for _, v := range values {
		if _, ok := counts[v]; !ok {
			firstSeen = append(firstSeen, v)
		}
		counts[v]++
	}

	labels := append([]string(nil), firstSeen...)
	switch s.StringOrderType {
	case FrequencyDesc:
		sort.SliceStable(labels, func(i, j int) bool { return counts[labels[i]] > counts[labels[j]] })
	case FrequencyAsc:
		sort.SliceStable(labels, func(i, j int) bool { return counts[labels[i]] < counts[labels[j]] })
	case AlphabetAsc:
		sort.Strings(labels)
	case AlphabetDesc:
		sort.Sort(sort.Reverse(sort.StringSlice(labels)))
	default:
		return errors.NewValidationError("stringOrderType", "unknown ordering", s.StringOrderType)
	}

	s.labels = labels
	s.index = make(map[string]int, len(labels))
	for i, l := range labels {
		s.index[l] = i
	}
	s.SetFitted()

	log.GetLoggerWithName("preprocessing.string_indexer").Debug("Labels indexed",
		log.OperationKey, log.OperationFit,
		log.EstimatorIDKey, s.ID(),
		log.ColumnKey, s.InputCol,
		log.CategoriesKey, len(labels),
		log.SamplesKey, len(values),
	)
	return nil
}

// Labels returns the learned labels; label i maps to index i.
func (s *StringIndexer) Labels() []string {
	return append([]string(nil), s.labels...)
}

// Transform はインデックス列を追加したFrameを返す
//
// Unseen labels fail with a ValueError, map to len(Labels()) with "keep", or
// drop the row with "skip".
func (s *StringIndexer) Transform(f *dataset.Frame) (*dataset.Frame, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StringIndexer", "Transform")
	}
	values, err := f.Strings(s.InputCol)
	if err != nil {
		return nil, err
	}

	out := make([]float64, 0, len(values))
	var keep []int
	for i, v := range values {
		idx, ok := s.index[v]
		if !ok {
			switch s.HandleInvalid {
			case HandleInvalidKeep:
				idx = len(s.labels)
			case HandleInvalidSkip:
				continue
			default:
				return nil, errors.NewValueError("StringIndexer.Transform",
					fmt.Sprintf("unseen label %q in column %q at row %d", v, s.InputCol, i))
			}
		}
		out = append(out, float64(idx))
		keep = append(keep, i)
	}

	if len(keep) != len(values) {
		f = f.Subset(keep)
	}
	return f.WithFloats(s.OutputCol, out)
}

// GetParams returns the indexer's configuration.
func (s *StringIndexer) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"input_col":         s.InputCol,
		"output_col":        s.OutputCol,
		"handle_invalid":    s.HandleInvalid,
		"string_order_type": s.StringOrderType,
	}
}
