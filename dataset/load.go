package dataset

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/co2ml/pkg/errors"
	"github.com/YuminosukeSato/co2ml/pkg/log"
)

// LoadOptions controls how a delimited file is parsed.
type LoadOptions struct {
	Delimiter rune
	// Header treats the first record as column names. Without it columns are
	// named X0, X1, ...
	Header bool
	// InferSchema detects int, float and bool columns. When false every
	// column is read as a string.
	InferSchema bool
	// NullValues are the cell texts read as null.
	NullValues []string
}

// LoadOption configures Load and Read.
type LoadOption func(*LoadOptions)

// DefaultLoadOptions returns comma separated, header, schema inference and
// the usual null spellings.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Delimiter:   ',',
		Header:      true,
		InferSchema: true,
		NullValues:  []string{"", "NA", "NaN", "null", "<nil>"},
	}
}

// WithDelimiter sets the field delimiter.
func WithDelimiter(d rune) LoadOption {
	return func(o *LoadOptions) { o.Delimiter = d }
}

// WithHeader sets whether the first record holds column names.
func WithHeader(h bool) LoadOption {
	return func(o *LoadOptions) { o.Header = h }
}

// WithInferSchema sets whether column types are detected.
func WithInferSchema(b bool) LoadOption {
	return func(o *LoadOptions) { o.InferSchema = b }
}

// WithNullValues replaces the cell texts read as null.
func WithNullValues(values ...string) LoadOption {
	return func(o *LoadOptions) { o.NullValues = values }
}

// Load reads a delimited file into a Frame.
func Load(path string, opts ...LoadOption) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer fh.Close()

	f, err := Read(fh, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: load %s", path)
	}
	log.GetLoggerWithName("dataset").Debug("Dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.SourceKey, path,
		log.SamplesKey, f.Count(),
		log.FeaturesKey, len(f.Columns()),
	)
	return f, nil
}

// Read parses delimited text into a Frame. Input with a header and no data
// rows yields an empty Frame with string columns.
func Read(r io.Reader, opts ...LoadOption) (*Frame, error) {
	o := DefaultLoadOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cr := csv.NewReader(r)
	cr.Comma = o.Delimiter
	cr.FieldsPerRecord = 0
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "dataset: parse delimited input")
	}
	if len(records) == 0 {
		return nil, errors.NewModelError("dataset.Read", "no records", errors.ErrEmptyData)
	}

	if o.Header && len(records) == 1 {
		cols := make([]series.Series, len(records[0]))
		for i, name := range records[0] {
			cols[i] = series.New([]string{}, series.String, name)
		}
		return New(cols...)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(o.Header),
		dataframe.DetectTypes(o.InferSchema),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(o.NullValues),
	)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "dataset: build frame")
	}
	return FromDataFrame(df)
}
