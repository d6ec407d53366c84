package report

import (
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/YuminosukeSato/co2ml/pkg/errors"
	"github.com/YuminosukeSato/co2ml/pkg/log"
)

// PredictionRow is one test-set prediction of one model.
type PredictionRow struct {
	Model      string  `parquet:"name=model, type=BYTE_ARRAY, convertedtype=UTF8"`
	Make       string  `parquet:"name=make, type=BYTE_ARRAY, convertedtype=UTF8"`
	Actual     float64 `parquet:"name=actual, type=DOUBLE"`
	Prediction float64 `parquet:"name=prediction, type=DOUBLE"`
	Residual   float64 `parquet:"name=residual, type=DOUBLE"`
}

// WritePredictionsParquet writes rows to a snappy compressed parquet file at
// path, replacing any existing file.
func WritePredictionsParquet(path string, rows []PredictionRow) (err error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return errors.Wrapf(err, "report: create %s", path)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "report: close %s", path)
		}
	}()

	pw, err := writer.NewParquetWriter(fw, new(PredictionRow), 4)
	if err != nil {
		return errors.Wrap(err, "report: create parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			return errors.Wrapf(err, "report: write row %d", i)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return errors.Wrap(err, "report: finish parquet file")
	}
	log.GetLoggerWithName("report").Info("Predictions written",
		log.SourceKey, path,
		log.SamplesKey, len(rows),
	)
	return nil
}

// ReadPredictionsParquet reads a file written by WritePredictionsParquet.
func ReadPredictionsParquet(path string) (rows []PredictionRow, err error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "report: open %s", path)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(PredictionRow), 4)
	if err != nil {
		return nil, errors.Wrap(err, "report: create parquet reader")
	}
	defer pr.ReadStop()

	rows = make([]PredictionRow, int(pr.GetNumRows()))
	if err := pr.Read(&rows); err != nil {
		return nil, errors.Wrap(err, "report: read rows")
	}
	return rows, nil
}
