package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-mlprep/pkg/logging"
	"github.com/askiada/go-mlprep/pkg/mlerr"
)

// MissingValues are the cell contents read as missing.
var MissingValues = []string{"", "NA", "NaN", "<nil>"}

type readOptions struct {
	delimiter rune
}

// ReadOption configures ReadDataset.
type ReadOption func(o *readOptions)

// WithDelimiter sets the field delimiter. The default is a comma.
func WithDelimiter(delimiter rune) ReadOption {
	return func(o *readOptions) {
		o.delimiter = delimiter
	}
}

// ReadDataset parses the configured dataset file into a table.
//
// With Header set, the record at that index names the columns and earlier records are skipped.
// Column names, when also set, replace the header. With only column names, every record is data.
func ReadDataset(ctx context.Context, cfg Config, opts ...ReadOption) (dataframe.DataFrame, error) {
	logger := logging.FromContext(ctx)
	rOpts := &readOptions{delimiter: ','}

	for _, opt := range opts {
		opt(rOpts)
	}

	datasetPath := cfg.Path()
	logger.Debug("trying to open dataset", zap.String("path", datasetPath))

	if !fileExists(datasetPath) {
		logger.Error("dataset file not found", zap.String("path", datasetPath))

		return dataframe.DataFrame{}, &mlerr.NotFoundError{Path: datasetPath}
	}

	if err := cfg.validateColumns(); err != nil {
		logger.Error("either column names or a header row should be provided", zap.Error(err))

		return dataframe.DataFrame{}, err
	}

	records, err := readRecords(datasetPath, rOpts.delimiter)
	if err != nil {
		logger.Error("unable to read dataset", zap.String("path", datasetPath), zap.Error(err))

		return dataframe.DataFrame{}, err
	}

	records, err = shapeRecords(records, cfg)
	if err != nil {
		logger.Error("unable to read dataset", zap.String("path", datasetPath), zap.Error(err))

		return dataframe.DataFrame{}, err
	}

	loadOpts := []dataframe.LoadOption{
		dataframe.DetectTypes(true),
		dataframe.NaNValues(MissingValues),
		dataframe.HasHeader(cfg.Header != nil),
	}
	if len(cfg.ColumnNames) > 0 {
		loadOpts = append(loadOpts, dataframe.Names(cfg.ColumnNames...))
	}

	logger.Debug("reading dataset", zap.String("path", datasetPath), zap.Int("records", len(records)))

	df := dataframe.LoadRecords(records, loadOpts...)
	if df.Err != nil {
		logger.Error("unable to parse dataset", zap.String("path", datasetPath), zap.Error(df.Err))

		return dataframe.DataFrame{}, errors.Wrapf(df.Err, "unable to parse %s", datasetPath)
	}

	logger.Info("dataset loaded", zap.String("path", datasetPath), zap.Int("rows", df.Nrow()), zap.Int("columns", df.Ncol()))

	return df, nil
}

func readRecords(name string, delimiter rune) ([][]string, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", name)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", name)
	}

	return records, nil
}

// shapeRecords drops the records above the header and checks the table is rectangular.
func shapeRecords(records [][]string, cfg Config) ([][]string, error) {
	if cfg.Header != nil {
		if *cfg.Header >= len(records) {
			return nil, mlerr.NewConfigError("dataset.header", fmt.Sprintf("row %d is beyond the %d records of the file", *cfg.Header, len(records)))
		}

		records = records[*cfg.Header:]
	}

	if len(records) == 0 {
		return nil, errors.New("dataset is empty")
	}

	width := len(records[0])
	for i, record := range records {
		if len(record) != width {
			return nil, errors.Errorf("record %d has %d fields, expected %d", i, len(record), width)
		}
	}

	if len(cfg.ColumnNames) > 0 && len(cfg.ColumnNames) != width {
		return nil, mlerr.NewConfigError("dataset.column_names",
			fmt.Sprintf("%d names given for %d columns", len(cfg.ColumnNames), width))
	}

	return records, nil
}
