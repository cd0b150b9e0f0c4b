// Package features separates a table into a target and features and splits rows into stratified
// train and validation sets.
package features

import (
	"context"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-mlprep/pkg/logging"
	"github.com/askiada/go-mlprep/pkg/mlerr"
)

// ExtractTarget returns the column holding the prediction target.
func ExtractTarget(ctx context.Context, df dataframe.DataFrame, column string) (series.Series, error) {
	logger := logging.FromContext(ctx)
	logger.Debug("extracting target variable", zap.String("column", column))

	if missing := missingColumns(df, column); len(missing) > 0 {
		logger.Error("target column not found", zap.String("column", column))

		return series.Series{}, &mlerr.ColumnError{Columns: missing}
	}

	target := df.Col(column)
	if target.Err != nil {
		return series.Series{}, errors.Wrapf(target.Err, "unable to extract %s", column)
	}

	return target, nil
}

// ExtractFeatureColumns returns a table holding exactly columns, in that order.
func ExtractFeatureColumns(ctx context.Context, df dataframe.DataFrame, columns []string) (dataframe.DataFrame, error) {
	logger := logging.FromContext(ctx)
	logger.Debug("extracting features", zap.Strings("columns", columns))

	if len(columns) == 0 {
		err := mlerr.NewConfigError("features", "at least one feature column must be given")
		logger.Error("no feature columns", zap.Error(err))

		return dataframe.DataFrame{}, err
	}

	if dup := firstDuplicate(columns); dup != "" {
		err := mlerr.NewConfigError("features", "column "+dup+" is requested twice")
		logger.Error("duplicate feature column", zap.String("column", dup), zap.Error(err))

		return dataframe.DataFrame{}, err
	}

	if missing := missingColumns(df, columns...); len(missing) > 0 {
		logger.Error("feature columns not found", zap.Strings("missing", missing))

		return dataframe.DataFrame{}, &mlerr.ColumnError{Columns: missing}
	}

	features := df.Select(columns)
	if features.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(features.Err, "unable to select feature columns")
	}

	return features, nil
}

func missingColumns(df dataframe.DataFrame, columns ...string) []string {
	present := make(map[string]struct{}, df.Ncol())
	for _, name := range df.Names() {
		present[name] = struct{}{}
	}

	var missing []string

	for _, col := range columns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}

	return missing
}

func firstDuplicate(columns []string) string {
	seen := make(map[string]struct{}, len(columns))

	for _, col := range columns {
		if _, ok := seen[col]; ok {
			return col
		}

		seen[col] = struct{}{}
	}

	return ""
}
