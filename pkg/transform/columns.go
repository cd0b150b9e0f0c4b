package transform

import (
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-mlprep/pkg/mlerr"
)

// MissingValues are the cell values treated as missing in categorical columns.
var MissingValues = []string{"", "NA", "NaN", "<nil>"}

func isMissing(v string) bool {
	for _, m := range MissingValues {
		if v == m {
			return true
		}
	}

	return false
}

func checkColumns(df dataframe.DataFrame, columns []string) error {
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

	if len(missing) > 0 {
		return &mlerr.ColumnError{Columns: missing}
	}

	return nil
}

// numericBlock copies columns of df into a rows x len(columns) matrix. Missing cells become NaN.
func numericBlock(df dataframe.DataFrame, columns []string) (*mat.Dense, error) {
	if err := checkColumns(df, columns); err != nil {
		return nil, err
	}

	rows := df.Nrow()
	if rows == 0 {
		return nil, mlerr.NewConfigError("table", "no rows to transform")
	}

	out := mat.NewDense(rows, len(columns), nil)

	for j, name := range columns {
		values, err := numericColumn(df.Col(name))
		if err != nil {
			return nil, err
		}

		out.SetCol(j, values)
	}

	return out, nil
}

func numericColumn(s series.Series) ([]float64, error) {
	if s.Type() != series.String {
		return s.Float(), nil
	}

	records := s.Records()
	nas := s.IsNaN()
	values := make([]float64, len(records))

	for i, rec := range records {
		if nas[i] || isMissing(rec) {
			values[i] = math.NaN()

			continue
		}

		v, err := strconv.ParseFloat(rec, 64)
		if err != nil {
			return nil, &mlerr.ConfigError{
				Field:  s.Name,
				Value:  rec,
				Reason: "numeric column holds a non numeric value",
			}
		}

		values[i] = v
	}

	return values, nil
}

// categoricalBlock returns the string cells of columns, one slice per column. Missing cells are "".
func categoricalBlock(df dataframe.DataFrame, columns []string) ([][]string, error) {
	if err := checkColumns(df, columns); err != nil {
		return nil, err
	}

	if df.Nrow() == 0 {
		return nil, mlerr.NewConfigError("table", "no rows to transform")
	}

	out := make([][]string, len(columns))

	for j, name := range columns {
		s := df.Col(name)
		records := s.Records()
		nas := s.IsNaN()

		for i, rec := range records {
			if nas[i] || isMissing(rec) {
				records[i] = ""
			}
		}

		out[j] = records
	}

	return out, nil
}
