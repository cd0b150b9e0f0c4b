package transform

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-mlprep/pkg/mlerr"
)

// CategoricalTransformer is the string column counterpart of Transformer.
type CategoricalTransformer interface {
	Fit(columns [][]string) error
	Transform(columns [][]string) (*mat.Dense, error)
	FeatureNames(in []string) []string
}

// categories returns the sorted distinct values of each column.
func categories(columns [][]string) [][]string {
	out := make([][]string, len(columns))

	for j, col := range columns {
		seen := make(map[string]struct{}, len(col))
		for _, v := range col {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out[j] = append(out[j], v)
			}
		}

		sort.Strings(out[j])
	}

	return out
}

// requireColumns rejects an empty column list, which has no row count to encode.
func requireColumns(columns [][]string) error {
	if len(columns) == 0 {
		return mlerr.NewConfigError("categorical", "at least one column is required")
	}

	return nil
}

func lookup(cats []string) map[string]int {
	idx := make(map[string]int, len(cats))
	for i, c := range cats {
		idx[c] = i
	}

	return idx
}

// OneHotEncoder emits one indicator column per category seen at fit time. A category it has never
// seen yields zeros in every indicator of its column.
type OneHotEncoder struct {
	Categories [][]string `yaml:"categories"`

	index []map[string]int
	width int
}

func (e *OneHotEncoder) Fit(columns [][]string) error {
	if err := requireColumns(columns); err != nil {
		return err
	}

	e.Categories = categories(columns)
	e.index = make([]map[string]int, len(columns))
	e.width = 0

	for j, cats := range e.Categories {
		e.index[j] = lookup(cats)
		e.width += len(cats)
	}

	return nil
}

func (e *OneHotEncoder) Transform(columns [][]string) (*mat.Dense, error) {
	if err := requireColumns(columns); err != nil {
		return nil, err
	}

	if e.index == nil {
		return nil, errors.Wrap(mlerr.ErrNotFitted, "onehotencoder")
	}

	if len(columns) != len(e.index) {
		return nil, errors.Wrapf(mlerr.ErrConfig, "onehotencoder: fitted on %d columns, got %d", len(e.index), len(columns))
	}

	rows := len(columns[0])
	out := mat.NewDense(rows, e.width, nil)
	offset := 0

	for j, col := range columns {
		for i, v := range col {
			if k, ok := e.index[j][v]; ok {
				out.Set(i, offset+k, 1)
			}
		}

		offset += len(e.Categories[j])
	}

	return out, nil
}

func (e *OneHotEncoder) FeatureNames(in []string) []string {
	names := make([]string, 0, e.width)

	for j, cats := range e.Categories {
		for _, c := range cats {
			names = append(names, in[j]+"_"+c)
		}
	}

	return names
}

// OrdinalEncoder maps each category to its rank among the sorted categories seen at fit time.
type OrdinalEncoder struct {
	Categories [][]string `yaml:"categories"`

	index []map[string]int
}

func (e *OrdinalEncoder) Fit(columns [][]string) error {
	if err := requireColumns(columns); err != nil {
		return err
	}

	e.Categories = categories(columns)
	e.index = make([]map[string]int, len(columns))

	for j, cats := range e.Categories {
		e.index[j] = lookup(cats)
	}

	return nil
}

func (e *OrdinalEncoder) Transform(columns [][]string) (*mat.Dense, error) {
	if err := requireColumns(columns); err != nil {
		return nil, err
	}

	if e.index == nil {
		return nil, errors.Wrap(mlerr.ErrNotFitted, "ordinalencoder")
	}

	if len(columns) != len(e.index) {
		return nil, errors.Wrapf(mlerr.ErrConfig, "ordinalencoder: fitted on %d columns, got %d", len(e.index), len(columns))
	}

	out := mat.NewDense(len(columns[0]), len(columns), nil)

	for j, col := range columns {
		for i, v := range col {
			k, ok := e.index[j][v]
			if !ok {
				return nil, errors.Wrapf(mlerr.ErrUnknownCategory, "column %d: %q", j, v)
			}

			out.Set(i, j, float64(k))
		}
	}

	return out, nil
}

func (e *OrdinalEncoder) FeatureNames(in []string) []string { return in }
