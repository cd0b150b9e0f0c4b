package transform

import (
	"math"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/askiada/go-mlprep/pkg/mlerr"
)

// NumericImputer replaces NaN cells with a per column statistic learned at fit time.
type NumericImputer struct {
	Strategy   ImputeStrategy `yaml:"strategy"`
	FillValue  float64        `yaml:"fill_value,omitempty"`
	Statistics []float64      `yaml:"statistics"`
}

// Fit learns one statistic per column from its observed cells. A column without any observed cell
// cannot be imputed unless the strategy is Constant.
func (imp *NumericImputer) Fit(x mat.Matrix) error {
	rows, cols := x.Dims()
	imp.Statistics = make([]float64, cols)

	for j := 0; j < cols; j++ {
		observed := make([]float64, 0, rows)

		for i := 0; i < rows; i++ {
			if v := x.At(i, j); !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}

		if imp.Strategy == Constant {
			imp.Statistics[j] = imp.FillValue

			continue
		}

		if len(observed) == 0 {
			imp.Statistics = nil

			return &mlerr.ConfigError{
				Field:  "imputer",
				Value:  imp.Strategy.String(),
				Reason: "column " + strconv.Itoa(j) + " has no observed value for strategy",
			}
		}

		sort.Float64s(observed)

		switch imp.Strategy {
		case Mean:
			imp.Statistics[j] = stat.Mean(observed, nil)
		case Median:
			imp.Statistics[j] = percentile(observed, 50)
		case MostFrequent:
			imp.Statistics[j] = mode(observed)
		case Constant:
		}
	}

	return nil
}

func (imp *NumericImputer) Transform(x mat.Matrix) (*mat.Dense, error) {
	if imp.Statistics == nil {
		return nil, errors.Wrap(mlerr.ErrNotFitted, "simpleimputer")
	}

	rows, cols := x.Dims()
	if cols != len(imp.Statistics) {
		return nil, errors.Wrapf(mlerr.ErrConfig, "simpleimputer: fitted on %d columns, got %d", len(imp.Statistics), cols)
	}

	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, j int, v float64) float64 {
		if math.IsNaN(v) {
			return imp.Statistics[j]
		}

		return v
	}, x)

	return out, nil
}

func (imp *NumericImputer) FeatureNames(in []string) []string { return in }

// mode returns the most frequent value of sorted, the smallest one on ties.
func mode(sorted []float64) float64 {
	best, bestCount := sorted[0], 0

	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}

		if j-i > bestCount {
			best, bestCount = sorted[i], j-i
		}

		i = j
	}

	return best
}

// CategoricalImputer replaces missing categorical cells with the most frequent category of the column.
type CategoricalImputer struct {
	Statistics []string `yaml:"statistics"`
}

func (imp *CategoricalImputer) Fit(columns [][]string) error {
	imp.Statistics = make([]string, len(columns))

	for j, col := range columns {
		counts := make(map[string]int, len(col))
		for _, v := range col {
			if v != "" {
				counts[v]++
			}
		}

		if len(counts) == 0 {
			imp.Statistics = nil

			return &mlerr.ConfigError{
				Field:  "imputer",
				Value:  MostFrequent.String(),
				Reason: "categorical column " + strconv.Itoa(j) + " has no observed value for strategy",
			}
		}

		best, bestCount := "", 0
		for v, c := range counts {
			if c > bestCount || (c == bestCount && v < best) {
				best, bestCount = v, c
			}
		}

		imp.Statistics[j] = best
	}

	return nil
}

func (imp *CategoricalImputer) Transform(columns [][]string) ([][]string, error) {
	if imp.Statistics == nil {
		return nil, errors.Wrap(mlerr.ErrNotFitted, "simpleimputer")
	}

	if len(columns) != len(imp.Statistics) {
		return nil, errors.Wrapf(mlerr.ErrConfig, "simpleimputer: fitted on %d columns, got %d", len(imp.Statistics), len(columns))
	}

	out := make([][]string, len(columns))

	for j, col := range columns {
		out[j] = make([]string, len(col))
		for i, v := range col {
			if v == "" {
				v = imp.Statistics[j]
			}

			out[j][i] = v
		}
	}

	return out, nil
}
