package transform

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/askiada/go-mlprep/pkg/mlerr"
)

// Transformer learns its parameters from a training matrix and applies them to any matrix with the
// same columns.
type Transformer interface {
	Fit(x mat.Matrix) error
	Transform(x mat.Matrix) (*mat.Dense, error)
	// FeatureNames maps input column names to output column names.
	FeatureNames(in []string) []string
}

// FitTransform fits t on x and returns x transformed.
func FitTransform(t Transformer, x mat.Matrix) (*mat.Dense, error) {
	if err := t.Fit(x); err != nil {
		return nil, err
	}

	return t.Transform(x)
}

// StandardScaler rescales columns to zero mean and unit population variance.
type StandardScaler struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

func (s *StandardScaler) Fit(x mat.Matrix) error {
	rows, cols := x.Dims()
	s.Mean = make([]float64, cols)
	s.Scale = make([]float64, cols)
	col := make([]float64, rows)

	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		s.Mean[j], s.Scale[j] = stat.PopMeanStdDev(col, nil)

		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}

	return nil
}

func (s *StandardScaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	return affine(x, s.Mean, s.Scale, "standardscaler")
}

func (s *StandardScaler) FeatureNames(in []string) []string { return in }

// RobustScaler rescales columns with the median and the 25th to 75th percentile range.
type RobustScaler struct {
	Center []float64 `yaml:"center"`
	Scale  []float64 `yaml:"scale"`
}

func (s *RobustScaler) Fit(x mat.Matrix) error {
	rows, cols := x.Dims()
	s.Center = make([]float64, cols)
	s.Scale = make([]float64, cols)

	for j := 0; j < cols; j++ {
		col := mat.Col(make([]float64, rows), j, x)
		sort.Float64s(col)

		s.Center[j] = percentile(col, 50)
		s.Scale[j] = percentile(col, 75) - percentile(col, 25)

		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}

	return nil
}

func (s *RobustScaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	return affine(x, s.Center, s.Scale, "robustscaler")
}

func (s *RobustScaler) FeatureNames(in []string) []string { return in }

// affine returns (x - center) / scale column by column.
func affine(x mat.Matrix, center, scale []float64, step string) (*mat.Dense, error) {
	if center == nil {
		return nil, errors.Wrap(mlerr.ErrNotFitted, step)
	}

	rows, cols := x.Dims()
	if cols != len(center) {
		return nil, errors.Wrapf(mlerr.ErrConfig, "%s: fitted on %d columns, got %d", step, len(center), cols)
	}

	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - center[j]) / scale[j]
	}, x)

	return out, nil
}

// percentile returns the p-th percentile of sorted, linearly interpolating between the closest ranks.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	rank := p / 100 * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)

	if upper >= n {
		return sorted[lower]
	}

	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
