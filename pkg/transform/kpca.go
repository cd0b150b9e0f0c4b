package transform

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-mlprep/pkg/mlerr"
)

// KernelPCA projects rows onto the leading eigenvectors of the centred kernel matrix of the
// training rows. With the Linear kernel this is ordinary PCA.
type KernelPCA struct {
	Components int     `yaml:"components"`
	Kernel     Kernel  `yaml:"kernel"`
	Gamma      float64 `yaml:"gamma,omitempty"`
	Degree     float64 `yaml:"degree,omitempty"`
	Coef0      float64 `yaml:"coef0,omitempty"`

	// FittedGamma is the gamma of the last fit, Gamma or 1/features when Gamma is 0.
	FittedGamma float64   `yaml:"fitted_gamma"`
	Eigenvalues []float64 `yaml:"eigenvalues"`

	train     *mat.Dense
	colMeans  []float64
	totalMean float64
	// projection is alphas / sqrt(lambda), zero where lambda is zero.
	projection *mat.Dense
}

// NewKernelPCA returns an unfitted KernelPCA keeping components dimensions. Gamma defaults to
// 1/features at fit time, Degree to 3 and Coef0 to 1.
func NewKernelPCA(components int, kernel Kernel) *KernelPCA {
	return &KernelPCA{
		Components: components,
		Kernel:     kernel,
		Degree:     3,
		Coef0:      1,
	}
}

func (k *KernelPCA) Fit(x mat.Matrix) error {
	if k.Components <= 0 {
		return mlerr.NewConfigError("principal_components", "must be positive, got "+strconv.Itoa(k.Components))
	}

	rows, cols := x.Dims()
	k.FittedGamma = k.Gamma
	if k.FittedGamma == 0 {
		k.FittedGamma = 1 / float64(cols)
	}

	k.train = mat.DenseCopyOf(x)

	gram := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := i; j < rows; j++ {
			gram.SetSym(i, j, k.eval(k.train.RawRowView(i), k.train.RawRowView(j)))
		}
	}

	k.colMeans = make([]float64, rows)
	for j := 0; j < rows; j++ {
		for i := 0; i < rows; i++ {
			k.colMeans[j] += gram.At(i, j)
		}

		k.colMeans[j] /= float64(rows)
	}

	k.totalMean = floats.Sum(k.colMeans) / float64(rows)

	centred := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := i; j < rows; j++ {
			centred.SetSym(i, j, gram.At(i, j)-k.colMeans[i]-k.colMeans[j]+k.totalMean)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(centred, true); !ok {
		return errors.New("kernelpca: eigendecomposition did not converge")
	}

	values := eig.Values(nil)

	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	keep := min(k.Components, rows)
	k.Eigenvalues = make([]float64, keep)
	k.projection = mat.NewDense(rows, keep, nil)
	alpha := make([]float64, rows)

	// values are ascending
	for c := 0; c < keep; c++ {
		idx := rows - 1 - c
		lambda := math.Max(values[idx], 0)
		k.Eigenvalues[c] = lambda

		mat.Col(alpha, idx, &vectors)
		flipSign(alpha)

		if lambda == 0 {
			continue
		}

		floats.Scale(1/math.Sqrt(lambda), alpha)
		k.projection.SetCol(c, alpha)
	}

	return nil
}

func (k *KernelPCA) Transform(x mat.Matrix) (*mat.Dense, error) {
	if k.projection == nil {
		return nil, errors.Wrap(mlerr.ErrNotFitted, "kernelpca")
	}

	rows, cols := x.Dims()
	trainRows, trainCols := k.train.Dims()

	if cols != trainCols {
		return nil, errors.Wrapf(mlerr.ErrConfig, "kernelpca: fitted on %d columns, got %d", trainCols, cols)
	}

	in := mat.DenseCopyOf(x)
	cross := mat.NewDense(rows, trainRows, nil)

	for i := 0; i < rows; i++ {
		row := cross.RawRowView(i)
		for j := 0; j < trainRows; j++ {
			row[j] = k.eval(in.RawRowView(i), k.train.RawRowView(j))
		}

		rowMean := floats.Sum(row) / float64(trainRows)
		for j := range row {
			row[j] += k.totalMean - rowMean - k.colMeans[j]
		}
	}

	var out mat.Dense
	out.Mul(cross, k.projection)

	return &out, nil
}

func (k *KernelPCA) FeatureNames([]string) []string {
	names := make([]string, len(k.Eigenvalues))
	for i := range names {
		names[i] = "kernelpca" + strconv.Itoa(i)
	}

	return names
}

func (k *KernelPCA) eval(a, b []float64) float64 {
	switch k.Kernel {
	case Linear:
		return floats.Dot(a, b)
	case Poly:
		return math.Pow(k.FittedGamma*floats.Dot(a, b)+k.Coef0, k.Degree)
	case RBF:
		d := floats.Distance(a, b, 2)
		return math.Exp(-k.FittedGamma * d * d)
	case Sigmoid:
		return math.Tanh(k.FittedGamma*floats.Dot(a, b) + k.Coef0)
	case Cosine:
		na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
		if na == 0 || nb == 0 {
			return 0
		}

		return floats.Dot(a, b) / (na * nb)
	default:
		panic("kernelpca: unknown kernel " + k.Kernel.String())
	}
}

// flipSign negates v when its largest absolute entry is negative.
func flipSign(v []float64) {
	largest := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[largest]) {
			largest = i
		}
	}

	if v[largest] < 0 {
		floats.Scale(-1, v)
	}
}
