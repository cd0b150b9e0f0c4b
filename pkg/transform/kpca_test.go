package transform_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-mlprep/pkg/mlerr"
	"github.com/askiada/go-mlprep/pkg/transform"
)

// line holds points (t, 2t) for t = 1..4.
func line() *mat.Dense {
	return mat.NewDense(4, 2, []float64{
		1, 2,
		2, 4,
		3, 6,
		4, 8,
	})
}

func TestKernelPCALinearMatchesPCA(t *testing.T) {
	t.Parallel()

	pca := transform.NewKernelPCA(1, transform.Linear)
	scores, err := transform.FitTransform(pca, line())
	require.NoError(t, err)

	rows, cols := scores.Dims()
	require.Equal(t, 4, rows)
	require.Equal(t, 1, cols)

	// centred t times the norm of (1, 2)
	norm := math.Sqrt(5)
	for i, ct := range []float64{-1.5, -0.5, 0.5, 1.5} {
		assert.InDelta(t, math.Abs(ct)*norm, math.Abs(scores.At(i, 0)), 1e-9)
	}

	assert.InDelta(t, 5*5, pca.Eigenvalues[0], 1e-9)
	assert.Less(t, scores.At(0, 0)*scores.At(3, 0), 0.0)

	out, err := pca.Transform(mat.NewDense(1, 2, []float64{5, 10}))
	require.NoError(t, err)
	assert.InDelta(t, 2.5/1.5, out.At(0, 0)/scores.At(3, 0), 1e-9)
}

func TestKernelPCACapsComponents(t *testing.T) {
	t.Parallel()

	pca := transform.NewKernelPCA(10, transform.RBF)
	out, err := transform.FitTransform(pca, line())
	require.NoError(t, err)

	_, cols := out.Dims()
	assert.Equal(t, 4, cols)
	assert.Len(t, pca.Eigenvalues, 4)
	assert.Equal(t, []string{"kernelpca0", "kernelpca1", "kernelpca2", "kernelpca3"}, pca.FeatureNames([]string{"a", "b"}))
}

func TestKernelPCAEigenvaluesSorted(t *testing.T) {
	t.Parallel()

	x := mat.NewDense(5, 2, []float64{
		0.1, 1.2,
		-0.7, 0.3,
		1.5, -0.4,
		0.0, 0.0,
		2.2, 1.1,
	})

	for _, kernel := range []transform.Kernel{transform.Linear, transform.Poly, transform.RBF, transform.Sigmoid, transform.Cosine} {
		t.Run(kernel.String(), func(t *testing.T) {
			t.Parallel()

			pca := transform.NewKernelPCA(3, kernel)
			fitted, err := transform.FitTransform(pca, x)
			require.NoError(t, err)

			for i := 1; i < len(pca.Eigenvalues); i++ {
				assert.GreaterOrEqual(t, pca.Eigenvalues[i-1], pca.Eigenvalues[i])
				assert.GreaterOrEqual(t, pca.Eigenvalues[i], 0.0)
			}

			again, err := pca.Transform(x)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(fitted, again, 1e-9))
		})
	}
}

func TestKernelPCADeterministicSign(t *testing.T) {
	t.Parallel()

	first, err := transform.FitTransform(transform.NewKernelPCA(2, transform.RBF), line())
	require.NoError(t, err)

	second, err := transform.FitTransform(transform.NewKernelPCA(2, transform.RBF), line())
	require.NoError(t, err)

	assert.True(t, mat.Equal(first, second))
}

func TestKernelPCAErrors(t *testing.T) {
	t.Parallel()

	_, err := transform.NewKernelPCA(1, transform.Linear).Transform(line())
	require.ErrorIs(t, err, mlerr.ErrNotFitted)

	err = transform.NewKernelPCA(0, transform.Linear).Fit(line())
	require.ErrorIs(t, err, mlerr.ErrConfig)

	pca := transform.NewKernelPCA(1, transform.Linear)
	require.NoError(t, pca.Fit(line()))

	_, err = pca.Transform(mat.NewDense(1, 3, nil))
	require.ErrorIs(t, err, mlerr.ErrConfig)
}

func TestKernelPCARefitMatchesFreshFit(t *testing.T) {
	t.Parallel()

	wide := mat.NewDense(5, 4, []float64{
		1, 2, 0, 1,
		2, 1, 1, 0,
		0, 3, 2, 2,
		3, 0, 1, 1,
		1, 1, 3, 0,
	})
	narrow := mat.NewDense(5, 1, []float64{0.5, 1, 1.5, 3, 4})

	for _, kernel := range []transform.Kernel{transform.RBF, transform.Poly, transform.Sigmoid} {
		t.Run(kernel.String(), func(t *testing.T) {
			t.Parallel()

			reused := transform.NewKernelPCA(2, kernel)
			require.NoError(t, reused.Fit(wide))
			assert.InDelta(t, 0.25, reused.FittedGamma, 1e-12)
			require.NoError(t, reused.Fit(narrow))

			fresh := transform.NewKernelPCA(2, kernel)
			require.NoError(t, fresh.Fit(narrow))

			assert.Zero(t, reused.Gamma)
			assert.InDelta(t, 1, reused.FittedGamma, 1e-12)

			got, err := reused.Transform(narrow)
			require.NoError(t, err)

			want, err := fresh.Transform(narrow)
			require.NoError(t, err)

			assert.True(t, mat.EqualApprox(want, got, 1e-12))
		})
	}
}

func TestKernelPCAKeepsConfiguredGamma(t *testing.T) {
	t.Parallel()

	k := transform.NewKernelPCA(1, transform.RBF)
	k.Gamma = 0.5

	require.NoError(t, k.Fit(mat.NewDense(3, 2, []float64{0, 1, 1, 0, 2, 2})))
	assert.InDelta(t, 0.5, k.FittedGamma, 1e-12)
	assert.InDelta(t, 0.5, k.Gamma, 1e-12)
}
