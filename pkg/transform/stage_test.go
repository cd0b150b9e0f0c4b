package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-mlprep/pkg/mlerr"
	"github.com/askiada/go-mlprep/pkg/transform"
)

func TestNumericStageSteps(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		scaler     string
		components int
		kernel     string
		expected   []string
	}{
		"standard":          {scaler: "standard", expected: []string{"standardscaler"}},
		"robust":            {scaler: "robust", expected: []string{"robustscaler"}},
		"standard with pca": {scaler: "standard", components: 2, expected: []string{"standardscaler", "kernelpca"}},
		"robust with rbf":   {scaler: "robust", components: 1, kernel: "rbf", expected: []string{"robustscaler", "kernelpca"}},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			stage, err := transform.NumericStageFromNames(tc.scaler, tc.components, tc.kernel)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, stage.Steps())
		})
	}
}

func TestNumericStageErrors(t *testing.T) {
	t.Parallel()

	_, err := transform.NumericStageFromNames("minmax", 0, "")
	require.ErrorIs(t, err, mlerr.ErrConfig)

	_, err = transform.NumericStageFromNames("standard", -1, "")
	require.ErrorIs(t, err, mlerr.ErrConfig)

	_, err = transform.NumericStageFromNames("standard", 2, "laplacian")
	require.ErrorIs(t, err, mlerr.ErrConfig)

	_, err = transform.NewNumericStage(transform.Scaler(7))
	require.ErrorIs(t, err, mlerr.ErrConfig)
}

func TestNumericStageScalesBeforeReducing(t *testing.T) {
	t.Parallel()

	x := mat.NewDense(4, 2, []float64{
		1, 100,
		2, 300,
		3, 200,
		4, 400,
	})

	stage, err := transform.NewNumericStage(transform.Standard, transform.WithPrincipalComponents(1))
	require.NoError(t, err)

	out, err := stage.FitTransform(x)
	require.NoError(t, err)

	scaled, err := transform.FitTransform(&transform.StandardScaler{}, x)
	require.NoError(t, err)

	expected, err := transform.FitTransform(transform.NewKernelPCA(1, transform.Linear), scaled)
	require.NoError(t, err)

	assert.True(t, mat.EqualApprox(expected, out, 1e-9))
	assert.Equal(t, []string{"kernelpca0"}, stage.FeatureNames([]string{"a", "b"}))
}

func TestNumericStageIdempotent(t *testing.T) {
	t.Parallel()

	x := mat.NewDense(3, 1, []float64{1, 5, 9})

	stage, err := transform.NewNumericStage(transform.Robust)
	require.NoError(t, err)
	require.NoError(t, stage.Fit(x))

	first, err := stage.Transform(x)
	require.NoError(t, err)

	second, err := stage.Transform(x)
	require.NoError(t, err)

	assert.True(t, mat.Equal(first, second))
	assert.Equal(t, []string{"a"}, stage.FeatureNames([]string{"a"}))
}

func TestNumericStageNotFitted(t *testing.T) {
	t.Parallel()

	stage, err := transform.NewNumericStage(transform.Standard)
	require.NoError(t, err)

	_, err = stage.Transform(mat.NewDense(1, 1, nil))
	require.ErrorIs(t, err, mlerr.ErrNotFitted)
}

func TestCategoricalStage(t *testing.T) {
	t.Parallel()

	ohe, err := transform.CategoricalStageFromName("ohe")
	require.NoError(t, err)
	assert.Equal(t, []string{"onehotencoder"}, ohe.Steps())

	ordinal, err := transform.CategoricalStageFromName("ordinal")
	require.NoError(t, err)
	assert.Equal(t, []string{"ordinalencoder"}, ordinal.Steps())

	out, err := ordinal.FitTransform([][]string{{"b", "a"}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, mat.Col(nil, 0, out))

	_, err = transform.CategoricalStageFromName("hashing")
	require.ErrorIs(t, err, mlerr.ErrConfig)

	_, err = transform.NewCategoricalStage(transform.Encoder(9))
	require.ErrorIs(t, err, mlerr.ErrConfig)
}
