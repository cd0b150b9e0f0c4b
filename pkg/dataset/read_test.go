package dataset_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/askiada/go-mlprep/pkg/dataset"
	"github.com/askiada/go-mlprep/pkg/logging"
	"github.com/askiada/go-mlprep/pkg/mlerr"
)

func writeDataset(t *testing.T, content string) dataset.Config {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.csv"), []byte(content), 0o600))

	return dataset.Config{Dir: dir, Filename: "data.csv"}
}

func intPtr(i int) *int { return &i }

func TestReadDatasetHeader(t *testing.T) {
	t.Parallel()

	cfg := writeDataset(t, "age,city,label\n31,Paris,yes\n45,Lyon,no\n")
	cfg.Header = intPtr(0)

	df, err := dataset.ReadDataset(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "city", "label"}, df.Names())
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, []float64{31, 45}, df.Col("age").Float())
	assert.Equal(t, []string{"Paris", "Lyon"}, df.Col("city").Records())
}

func TestReadDatasetColumnNames(t *testing.T) {
	t.Parallel()

	cfg := writeDataset(t, "5.1,3.5,setosa\n7.0,3.2,versicolor\n6.3,3.3,virginica\n")
	cfg.ColumnNames = []string{"sepal_length", "sepal_width", "species"}

	df, err := dataset.ReadDataset(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.ColumnNames, df.Names())
	assert.Equal(t, 3, df.Nrow())
	assert.Equal(t, []string{"setosa", "versicolor", "virginica"}, df.Col("species").Records())
}

func TestReadDatasetHeaderOffsetWithNames(t *testing.T) {
	t.Parallel()

	cfg := writeDataset(t, "# exported 2024\nx,y\n1,a\n2,b\n")
	cfg.Header = intPtr(1)
	cfg.ColumnNames = []string{"num", "cat"}

	df, err := dataset.ReadDataset(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"num", "cat"}, df.Names())
	assert.Equal(t, 2, df.Nrow())
}

func TestReadDatasetMissingValues(t *testing.T) {
	t.Parallel()

	cfg := writeDataset(t, "age,city\n31,Paris\n,NA\n")
	cfg.Header = intPtr(0)

	df, err := dataset.ReadDataset(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, df.Col("age").IsNaN())
	assert.Equal(t, []bool{false, true}, df.Col("city").IsNaN())
}

func TestReadDatasetSemicolon(t *testing.T) {
	t.Parallel()

	cfg := writeDataset(t, "a;b\n1;2\n")
	cfg.Header = intPtr(0)

	df, err := dataset.ReadDataset(context.Background(), cfg, dataset.WithDelimiter(';'))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, df.Names())
}

func TestReadDatasetNotFound(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	ctx := logging.IntoContext(context.Background(), zap.New(core))

	cfg := dataset.Config{Dir: t.TempDir(), Filename: "absent.csv", Header: intPtr(0)}

	_, err := dataset.ReadDataset(ctx, cfg)
	require.ErrorIs(t, err, mlerr.ErrNotFound)
	assert.Equal(t, 1, logs.FilterMessage("dataset file not found").Len())
}

func TestReadDatasetNoHeaderNorNames(t *testing.T) {
	t.Parallel()

	cfg := writeDataset(t, "1,2\n")

	_, err := dataset.ReadDataset(context.Background(), cfg)
	require.ErrorIs(t, err, mlerr.ErrConfig)
}

func TestReadDatasetNamesMismatch(t *testing.T) {
	t.Parallel()

	cfg := writeDataset(t, "1,2\n3,4\n")
	cfg.ColumnNames = []string{"only"}

	_, err := dataset.ReadDataset(context.Background(), cfg)
	require.ErrorIs(t, err, mlerr.ErrConfig)
}

func TestReadDatasetRagged(t *testing.T) {
	t.Parallel()

	cfg := writeDataset(t, "a,b\n1,2\n3\n")
	cfg.Header = intPtr(0)

	_, err := dataset.ReadDataset(context.Background(), cfg)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		cfg   dataset.Config
		valid bool
	}{
		"header":              {cfg: dataset.Config{Dir: "d", Filename: "f", Header: intPtr(0)}, valid: true},
		"names":               {cfg: dataset.Config{Dir: "d", Filename: "f", ColumnNames: []string{"a"}}, valid: true},
		"no header nor names": {cfg: dataset.Config{Dir: "d", Filename: "f"}},
		"negative header":     {cfg: dataset.Config{Dir: "d", Filename: "f", Header: intPtr(-1)}},
		"no dir":              {cfg: dataset.Config{Filename: "f", Header: intPtr(0)}},
		"no filename":         {cfg: dataset.Config{Dir: "d", Header: intPtr(0)}},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.cfg.Validate()
			if tc.valid {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, mlerr.ErrConfig)
		})
	}
}
