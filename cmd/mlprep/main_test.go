package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/askiada/go-mlprep/pkg/mlerr"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	var b strings.Builder

	b.WriteString("age,city,label\n")

	for i := range 12 {
		fmt.Fprintf(&b, "%d,%s,%d\n", 30+i, []string{"Paris", "Lyon"}[i%2], i%2)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(b.String()))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func writeConfig(t *testing.T, srv *httptest.Server, dir string) string {
	t.Helper()

	content := fmt.Sprintf(`
dataset:
  dir: %s
  filename: data.csv
  source_url: %s/data.csv
  header: 0
features:
  target: label
  numeric: [age]
  categorical: [city]
fetch:
  retries: 0
output:
  dir: %s
`, filepath.Join(dir, "raw"), srv.URL, filepath.Join(dir, "out"))

	name := filepath.Join(dir, "mlprep.yaml")
	require.NoError(t, os.WriteFile(name, []byte(content), 0o600))

	return name
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := newRootCmd(zap.NewNop())
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestFetch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgFile := writeConfig(t, newServer(t), dir)

	out, err := execute(t, "fetch", "--config", cfgFile)
	require.NoError(t, err)

	path := filepath.Join(dir, "raw", "data.csv")
	assert.Equal(t, path+"\n", out)
	assert.FileExists(t, path)
}

func TestFetchChecksum(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgFile := writeConfig(t, newServer(t), dir)

	_, err := execute(t, "fetch", "--config", cfgFile, "--checksum", strings.Repeat("f", 64))
	require.ErrorIs(t, err, mlerr.ErrChecksum)
}

func TestPrepare(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgFile := writeConfig(t, newServer(t), dir)

	graph := filepath.Join(dir, "pipeline.dot")
	metrics := filepath.Join(dir, "metrics.prom")
	summary := filepath.Join(dir, "summary.yaml")

	out, err := execute(t, "prepare", "--config", cfgFile, "--batch-size", "2",
		"--graph", graph, "--metrics", metrics, "--summary", summary)
	require.NoError(t, err)

	assert.Contains(t, out, "train: 9 rows\n")
	assert.Contains(t, out, "validation: 3 rows\n")
	assert.Contains(t, out, "features: 3\n")
	assert.Contains(t, out, filepath.Join(dir, "out", "train_features.csv"))

	content, err := os.ReadFile(graph)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"transform"`)

	content, err = os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(content), `mlprep_pipeline_step_elements{step="transform"} 7`)

	content, err = os.ReadFile(summary)
	require.NoError(t, err)
	assert.Contains(t, string(content), "onehotencoder")
}

func TestPrepareInvalidConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgFile := writeConfig(t, newServer(t), dir)

	_, err := execute(t, "prepare", "--config", cfgFile, "--scaler", "minmax")
	require.ErrorIs(t, err, mlerr.ErrConfig)

	assert.NoFileExists(t, filepath.Join(dir, "raw", "data.csv"))
}

func TestMissingConfigFile(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "fetch", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
