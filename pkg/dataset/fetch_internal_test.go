package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mlprep/pkg/mlerr"
)

func TestFilenameFromURL(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		url      string
		expected string
	}{
		"plain":      {url: "https://archive.ics.uci.edu/ml/iris.data", expected: "iris.data"},
		"query":      {url: "https://example.com/files/adult.csv?download=1", expected: "adult.csv"},
		"no scheme":  {url: "example.com/heart.csv", expected: "heart.csv"},
		"nested dir": {url: "https://example.com/a/b/c/d.tsv", expected: "d.tsv"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := filenameFromURL(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestFilenameFromURLEmpty(t *testing.T) {
	t.Parallel()

	_, err := filenameFromURL("")
	require.ErrorIs(t, err, mlerr.ErrConfig)

	_, err = filenameFromURL("https://example.com/")
	require.ErrorIs(t, err, mlerr.ErrConfig)
}
