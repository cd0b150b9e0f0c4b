package dataset

import (
	"path/filepath"

	"github.com/askiada/go-mlprep/pkg/mlerr"
)

// Config locates a dataset on disk and at its source, and describes how to name its columns.
type Config struct {
	Dir         string   `mapstructure:"dir" yaml:"dir"`
	Filename    string   `mapstructure:"filename" yaml:"filename"`
	SourceURL   string   `mapstructure:"source_url" yaml:"source_url"`
	Header      *int     `mapstructure:"header" yaml:"header,omitempty"`
	ColumnNames []string `mapstructure:"column_names" yaml:"column_names,omitempty"`
}

// Path is the local path of the dataset file.
func (c Config) Path() string {
	return filepath.Join(c.Dir, c.Filename)
}

// Validate checks that the dataset can be located and that its columns can be named.
func (c Config) Validate() error {
	if c.Dir == "" {
		return mlerr.NewConfigError("dataset.dir", "must be set")
	}

	if c.Filename == "" {
		return mlerr.NewConfigError("dataset.filename", "must be set")
	}

	return c.validateColumns()
}

func (c Config) validateColumns() error {
	if c.Header == nil && len(c.ColumnNames) == 0 {
		return mlerr.NewConfigError("dataset.header", "either a header row or column names must be provided")
	}

	if c.Header != nil && *c.Header < 0 {
		return mlerr.NewConfigError("dataset.header", "must be a non negative row index")
	}

	return nil
}
