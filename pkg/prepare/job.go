// Package prepare runs a whole preparation job: fetch and read the dataset, split it, fit the
// preprocessing plan on the training rows and stream both splits through it into CSV files.
package prepare

import (
	"unicode/utf8"

	"github.com/askiada/go-mlprep/pkg/dataset"
	"github.com/askiada/go-mlprep/pkg/features"
	"github.com/askiada/go-mlprep/pkg/mlerr"
	"github.com/askiada/go-mlprep/pkg/transform"
)

// Preprocess names the steps of the preprocessing plan.
type Preprocess struct {
	Scaler        string  `mapstructure:"scaler" yaml:"scaler"`
	Components    int     `mapstructure:"components" yaml:"components"`
	Kernel        string  `mapstructure:"kernel" yaml:"kernel"`
	Encoder       string  `mapstructure:"encoder" yaml:"encoder"`
	Imputer       string  `mapstructure:"imputer" yaml:"imputer"`
	FillValue     float64 `mapstructure:"fill_value" yaml:"fill_value"`
	DropUnclaimed bool    `mapstructure:"drop_unclaimed" yaml:"drop_unclaimed"`
}

// Job describes one preparation run.
type Job struct {
	Dataset   dataset.Config
	Checksum  string
	Overwrite bool
	// Delimiter separates fields in the dataset file. It defaults to a comma.
	Delimiter string

	Target      string
	Numeric     []string
	Categorical []string
	// Features lists the columns taken from the dataset. It defaults to Numeric then Categorical.
	Features []string

	Split      features.SplitConfig
	Preprocess Preprocess
	OutputDir  string
}

// Validate checks the job can run, without touching the file system.
func (j Job) Validate() error {
	if j.Target == "" {
		return mlerr.NewConfigError("features.target", "target column must be set")
	}

	if j.OutputDir == "" {
		return mlerr.NewConfigError("output.dir", "output directory must be set")
	}

	if utf8.RuneCountInString(j.Delimiter) > 1 {
		return &mlerr.ConfigError{Field: "dataset.delimiter", Value: j.Delimiter, Reason: "must be a single character, got"}
	}

	if err := j.Dataset.Validate(); err != nil {
		return err
	}

	return j.Split.Validate()
}

func (j Job) featureColumns() []string {
	if len(j.Features) > 0 {
		return j.Features
	}

	return append(append([]string(nil), j.Numeric...), j.Categorical...)
}

func (j Job) delimiter() rune {
	if j.Delimiter == "" {
		return ','
	}

	r, _ := utf8.DecodeRuneInString(j.Delimiter)

	return r
}

func (j Job) downloadOptions() []dataset.DownloadOption {
	var opts []dataset.DownloadOption

	if j.Overwrite {
		opts = append(opts, dataset.Overwrite())
	}

	if j.Checksum != "" {
		opts = append(opts, dataset.WithChecksum(j.Checksum))
	}

	return opts
}

// plan builds the unfitted preprocessing plan. Empty step names fall back to standard, ohe and mean.
func (j Job) plan() (*transform.Plan, error) {
	p := j.Preprocess

	if p.Scaler == "" {
		p.Scaler = transform.Standard.String()
	}

	if p.Encoder == "" {
		p.Encoder = transform.OneHot.String()
	}

	if p.Imputer == "" {
		p.Imputer = transform.Mean.String()
	}

	var (
		num *transform.NumericStage
		cat *transform.CategoricalStage
		err error
	)

	if len(j.Numeric) > 0 {
		num, err = transform.NumericStageFromNames(p.Scaler, p.Components, p.Kernel)
		if err != nil {
			return nil, err
		}
	}

	if len(j.Categorical) > 0 {
		cat, err = transform.CategoricalStageFromName(p.Encoder)
		if err != nil {
			return nil, err
		}
	}

	opts := []transform.PlanOption{transform.WithFillValue(p.FillValue)}
	if p.DropUnclaimed {
		opts = append(opts, transform.DropUnclaimed())
	}

	return transform.AssembleFromNames(j.Categorical, j.Numeric, p.Imputer, num, cat, opts...)
}
