// Package config loads the mlprep configuration from a YAML file, MLPREP_* environment variables and
// command line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/askiada/go-mlprep/pkg/dataset"
	"github.com/askiada/go-mlprep/pkg/features"
	"github.com/askiada/go-mlprep/pkg/logging"
	"github.com/askiada/go-mlprep/pkg/mlerr"
	"github.com/askiada/go-mlprep/pkg/prepare"
	"github.com/askiada/go-mlprep/pkg/transform"
)

// EnvPrefix prefixes every environment variable read by Load, e.g. MLPREP_OUTPUT_DIR.
const EnvPrefix = "MLPREP"

// Dataset locates the raw dataset.
type Dataset struct {
	dataset.Config `mapstructure:",squash" yaml:",inline"`

	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
}

// Features names the target and the feature groups.
type Features struct {
	Target      string   `mapstructure:"target" yaml:"target"`
	Numeric     []string `mapstructure:"numeric" yaml:"numeric"`
	Categorical []string `mapstructure:"categorical" yaml:"categorical"`
	// Columns lists the columns read from the dataset. It defaults to numeric then categorical.
	Columns []string `mapstructure:"columns" yaml:"columns,omitempty"`
}

// Fetch controls the dataset download.
type Fetch struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries   int           `mapstructure:"retries" yaml:"retries"`
	Checksum  string        `mapstructure:"checksum" yaml:"checksum,omitempty"`
	Overwrite bool          `mapstructure:"overwrite" yaml:"overwrite"`
}

// Output controls where results go and how the streaming pipeline runs.
type Output struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	BatchSize   int    `mapstructure:"batch_size" yaml:"batch_size"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	// Graph, Metrics and Summary are optional file paths.
	Graph   string `mapstructure:"graph" yaml:"graph,omitempty"`
	Metrics string `mapstructure:"metrics" yaml:"metrics,omitempty"`
	Summary string `mapstructure:"summary" yaml:"summary,omitempty"`
}

// Log configures the logger.
type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config is the whole mlprep configuration.
type Config struct {
	Dataset    Dataset              `mapstructure:"dataset" yaml:"dataset"`
	Split      features.SplitConfig `mapstructure:"split" yaml:"split"`
	Features   Features             `mapstructure:"features" yaml:"features"`
	Preprocess prepare.Preprocess   `mapstructure:"preprocess" yaml:"preprocess"`
	Fetch      Fetch                `mapstructure:"fetch" yaml:"fetch"`
	Output     Output               `mapstructure:"output" yaml:"output"`
	Log        Log                  `mapstructure:"log" yaml:"log"`
}

var defaults = map[string]any{
	"dataset.dir":           "data",
	"split.validation":      0.2,
	"split.random_state":    42,
	"preprocess.scaler":     transform.Standard.String(),
	"preprocess.kernel":     transform.Linear.String(),
	"preprocess.encoder":    transform.OneHot.String(),
	"preprocess.imputer":    transform.Mean.String(),
	"fetch.timeout":         60 * time.Second,
	"fetch.retries":         3,
	"output.dir":            "prepared",
	"output.batch_size":     256,
	"output.concurrency":    2,
	"log.level":             "info",
	"log.format":            logging.FormatJSON,
	"preprocess.fill_value": 0.0,
}

// keys without a default still need to be known to viper for the environment to reach them.
var envOnly = []string{
	"dataset.filename",
	"dataset.source_url",
	"dataset.header",
	"dataset.column_names",
	"dataset.delimiter",
	"features.target",
	"features.numeric",
	"features.categorical",
	"features.columns",
	"preprocess.components",
	"preprocess.drop_unclaimed",
	"fetch.checksum",
	"fetch.overwrite",
	"output.graph",
	"output.metrics",
	"output.summary",
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"dataset-dir":    "dataset.dir",
	"dataset-file":   "dataset.filename",
	"dataset-url":    "dataset.source_url",
	"column-names":   "dataset.column_names",
	"delimiter":      "dataset.delimiter",
	"target":         "features.target",
	"numeric":        "features.numeric",
	"categorical":    "features.categorical",
	"validation":     "split.validation",
	"seed":           "split.random_state",
	"scaler":         "preprocess.scaler",
	"components":     "preprocess.components",
	"kernel":         "preprocess.kernel",
	"encoder":        "preprocess.encoder",
	"imputer":        "preprocess.imputer",
	"drop-unclaimed": "preprocess.drop_unclaimed",
	"timeout":        "fetch.timeout",
	"retries":        "fetch.retries",
	"checksum":       "fetch.checksum",
	"overwrite":      "fetch.overwrite",
	"output-dir":     "output.dir",
	"batch-size":     "output.batch_size",
	"concurrency":    "output.concurrency",
	"graph":          "output.graph",
	"metrics":        "output.metrics",
	"summary":        "output.summary",
	"log-level":      "log.level",
	"log-format":     "log.format",
}

// RegisterFlags adds the flags understood by Load to fs.
//
// The dataset header row has no flag: set it in the file or with MLPREP_DATASET_HEADER.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("dataset-dir", "data", "directory holding the raw dataset")
	fs.String("dataset-file", "", "dataset file name inside the dataset directory")
	fs.String("dataset-url", "", "url the dataset is downloaded from when missing")
	fs.StringSlice("column-names", nil, "column names of a dataset without header")
	fs.String("delimiter", "", "field delimiter of the dataset (default \",\")")
	fs.String("target", "", "target column")
	fs.StringSlice("numeric", nil, "numeric feature columns")
	fs.StringSlice("categorical", nil, "categorical feature columns")
	fs.Float64("validation", 0.2, "fraction of rows kept for validation")
	fs.Int64("seed", 42, "random state of the split")
	fs.String("scaler", transform.Standard.String(), "numeric scaler: standard or robust")
	fs.Int("components", 0, "kernel PCA components, 0 disables it")
	fs.String("kernel", transform.Linear.String(), "kernel PCA kernel")
	fs.String("encoder", transform.OneHot.String(), "categorical encoder: ohe or ordinal")
	fs.String("imputer", transform.Mean.String(), "numeric imputer: mean, median, most_frequent or constant")
	fs.Bool("drop-unclaimed", false, "ignore feature columns claimed by no group")
	fs.Duration("timeout", 60*time.Second, "timeout of a single download attempt")
	fs.Int("retries", 3, "download retries after a failed attempt")
	fs.String("checksum", "", "expected sha256 of the dataset file")
	fs.Bool("overwrite", false, "download the dataset even when it exists")
	fs.String("output-dir", "prepared", "directory receiving the prepared files")
	fs.Int("batch-size", 256, "rows transformed at once")
	fs.Int("concurrency", 2, "batches transformed in parallel")
	fs.String("graph", "", "write the pipeline graph in DOT format to this file")
	fs.String("metrics", "", "write pipeline metrics in Prometheus text format to this file")
	fs.String("summary", "", "write the fitted plan summary in YAML to this file")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("log-format", logging.FormatJSON, "log format: json or console")
}

// Load reads file when it is not empty, then the environment, then the flags of fs that were set.
// fs may be nil.
func Load(file string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range envOnly {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, "unable to bind %s to the environment", key)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}

			if err := v.BindPFlag(key, flag); err != nil {
				return nil, errors.Wrapf(err, "unable to bind flag %s", name)
			}
		}
	}

	if file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "unable to read config file %s", file)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode configuration")
	}

	return cfg, nil
}

// Validate checks every section. The first invalid field is reported as a *mlerr.ConfigError.
func (c *Config) Validate() error {
	if err := c.Dataset.Validate(); err != nil {
		return err
	}

	if len([]rune(c.Dataset.Delimiter)) > 1 {
		return &mlerr.ConfigError{Field: "dataset.delimiter", Value: c.Dataset.Delimiter, Reason: "must be a single character, got"}
	}

	if err := c.Split.Validate(); err != nil {
		return err
	}

	if c.Features.Target == "" {
		return mlerr.NewConfigError("features.target", "must be set")
	}

	if len(c.Features.Numeric) == 0 && len(c.Features.Categorical) == 0 {
		return mlerr.NewConfigError("features", "numeric and categorical groups are both empty")
	}

	if err := c.validatePreprocess(); err != nil {
		return err
	}

	if c.Fetch.Timeout <= 0 {
		return &mlerr.ConfigError{Field: "fetch.timeout", Value: c.Fetch.Timeout.String(), Reason: "must be positive, got"}
	}

	if c.Fetch.Retries < 0 {
		return &mlerr.ConfigError{Field: "fetch.retries", Value: fmt.Sprint(c.Fetch.Retries), Reason: "must not be negative, got"}
	}

	if c.Output.Dir == "" {
		return mlerr.NewConfigError("output.dir", "must be set")
	}

	if c.Output.BatchSize < 1 {
		return &mlerr.ConfigError{Field: "output.batch_size", Value: fmt.Sprint(c.Output.BatchSize), Reason: "must be positive, got"}
	}

	if c.Output.Concurrency < 1 {
		return &mlerr.ConfigError{Field: "output.concurrency", Value: fmt.Sprint(c.Output.Concurrency), Reason: "must be positive, got"}
	}

	if _, err := zapcore.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return mlerr.InvalidChoice("log.level", c.Log.Level, []string{"debug", "info", "warn", "error"})
	}

	switch strings.ToLower(c.Log.Format) {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		return mlerr.InvalidChoice("log.format", c.Log.Format, []string{logging.FormatJSON, logging.FormatConsole})
	}

	return nil
}

func (c *Config) validatePreprocess() error {
	p := c.Preprocess

	if _, err := transform.ParseScaler(p.Scaler); err != nil {
		return err
	}

	if _, err := transform.ParseKernel(p.Kernel); err != nil {
		return err
	}

	if _, err := transform.ParseEncoder(p.Encoder); err != nil {
		return err
	}

	if _, err := transform.ParseImputeStrategy(p.Imputer); err != nil {
		return err
	}

	if p.Components < 0 {
		return &mlerr.ConfigError{Field: "preprocess.components", Value: fmt.Sprint(p.Components), Reason: "must not be negative, got"}
	}

	return nil
}

// Job returns the preparation job described by c.
func (c *Config) Job() prepare.Job {
	return prepare.Job{
		Dataset:     c.Dataset.Config,
		Checksum:    c.Fetch.Checksum,
		Overwrite:   c.Fetch.Overwrite,
		Delimiter:   c.Dataset.Delimiter,
		Target:      c.Features.Target,
		Numeric:     c.Features.Numeric,
		Categorical: c.Features.Categorical,
		Features:    c.Features.Columns,
		Split:       c.Split,
		Preprocess:  c.Preprocess,
		OutputDir:   c.Output.Dir,
	}
}

// FetcherOptions returns the options of the dataset fetcher.
func (c *Config) FetcherOptions(logger *zap.Logger) []dataset.FetcherOption {
	return []dataset.FetcherOption{
		dataset.WithLogger(logger),
		dataset.WithTimeout(c.Fetch.Timeout),
		dataset.WithRetries(c.Fetch.Retries),
	}
}

// Logger builds the logger described by the log section.
func (c *Config) Logger() (*zap.Logger, error) {
	return logging.New(c.Log.Level, c.Log.Format)
}

// DownloadOptions returns the options of a dataset download.
func (c *Config) DownloadOptions() []dataset.DownloadOption {
	var opts []dataset.DownloadOption

	if c.Fetch.Overwrite {
		opts = append(opts, dataset.Overwrite())
	}

	if c.Fetch.Checksum != "" {
		opts = append(opts, dataset.WithChecksum(c.Fetch.Checksum))
	}

	return opts
}
