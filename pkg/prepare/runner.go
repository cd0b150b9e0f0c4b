package prepare

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-mlprep/pkg/dataset"
	"github.com/askiada/go-mlprep/pkg/features"
	"github.com/askiada/go-mlprep/pkg/logging"
	"github.com/askiada/go-mlprep/pkg/pipeline"
	"github.com/askiada/go-mlprep/pkg/pipeline/model"
	"github.com/askiada/go-mlprep/pkg/transform"
)

const (
	// SplitTrain and SplitValidation prefix the output files of each split.
	SplitTrain      = "train"
	SplitValidation = "validation"

	defaultBatchSize   = 256
	defaultConcurrency = 2
)

// Runner runs preparation jobs.
type Runner struct {
	fetcher     *dataset.Fetcher
	logger      *zap.Logger
	batchSize   int
	concurrency int
	pipeOpts    []model.PipelineOption
}

// RunnerOption configures a Runner.
type RunnerOption func(r *Runner)

// WithLogger sets the logger of the runner. It is also handed to the steps of every job.
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithFetcher replaces the fetcher downloading datasets.
func WithFetcher(fetcher *dataset.Fetcher) RunnerOption {
	return func(r *Runner) {
		r.fetcher = fetcher
	}
}

// WithBatchSize sets how many rows are transformed at once. It defaults to 256.
func WithBatchSize(size int) RunnerOption {
	return func(r *Runner) {
		r.batchSize = size
	}
}

// WithConcurrency sets how many batches are transformed in parallel. It defaults to 2.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		r.concurrency = n
	}
}

// WithPipelineOptions observes the streaming pipeline, for instance with measure.PipelineMeasure.
// Pipeline options hold state, a runner given some must run a single job.
func WithPipelineOptions(opts ...model.PipelineOption) RunnerOption {
	return func(r *Runner) {
		r.pipeOpts = append(r.pipeOpts, opts...)
	}
}

// NewRunner returns a runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger:      zap.NewNop(),
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.fetcher == nil {
		r.fetcher = dataset.NewFetcher(dataset.WithLogger(r.logger))
	}

	r.batchSize = max(r.batchSize, 1)
	r.concurrency = max(r.concurrency, 1)

	return r
}

// Result reports what a job produced.
type Result struct {
	DatasetPath  string                      `yaml:"dataset_path"`
	Rows         map[string]int              `yaml:"rows"`
	FeatureNames []string                    `yaml:"feature_names"`
	Files        []string                    `yaml:"files"`
	Profiles     map[string][]FeatureProfile `yaml:"profiles"`
	Summary      transform.PlanSummary       `yaml:"summary"`
}

// Run executes job. Output files already written are kept when it fails.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	ctx = logging.IntoContext(ctx, r.logger)

	if err := job.Validate(); err != nil {
		r.logger.Error("invalid preparation job", zap.Error(err))

		return nil, err
	}

	datasetPath, err := r.fetcher.CreateDataset(ctx, job.Dataset, job.downloadOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to fetch dataset")
	}

	df, err := dataset.ReadDataset(ctx, job.Dataset, dataset.WithDelimiter(job.delimiter()))
	if err != nil {
		return nil, errors.Wrap(err, "unable to read dataset")
	}

	split, err := r.split(ctx, df, job)
	if err != nil {
		return nil, err
	}

	plan, err := job.plan()
	if err != nil {
		r.logger.Error("unable to assemble preprocessing plan", zap.Error(err))

		return nil, err
	}

	if err := plan.Fit(ctx, split.TrainFeatures); err != nil {
		return nil, errors.Wrap(err, "unable to fit preprocessing plan")
	}

	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "unable to create output dir %s", job.OutputDir)
	}

	result := &Result{
		DatasetPath:  datasetPath,
		FeatureNames: plan.FeatureNames(),
		Summary:      plan.Describe(),
	}

	for _, t := range []struct {
		name   string
		target series.Series
	}{{SplitTrain, split.TrainTarget}, {SplitValidation, split.ValTarget}} {
		file, err := writeTarget(job.OutputDir, t.name, t.target)
		if err != nil {
			return nil, err
		}

		result.Files = append(result.Files, file)
	}

	files, profiles, err := r.stream(ctx, plan, job.OutputDir, map[string]dataframe.DataFrame{
		SplitTrain:      split.TrainFeatures,
		SplitValidation: split.ValFeatures,
	})
	if err != nil {
		r.logger.Error("unable to stream features", zap.Error(err))

		return nil, err
	}

	result.Files = append(result.Files, files...)
	result.Profiles = make(map[string][]FeatureProfile, len(profiles))
	result.Rows = make(map[string]int, len(profiles))

	for name, prof := range profiles {
		result.Profiles[name] = prof.features(result.FeatureNames)
		result.Rows[name] = prof.rows
	}

	r.logger.Info("preparation finished",
		zap.Int(SplitTrain, result.Rows[SplitTrain]),
		zap.Int(SplitValidation, result.Rows[SplitValidation]),
		zap.Int("features", len(result.FeatureNames)),
		zap.String("output", job.OutputDir))

	return result, nil
}

func (r *Runner) split(ctx context.Context, df dataframe.DataFrame, job Job) (*features.Split, error) {
	target, err := features.ExtractTarget(ctx, df, job.Target)
	if err != nil {
		return nil, err
	}

	feats, err := features.ExtractFeatureColumns(ctx, df, job.featureColumns())
	if err != nil {
		return nil, err
	}

	return features.SplitData(ctx, feats, target, job.Split)
}

func writeTarget(dir, split string, target series.Series) (string, error) {
	name := filepath.Join(dir, split+"_target.csv")

	file, err := os.Create(name)
	if err != nil {
		return "", errors.Wrapf(err, "unable to create %s", name)
	}
	defer file.Close()

	err = dataframe.New(target).WriteCSV(file)
	if err != nil {
		return "", errors.Wrapf(err, "unable to write %s", name)
	}

	return name, file.Close()
}

type batch struct {
	split string
	index int
	rows  dataframe.DataFrame
}

type transformed struct {
	split string
	index int
	x     *mat.Dense
}

// stream transforms tables batch by batch and writes one features file per table.
//
//	batch -> transform (concurrent) -> split -> write features
//	                                        \-> profile
func (r *Runner) stream(ctx context.Context, plan *transform.Plan, dir string, tables map[string]dataframe.DataFrame) ([]string, map[string]*profile, error) {
	names := []string{SplitTrain, SplitValidation}

	writers := make(map[string]*orderedWriter, len(names))
	profiles := make(map[string]*profile, len(names))

	var files []string

	defer func() {
		for _, w := range writers {
			_ = w.close()
		}
	}()

	for _, name := range names {
		w, err := newOrderedWriter(filepath.Join(dir, name+"_features.csv"), plan.FeatureNames())
		if err != nil {
			return nil, nil, err
		}

		writers[name] = w
		profiles[name] = newProfile(len(plan.FeatureNames()))
		files = append(files, w.name)
	}

	pipe, err := pipeline.New(ctx, r.pipeOpts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to create pipeline")
	}

	batches, err := pipeline.AddRootStep(pipe, "batch", func(ctx context.Context, rootChan chan<- batch) error {
		for _, name := range names {
			err := emitBatches(ctx, rootChan, name, tables[name], r.batchSize)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to add batch step")
	}

	outputs, err := pipeline.AddStepOneToOne(pipe, "transform", batches, func(ctx context.Context, in batch) (transformed, error) {
		x, err := plan.Transform(ctx, in.rows)
		if err != nil {
			return transformed{}, errors.Wrapf(err, "%s batch %d", in.split, in.index)
		}

		return transformed{split: in.split, index: in.index, x: x}, nil
	}, pipeline.StepConcurrency[transformed](r.concurrency))
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to add transform step")
	}

	splitter, err := pipeline.AddSplitter(pipe, "split", outputs, 2, pipeline.SplitterBufferSize[transformed](r.concurrency))
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to add splitter")
	}

	toWrite, _ := splitter.Get()
	toProfile, _ := splitter.Get()

	err = pipeline.AddSinkFromChan(pipe, "write features", toWrite, func(ctx context.Context, input <-chan transformed) error {
		return writeOrdered(ctx, input, writers)
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to add write sink")
	}

	err = pipeline.AddSink(pipe, "profile", toProfile, func(_ context.Context, in transformed) error {
		profiles[in.split].add(in.x)

		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to add profile sink")
	}

	if err := pipe.Run(); err != nil {
		return nil, nil, errors.Wrap(err, "unable to run pipeline")
	}

	for _, name := range names {
		if err := writers[name].close(); err != nil {
			return nil, nil, err
		}
	}

	return files, profiles, nil
}

func emitBatches(ctx context.Context, rootChan chan<- batch, split string, table dataframe.DataFrame, size int) error {
	for index, lo := 0, 0; lo < table.Nrow(); index, lo = index+1, lo+size {
		hi := min(lo+size, table.Nrow())

		rows := make([]int, 0, hi-lo)
		for i := lo; i < hi; i++ {
			rows = append(rows, i)
		}

		sub := table.Subset(rows)
		if sub.Err != nil {
			return errors.Wrapf(sub.Err, "unable to cut %s batch %d", split, index)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case rootChan <- batch{split: split, index: index, rows: sub}:
		}
	}

	return nil
}

func writeOrdered(ctx context.Context, input <-chan transformed, writers map[string]*orderedWriter) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-input:
			if !ok {
				for _, w := range writers {
					if err := w.flush(); err != nil {
						return err
					}
				}

				return nil
			}

			w, found := writers[in.split]
			if !found {
				return errors.Errorf("no writer for split %s", in.split)
			}

			if err := w.write(in.index, in.x); err != nil {
				return err
			}
		}
	}
}
