package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/askiada/go-mlprep/pkg/dataset"
	"github.com/askiada/go-mlprep/pkg/pipeline/drawer"
	"github.com/askiada/go-mlprep/pkg/pipeline/measure"
	"github.com/askiada/go-mlprep/pkg/pipeline/model"
	"github.com/askiada/go-mlprep/pkg/prepare"
)

func newPrepareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Split the dataset, fit the preprocessing plan and write both splits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.prepare(cmd)
		},
	}
}

func (a *app) prepare(cmd *cobra.Command) (err error) {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	out := a.cfg.Output

	var (
		m        *measure.DefaultMeasure
		pipeOpts []model.PipelineOption
	)

	if out.Graph != "" || out.Metrics != "" {
		m = measure.NewDefaultMeasure()
		pipeOpts = append(pipeOpts, measure.PipelineMeasure(m))
	}

	if out.Graph != "" {
		graphFile, createErr := os.Create(out.Graph)
		if createErr != nil {
			return errors.Wrapf(createErr, "unable to create %s", out.Graph)
		}

		defer func() {
			if cerr := graphFile.Close(); cerr != nil && err == nil {
				err = errors.Wrapf(cerr, "unable to close %s", out.Graph)
			}
		}()

		pipeOpts = append(pipeOpts, drawer.PipelineDrawer(drawer.NewDOTDrawer(graphFile), m))
	}

	runner := prepare.NewRunner(
		prepare.WithLogger(a.logger),
		prepare.WithFetcher(dataset.NewFetcher(a.cfg.FetcherOptions(a.logger)...)),
		prepare.WithBatchSize(out.BatchSize),
		prepare.WithConcurrency(out.Concurrency),
		prepare.WithPipelineOptions(pipeOpts...),
	)

	res, err := runner.Run(cmd.Context(), a.cfg.Job())
	if err != nil {
		return err
	}

	if out.Metrics != "" {
		reg := prometheus.NewRegistry()
		if err := measure.Export(m, reg); err != nil {
			return err
		}

		if err := prometheus.WriteToTextfile(out.Metrics, reg); err != nil {
			return errors.Wrapf(err, "unable to write metrics to %s", out.Metrics)
		}
	}

	if out.Summary != "" {
		summary, err := res.Summary.YAML()
		if err != nil {
			return err
		}

		if err := os.WriteFile(out.Summary, summary, 0o644); err != nil { //nolint:gosec // readable report
			return errors.Wrapf(err, "unable to write summary to %s", out.Summary)
		}
	}

	return report(cmd.OutOrStdout(), res)
}

func report(w io.Writer, res *prepare.Result) error {
	splits := make([]string, 0, len(res.Rows))
	for name := range res.Rows {
		splits = append(splits, name)
	}

	sort.Strings(splits)

	for _, name := range splits {
		if _, err := fmt.Fprintf(w, "%s: %d rows\n", name, res.Rows[name]); err != nil {
			return errors.Wrap(err, "unable to write report")
		}
	}

	if _, err := fmt.Fprintf(w, "features: %d\n", len(res.FeatureNames)); err != nil {
		return errors.Wrap(err, "unable to write report")
	}

	for _, file := range res.Files {
		if _, err := fmt.Fprintln(w, file); err != nil {
			return errors.Wrap(err, "unable to write report")
		}
	}

	return nil
}
