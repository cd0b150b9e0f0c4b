package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/go-mlprep/pkg/dataset"
	"github.com/askiada/go-mlprep/pkg/logging"
	"github.com/askiada/go-mlprep/pkg/mlerr"
)

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the dataset unless it is already on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Dataset.Config
			if cfg.Dir == "" || cfg.Filename == "" {
				return mlerr.NewConfigError("dataset", "dir and filename must be set")
			}

			ctx := logging.IntoContext(cmd.Context(), a.logger)
			fetcher := dataset.NewFetcher(a.cfg.FetcherOptions(a.logger)...)

			path, err := fetcher.CreateDataset(ctx, cfg, a.cfg.DownloadOptions()...)
			if err != nil {
				return err
			}

			a.logger.Info("dataset ready", zap.String("path", path))
			fmt.Fprintln(cmd.OutOrStdout(), path)

			return nil
		},
	}
}
