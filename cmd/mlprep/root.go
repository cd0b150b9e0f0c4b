package main

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/go-mlprep/internal/config"
)

// app holds what every sub command needs once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// newRootCmd builds the mlprep command tree. A nil logger is built from the log configuration.
func newRootCmd(logger *zap.Logger) *cobra.Command {
	a := &app{logger: logger}

	root := &cobra.Command{
		Use:          "mlprep",
		Short:        "Prepare tabular datasets for training",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML configuration file")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newFetchCmd(a), newPrepareCmd(a))

	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger := a.logger
	if logger == nil {
		logger, err = cfg.Logger()
		if err != nil {
			return errors.Wrap(err, "unable to create logger")
		}
	}

	a.cfg = cfg
	a.logger = logger.With(zap.String("run_id", uuid.NewString()), zap.String("command", cmd.Name()))

	return nil
}
