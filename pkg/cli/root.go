// Package cli wires the survival pipeline into the survival command.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"survival/pkg/config"
	"survival/pkg/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// NewRootCommand creates the root command of the survival CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "survival",
		Short:         "Titanic survival classifier",
		Long:          "Fit, persist and apply the Titanic preprocessing pipeline and its logistic regression.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file (defaults when empty)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log.level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "override log.format (json|text)")

	cmd.AddCommand(NewTrainCommand(opts))
	cmd.AddCommand(NewScoreCommand(opts))
	cmd.AddCommand(NewTransformCommand(opts))

	return cmd
}

// setup loads the config named by opts and builds the logger. Logs go to
// the command's error stream so stdout stays clean for results.
func setup(opts *RootOptions, cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return cfg, logger, nil
}
