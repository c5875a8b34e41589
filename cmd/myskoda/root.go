package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/myskoda/internal/config"
	"github.com/samvad-hq/myskoda/internal/logger"
)

type rootOptions struct {
	logLevel string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "myskoda",
		Short:         "Query MySkoda vehicle status and watch driving range.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			if _, err := logger.Init(cfg.LogLevel); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Close()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error). Overrides MYSKODA_LOG_LEVEL.")

	cmd.AddCommand(
		newRangeCmd(opts),
		newTokenCmd(opts),
		newWatchCmd(opts),
	)
	return cmd
}
