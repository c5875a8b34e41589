package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/myskoda/internal/app"
	"github.com/samvad-hq/myskoda/internal/logger"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll configured vehicles and publish driving range changes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.InfoObj("watcher starting", "config", redacted(root.cfg))

			watcher, err := app.NewWatcher(cmd.Context(), root.cfg, logger.ZapLogger{})
			if err != nil {
				logger.ErrorObj("failed to initialize watcher", "error", err)
				return err
			}
			if err := watcher.Run(cmd.Context()); err != nil {
				return fmt.Errorf("watcher run: %w", err)
			}
			return nil
		},
	}
}
