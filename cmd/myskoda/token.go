package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/myskoda/internal/app"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored access token.",
	}
	cmd.AddCommand(newTokenSetCmd(root))
	return cmd
}

func newTokenSetCmd(root *rootOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "set <token>",
		Short: "Store an access token for later commands.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(root.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			expiresAt, err := app.SaveToken(cmd.Context(), root.cfg, store, args[0], ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token stored under %q, expires %s\n", root.cfg.TokenKey, expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime. Defaults to the JWT exp claim, then MYSKODA_TOKEN_TTL_SECONDS.")
	return cmd
}
