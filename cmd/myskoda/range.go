package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/myskoda/internal/app"
	"github.com/samvad-hq/myskoda/internal/logger"
)

func newRangeCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "range <vin>",
		Short: "Print the remaining driving range of a vehicle.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(root.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			client, err := app.NewClient(root.cfg, store, logger.ZapLogger{})
			if err != nil {
				return err
			}

			status, err := client.GetDrivingRange(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get driving range: %w", err)
			}
			return writeOutput(cmd.OutOrStdout(), output, status)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format (json or yaml).")
	return cmd
}

func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
