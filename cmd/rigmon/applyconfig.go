package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newApplyConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "apply-config <miner> <file>",
		Short:         "POST a full config document to a miner and resync its cache",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			var cfg map[string]any
			if err := json.Unmarshal(raw, &cfg); err != nil {
				return fmt.Errorf("parse %s: %w", args[1], err)
			}

			ctx := cmd.Context()
			reg, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			client, err := reg.Get(args[0])
			if err != nil {
				return err
			}
			if err := client.ApplyConfig(ctx, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tconfig applied\n", args[0])
			return nil
		},
	}
}
