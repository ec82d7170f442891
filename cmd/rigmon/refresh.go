package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "refresh [miner]",
		Short:         "Re-fetch all endpoints for one miner or all",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 1 {
				client, err := reg.Get(args[0])
				if err != nil {
					return err
				}
				if err := client.RefreshAll(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tok\n", args[0])
				return nil
			}

			var failed int
			for _, res := range reg.RefreshAll(ctx) {
				if res.Err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tfailed: %v\n", res.Name, res.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tok\n", res.Name)
			}
			if failed > 0 {
				return fmt.Errorf("refresh failed on %d miner(s)", failed)
			}
			return nil
		},
	}
}
