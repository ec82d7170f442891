package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rigmon/rigmon/internal/miner"
)

func newControlCommand(action miner.Action, short string) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s [miner]", action),
		Short:         short,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !all && len(args) == 0 {
				return errors.New("name a miner or pass --all")
			}

			reg, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if all {
				var failed int
				for _, res := range reg.Broadcast(ctx, action) {
					if res.Err != nil {
						failed++
						fmt.Fprintf(cmd.OutOrStdout(), "%s\tfailed: %v\n", res.Name, res.Err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tok\n", res.Name)
				}
				if failed > 0 {
					return fmt.Errorf("%s failed on %d miner(s)", action, failed)
				}
				return nil
			}

			client, err := reg.Get(args[0])
			if err != nil {
				return err
			}
			if err := client.Control(ctx, action); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tok\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "apply to every configured miner")
	return cmd
}
