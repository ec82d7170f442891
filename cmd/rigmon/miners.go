package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMinersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "miners",
		Short:         "Work with the configured miners",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newMinersListCommand())
	return cmd
}

func newMinersListCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List configured miners and their status",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, name := range reg.List() {
				client, err := reg.Get(name)
				if err != nil {
					continue
				}

				status := "up"
				if paused, ok := client.Paused(ctx); ok && paused {
					status = "paused"
				}
				uptime := "N/A"
				if s, ok := client.UptimeReadable(ctx); ok {
					uptime = s
				}
				hashrate := "N/A"
				if hr, ok := client.Hashrate10s(ctx); ok {
					hashrate = fmt.Sprintf("%.1f H/s", hr)
				}
				backends := client.EnabledBackends(ctx)

				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tuptime %s\t%s\tbackends %v\n",
					name, client.BaseURL(), status, uptime, hashrate, backends)
			}
			return nil
		},
	}
}
