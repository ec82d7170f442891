package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rigmon/rigmon/internal/config"
	"github.com/rigmon/rigmon/internal/history"
)

func newHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:           "history <miner> <scope>",
		Short:         "Show recorded snapshots (summary, backends, config, backend:cpu, ...)",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.DB == "" {
				return fmt.Errorf("no snapshot database configured in %s", configPath)
			}

			// Read-only open: history inspection must not touch the rigs.
			hist, err := history.Open(history.Options{DBPath: cfg.DB, ReadOnly: true})
			if err != nil {
				return err
			}
			defer hist.Close()

			snaps, err := hist.Recent(cmd.Context(), args[0], history.Scope(args[1]), limit)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "N/A")
				return nil
			}
			for _, snap := range snaps {
				doc, err := json.Marshal(snap.Document)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n",
					snap.CapturedAt.Format("2006-01-02 15:04:05"), snap.ID, doc)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of snapshots to show")
	return cmd
}
