package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rigmon/rigmon/internal/jsonpath"
	"github.com/rigmon/rigmon/internal/miner"
)

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "get <miner> <endpoint> [path]",
		Short:         "Resolve a dotted path against a miner's cached data",
		Long:          "Resolves a dotted path (e.g. resources.memory.free or 0.hashrate.1) against the named endpoint. Prints N/A when the value is not available live or in history.",
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			ep, err := miner.ParseEndpoint(args[1])
			if err != nil {
				return err
			}

			selector := ""
			if len(args) == 3 {
				selector = args[2]
			}

			value, ok := client.Lookup(ctx, ep, jsonpath.Parse(selector))
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "N/A")
				return nil
			}
			return printValue(cmd, value)
		},
	}
}

func newFieldsCommand() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:           "field <miner> [name]",
		Short:         "Resolve a named field (sum_uptime, be_cpu_hashrate_10s, ...)",
		Args:          cobra.RangeArgs(0, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list || len(args) < 2 {
				for _, name := range miner.FieldNames() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
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
			value, ok := client.Field(ctx, args[1])
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "N/A")
				return nil
			}
			return printValue(cmd, value)
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list known field names and exit")
	return cmd
}

func printValue(cmd *cobra.Command, value any) error {
	switch v := value.(type) {
	case nil:
		fmt.Fprintln(cmd.OutOrStdout(), "null")
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case bool, float64:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	default:
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	}
	return nil
}
