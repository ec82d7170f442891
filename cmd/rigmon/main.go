// rigmon is a command-line front end for monitoring and controlling
// XMRig miners over their HTTP API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/rigmon/rigmon/internal/config"
	"github.com/rigmon/rigmon/internal/history"
	"github.com/rigmon/rigmon/internal/miner"
	"github.com/rigmon/rigmon/internal/registry"
	"github.com/rigmon/rigmon/internal/version"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "rigmon",
		Short:         "Monitor and control XMRig miners",
		Version:       version.Format(version.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "rigmon.toml", "path to the rigmon configuration file")

	root.AddCommand(
		newMinersCommand(),
		newRefreshCommand(),
		newGetCommand(),
		newFieldsCommand(),
		newControlCommand(miner.ActionPause, "Pause mining on a miner (or all)"),
		newControlCommand(miner.ActionResume, "Resume mining on a miner (or all)"),
		newControlCommand(miner.ActionStop, "Stop mining on a miner (or all)"),
		newControlCommand(miner.ActionStart, "Start mining by re-posting the last known config"),
		newApplyConfigCommand(),
		newHistoryCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rigmon:", err)
		os.Exit(1)
	}
}

// setup loads the configuration, opens the snapshot store (when
// configured) and registers every listed miner. Miners that cannot be
// reached are skipped with a warning so one dead rig does not block
// operations on the rest.
func setup(ctx context.Context) (*registry.Registry, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	var hist *history.Store
	cleanup := func() {}
	if cfg.DB != "" {
		hist, err = history.Open(history.Options{DBPath: cfg.DB})
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { hist.Close() }
	}

	reg := registry.New(hist)
	for _, m := range cfg.Miners {
		opts := miner.Options{
			Name:  m.Name,
			Host:  m.Host,
			Port:  m.Port,
			Token: m.Token,
			TLS:   m.TLS,
		}
		if err := reg.Add(ctx, opts); err != nil {
			log.Printf("[CLI] skipping %s: %v", m.Name, err)
		}
	}
	return reg, cleanup, nil
}
