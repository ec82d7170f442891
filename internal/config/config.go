// Package config loads the rigmon CLI configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Miner describes one monitored instance.
type Miner struct {
	Name  string `toml:"name"`
	Host  string `toml:"host"`
	Port  int    `toml:"port"`
	Token string `toml:"token"`
	TLS   bool   `toml:"tls"`
}

// Config is the root of the TOML configuration file.
type Config struct {
	// DB is the snapshot database path. Empty disables persistence.
	DB     string  `toml:"db"`
	Miners []Miner `toml:"miners"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Miners))
	for i, m := range c.Miners {
		if m.Name == "" {
			return fmt.Errorf("miner #%d: name required", i+1)
		}
		if seen[m.Name] {
			return fmt.Errorf("miner %q listed twice", m.Name)
		}
		seen[m.Name] = true
		if m.Host == "" {
			return fmt.Errorf("miner %q: host required", m.Name)
		}
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("miner %q: port %d out of range", m.Name, m.Port)
		}
	}
	return nil
}
