// Package daemon wires the ledger into a long-running process: configuration
// loading and the periodic overdue sweep.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration, loaded from TOML.
type Config struct {
	API   APIConfig   `toml:"api"`
	Store StoreConfig `toml:"store"`
	Sweep SweepConfig `toml:"sweep"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// StoreConfig configures persistence. An empty path selects the in-memory
// stores (state is lost on restart).
type StoreConfig struct {
	Path string `toml:"path"`
}

// SweepConfig configures the overdue sweep schedule.
type SweepConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"` // Go duration, e.g. "24h"
}

// DefaultConfig returns production defaults: local API, durable store under
// the user's home, daily sweep.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8733,
			Metrics: true,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Sweep: SweepConfig{
			Enabled:  true,
			Interval: "24h",
		},
	}
}

// Load reads the config file at path, applying defaults for missing fields.
// A missing file is not an error — defaults are returned.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Addr returns the host:port the API server binds to.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SweepInterval parses the configured interval, falling back to daily on a
// malformed value.
func (c SweepConfig) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// defaultStorePath places the database under the user's home directory.
func defaultStorePath() string {
	if env := os.Getenv("CREDITLEDGER_HOME"); env != "" {
		return filepath.Join(env, "ledger.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "ledger.db"
	}
	return filepath.Join(home, ".creditledger", "ledger.db")
}
