// Package config loads the perfdash server configuration.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NavarchProject/perfdash/pkg/chart"
	"github.com/NavarchProject/perfdash/pkg/dashboard"
	"github.com/NavarchProject/perfdash/pkg/store"
)

// Config is the root configuration for perfdash.
type Config struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Storage   StorageConfig   `yaml:"storage,omitempty"`
	Dashboard DashboardConfig `yaml:"dashboard,omitempty"`
	Client    ClientConfig    `yaml:"client,omitempty"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Address string `yaml:"address,omitempty"` // Default: ":8080"
	Metrics bool   `yaml:"metrics"`           // Serve /metrics. Default: true
}

// StorageConfig selects the run store.
type StorageConfig struct {
	Driver string `yaml:"driver,omitempty"` // memory, sqlite, postgres
	DSN    string `yaml:"dsn,omitempty"`
}

// DashboardConfig describes what the dashboard renders and how it filters.
type DashboardConfig struct {
	// APIURL is the listing endpoint base URL. Empty reads the local store.
	APIURL      string                  `yaml:"api_url,omitempty"`
	Charts      []string                `yaml:"charts,omitempty"`
	Table       dashboard.TableStrategy `yaml:"table,omitempty"`       // widget, manual
	FilterMode  dashboard.FilterMode    `yaml:"filter_mode,omitempty"` // server, client
	AutoSelect  bool                    `yaml:"auto_select"`
	PageSize    int                     `yaml:"page_size,omitempty"`
	MaxSessions int                     `yaml:"max_sessions,omitempty"`
}

// ClientConfig configures fetches against a remote listing endpoint.
type ClientConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Retries int           `yaml:"retries,omitempty"` // Attempts beyond the first. Default: 0
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Server:    ServerConfig{Metrics: true},
		Dashboard: DashboardConfig{AutoSelect: true},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes. Keys not present keep their
// default values.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "", store.DriverMemory:
	case store.DriverSQLite, store.DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage: dsn is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}

	for _, id := range c.Dashboard.Charts {
		if !slices.Contains(chart.IDs, id) {
			return fmt.Errorf("dashboard: unknown chart %q", id)
		}
	}
	switch c.Dashboard.Table {
	case "", dashboard.TableWidget, dashboard.TableManual:
	default:
		return fmt.Errorf("dashboard: unknown table strategy %q", c.Dashboard.Table)
	}
	switch c.Dashboard.FilterMode {
	case "", dashboard.FilterServer, dashboard.FilterClient:
	default:
		return fmt.Errorf("dashboard: unknown filter mode %q", c.Dashboard.FilterMode)
	}
	if c.Dashboard.PageSize < 0 {
		return fmt.Errorf("dashboard: page_size must be >= 0")
	}
	if c.Dashboard.MaxSessions < 0 {
		return fmt.Errorf("dashboard: max_sessions must be >= 0")
	}

	if c.Client.Timeout < 0 {
		return fmt.Errorf("client: timeout must be >= 0")
	}
	if c.Client.Retries < 0 {
		return fmt.Errorf("client: retries must be >= 0")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = store.DriverMemory
	}
	if len(c.Dashboard.Charts) == 0 {
		c.Dashboard.Charts = slices.Clone(chart.IDs)
	}
	if c.Dashboard.Table == "" {
		c.Dashboard.Table = dashboard.TableWidget
	}
	if c.Dashboard.FilterMode == "" {
		c.Dashboard.FilterMode = dashboard.FilterServer
	}
	if c.Dashboard.PageSize == 0 {
		c.Dashboard.PageSize = 20
	}
	if c.Dashboard.MaxSessions == 0 {
		c.Dashboard.MaxSessions = 1024
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = 30 * time.Second
	}
}
