// Package config loads and validates the server configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all settings for the alarm routine manager server.
type Config struct {
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// DatabasePath is the path to the SQLite database file.
	DatabasePath string `yaml:"database_path"`

	// Sync holds calendar synchronization settings.
	Sync SyncConfig `yaml:"sync"`

	// Providers lists the configured calendar providers.
	Providers []ProviderConfig `yaml:"providers"`
}

// SyncConfig controls the calendar sync scheduler and coordinator.
type SyncConfig struct {
	// IntervalMin is how often the background sync runs, in minutes.
	IntervalMin int `yaml:"interval_min"`

	// CycleTimeout bounds one full sync cycle for a user.
	CycleTimeout time.Duration `yaml:"cycle_timeout"`

	// MaxRetries is the retry budget for transient provider failures,
	// per action. An explicit zero disables retries; omitting the key
	// uses the default.
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the base delay between retries.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// ProviderConfig describes one external calendar provider connection.
type ProviderConfig struct {
	// Name uniquely identifies the provider (e.g. "google", "outlook").
	Name string `yaml:"name"`

	// Kind selects the client implementation: "google", "outlook" or
	// "caldav".
	Kind string `yaml:"kind"`

	// BaseURL is the provider API endpoint.
	BaseURL string `yaml:"base_url"`

	// AccessToken authorizes REST providers (google, outlook).
	AccessToken string `yaml:"access_token,omitempty"`

	// Username and Password authorize CalDAV providers.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Timeout bounds individual API calls. Zero means the default.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

const (
	// DefaultConfigFilename is the default configuration file name.
	DefaultConfigFilename = "alarm-manager.yaml"

	// DefaultDatabasePath is used when no database path is configured.
	DefaultDatabasePath = "/data/alarm-manager.db"

	// DefaultSyncIntervalMin is the default background sync interval.
	DefaultSyncIntervalMin = 15

	// DefaultCycleTimeout bounds a sync cycle when not configured.
	DefaultCycleTimeout = 2 * time.Minute

	// DefaultMaxRetries is the default transient-failure retry budget.
	DefaultMaxRetries = 2

	// DefaultRetryBackoff is the default base delay between retries.
	DefaultRetryBackoff = 500 * time.Millisecond

	// DefaultProviderTimeout bounds provider API calls when not configured.
	DefaultProviderTimeout = 10 * time.Second
)

var (
	errProviderNameRequired = errors.New("provider name must be provided")
	errProviderURLRequired  = errors.New("provider base_url must be provided")
)

// Load reads the configuration from path, applies defaults and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Seed values where zero is meaningful, so an explicit zero in the
	// file survives while an absent key falls back to the default.
	cfg := Config{Sync: SyncConfig{MaxRetries: DefaultMaxRetries}}
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied and no providers.
func Default() *Config {
	cfg := &Config{Sync: SyncConfig{MaxRetries: DefaultMaxRetries}}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}
	if c.Sync.IntervalMin <= 0 {
		c.Sync.IntervalMin = DefaultSyncIntervalMin
	}
	if c.Sync.CycleTimeout <= 0 {
		c.Sync.CycleTimeout = DefaultCycleTimeout
	}
	if c.Sync.MaxRetries < 0 {
		c.Sync.MaxRetries = 0
	}
	if c.Sync.RetryBackoff <= 0 {
		c.Sync.RetryBackoff = DefaultRetryBackoff
	}
	for i := range c.Providers {
		if c.Providers[i].Timeout <= 0 {
			c.Providers[i].Timeout = DefaultProviderTimeout
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return errProviderNameRequired
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider name: %s", p.Name)
		}
		seen[p.Name] = true

		if p.BaseURL == "" {
			return fmt.Errorf("provider %s: %w", p.Name, errProviderURLRequired)
		}

		switch p.Kind {
		case "google", "outlook", "caldav":
		default:
			return fmt.Errorf("provider %s: unknown kind %q", p.Name, p.Kind)
		}
	}

	return nil
}
