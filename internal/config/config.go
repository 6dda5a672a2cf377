// Package config defines the top-level configuration for the polyboard
// backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYBOARD_* environment variables.
type Config struct {
	Gamma    GammaConfig   `toml:"gamma"`
	Rewards  RewardsConfig `toml:"rewards"`
	Refresh  RefreshConfig `toml:"refresh"`
	Server   ServerConfig  `toml:"server"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// GammaConfig holds Gamma API endpoint and pagination parameters.
type GammaConfig struct {
	Host           string   `toml:"host"`
	PageSize       int      `toml:"page_size"`
	MaxAttempts    int      `toml:"max_attempts"`
	RetryBackoff   duration `toml:"retry_backoff"`
	RequestTimeout duration `toml:"request_timeout"`
}

// RewardsConfig holds rewards-page scraping parameters.
type RewardsConfig struct {
	Enabled           bool     `toml:"enabled"`
	Host              string   `toml:"host"`
	NominalPageSize   int      `toml:"nominal_page_size"`
	FullPageThreshold int      `toml:"full_page_threshold"`
	MaxPages          int      `toml:"max_pages"`
	PageTimeout       duration `toml:"page_timeout"`
	SettleDelay       duration `toml:"settle_delay"`
	Headless          bool     `toml:"headless"`
}

// RefreshConfig holds background refresh parameters.
type RefreshConfig struct {
	Interval      duration `toml:"interval"`
	ActivityFloor float64  `toml:"activity_floor"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Gamma: GammaConfig{
			Host:           "https://gamma-api.polymarket.com",
			PageSize:       100,
			MaxAttempts:    3,
			RetryBackoff:   duration{500 * time.Millisecond},
			RequestTimeout: duration{30 * time.Second},
		},
		Rewards: RewardsConfig{
			Enabled:           true,
			Host:              "https://polymarket.com",
			NominalPageSize:   100,
			FullPageThreshold: 90,
			MaxPages:          50,
			PageTimeout:       duration{30 * time.Second},
			SettleDelay:       duration{1500 * time.Millisecond},
			Headless:          true,
		},
		Refresh: RefreshConfig{
			Interval:      duration{5 * time.Minute},
			ActivityFloor: 10.0,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve": true,
	"once":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, once)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Gamma
	if c.Gamma.Host == "" {
		errs = append(errs, "gamma: host must not be empty")
	}
	if c.Gamma.PageSize < 1 || c.Gamma.PageSize > 100 {
		errs = append(errs, fmt.Sprintf("gamma: page_size must be 1-100 (upstream cap), got %d", c.Gamma.PageSize))
	}
	if c.Gamma.MaxAttempts < 1 {
		errs = append(errs, "gamma: max_attempts must be >= 1")
	}
	if c.Gamma.RequestTimeout.Duration <= 0 {
		errs = append(errs, "gamma: request_timeout must be > 0")
	}

	// Rewards
	if c.Rewards.Enabled {
		if c.Rewards.Host == "" {
			errs = append(errs, "rewards: host must not be empty")
		}
		if c.Rewards.NominalPageSize < 1 {
			errs = append(errs, "rewards: nominal_page_size must be >= 1")
		}
		if c.Rewards.FullPageThreshold < 1 || c.Rewards.FullPageThreshold > c.Rewards.NominalPageSize {
			errs = append(errs, fmt.Sprintf("rewards: full_page_threshold must be 1-%d, got %d",
				c.Rewards.NominalPageSize, c.Rewards.FullPageThreshold))
		}
		if c.Rewards.MaxPages < 1 {
			errs = append(errs, "rewards: max_pages must be >= 1")
		}
		if c.Rewards.PageTimeout.Duration <= 0 {
			errs = append(errs, "rewards: page_timeout must be > 0")
		}
	}

	// Refresh
	if c.Refresh.Interval.Duration < time.Second {
		errs = append(errs, "refresh: interval must be >= 1s")
	}
	if c.Refresh.ActivityFloor < 0 {
		errs = append(errs, "refresh: activity_floor must be >= 0")
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
