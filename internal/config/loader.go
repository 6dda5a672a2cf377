package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYBOARD_* environment variable overrides, and
// returns the final Config. A missing config file is not an error; the
// defaults plus environment overrides are used instead. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYBOARD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators tune the deployment without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Gamma ──
	setStr(&cfg.Gamma.Host, "POLYBOARD_GAMMA_HOST")
	setInt(&cfg.Gamma.PageSize, "POLYBOARD_GAMMA_PAGE_SIZE")
	setInt(&cfg.Gamma.MaxAttempts, "POLYBOARD_GAMMA_MAX_ATTEMPTS")
	setDuration(&cfg.Gamma.RetryBackoff, "POLYBOARD_GAMMA_RETRY_BACKOFF")
	setDuration(&cfg.Gamma.RequestTimeout, "POLYBOARD_GAMMA_REQUEST_TIMEOUT")

	// ── Rewards ──
	setBool(&cfg.Rewards.Enabled, "POLYBOARD_REWARDS_ENABLED")
	setStr(&cfg.Rewards.Host, "POLYBOARD_REWARDS_HOST")
	setInt(&cfg.Rewards.NominalPageSize, "POLYBOARD_REWARDS_NOMINAL_PAGE_SIZE")
	setInt(&cfg.Rewards.FullPageThreshold, "POLYBOARD_REWARDS_FULL_PAGE_THRESHOLD")
	setInt(&cfg.Rewards.MaxPages, "POLYBOARD_REWARDS_MAX_PAGES")
	setDuration(&cfg.Rewards.PageTimeout, "POLYBOARD_REWARDS_PAGE_TIMEOUT")
	setDuration(&cfg.Rewards.SettleDelay, "POLYBOARD_REWARDS_SETTLE_DELAY")
	setBool(&cfg.Rewards.Headless, "POLYBOARD_REWARDS_HEADLESS")

	// ── Refresh ──
	setDuration(&cfg.Refresh.Interval, "POLYBOARD_REFRESH_INTERVAL")
	setFloat64(&cfg.Refresh.ActivityFloor, "POLYBOARD_REFRESH_ACTIVITY_FLOOR")

	// ── Server ──
	setInt(&cfg.Server.Port, "POLYBOARD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYBOARD_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYBOARD_MODE")
	setStr(&cfg.LogLevel, "POLYBOARD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
