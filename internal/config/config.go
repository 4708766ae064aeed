// Package config loads the server configuration from a YAML file, with
// environment overrides for the settings that differ per deployment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig selects and parameterizes the storage backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	// DSN is the driver-specific connection string. For sqlite it is a
	// file path; ":memory:" gives a throwaway instance.
	DSN string `yaml:"dsn"`
}

// AuthConfig holds token and password hashing settings.
type AuthConfig struct {
	// JWTSecret signs access tokens. Required in production mode.
	JWTSecret string `yaml:"jwt_secret"`
	// AccessTokenMinutes is the access-token lifetime in minutes.
	AccessTokenMinutes int `yaml:"access_token_minutes"`
	// RefreshTokenDays is the refresh-token lifetime in days.
	RefreshTokenDays int `yaml:"refresh_token_days"`
	// BcryptCost tunes password hashing. Zero means the bcrypt default.
	BcryptCost int `yaml:"bcrypt_cost"`
}

// AccessTokenTTL returns the access-token lifetime as a duration.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh-token lifetime as a duration.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenDays) * 24 * time.Hour
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// Mode is "development" or "production"; it selects logging format
	// and framework verbosity.
	Mode string `yaml:"mode"`

	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`

	// CORSOrigins lists the origins allowed to call the API from a
	// browser. Empty allows none.
	CORSOrigins []string `yaml:"cors_origins"`

	// JanitorCron is a cron schedule for background cleanup of expired
	// tokens and old soft-deleted rows. Empty disables the janitor.
	JanitorCron string `yaml:"janitor_cron"`
}

// DefaultConfig returns an in-memory default configuration suitable for
// local development.
func DefaultConfig() *Config {
	return &Config{
		Listen: "127.0.0.1:8080",
		Mode:   "development",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "taskflow.db",
		},
		Auth: AuthConfig{
			AccessTokenMinutes: 15,
			RefreshTokenDays:   30,
		},
		CORSOrigins: []string{"http://localhost:5173"},
		JanitorCron: "30 3 * * *",
	}
}

// Load reads the configuration. An empty path skips the file and uses
// defaults; a named file must exist. Environment variables are applied
// on top either way, then missing values are normalized.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.Normalize()
	return cfg, nil
}

// applyEnv overrides fields from TASKFLOW_* environment variables, so a
// container deployment does not need a config file at all.
func (c *Config) applyEnv() {
	set := func(target *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*target = v
		}
	}
	set(&c.Listen, "TASKFLOW_LISTEN")
	set(&c.Mode, "TASKFLOW_MODE")
	set(&c.Database.Driver, "TASKFLOW_DB_DRIVER")
	set(&c.Database.DSN, "TASKFLOW_DB_DSN")
	set(&c.Auth.JWTSecret, "TASKFLOW_JWT_SECRET")
	set(&c.JanitorCron, "TASKFLOW_JANITOR_CRON")
	if v, ok := os.LookupEnv("TASKFLOW_CORS_ORIGINS"); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORSOrigins = origins
	}
}

// Normalize fills missing or out-of-range values with defaults so a
// partially written config still behaves.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	switch c.Mode {
	case "development", "production":
	default:
		c.Mode = "development"
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	case "":
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = "taskflow.db"
	}
	if c.Auth.AccessTokenMinutes <= 0 {
		c.Auth.AccessTokenMinutes = 15
	}
	if c.Auth.RefreshTokenDays <= 0 {
		c.Auth.RefreshTokenDays = 30
	}
}

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return errors.New("postgres driver requires a dsn")
	}
	if c.Mode == "production" && c.Auth.JWTSecret == "" {
		return errors.New("production mode requires auth.jwt_secret")
	}
	return nil
}
