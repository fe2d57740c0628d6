// Package config handles configuration for the server component:
// defaults, then an environment overlay, then command-line flags.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings for the server.
//
// StorageKind selects the persistence backend: "local" (process memory),
// "json" (one document per record type under DataDir), "sqlite" (embedded
// database file under DataDir, or in-memory when SQLitePath is ":memory:"),
// or "postgres" (networked, built from the Postgres* fields).
type Config struct {
	ListenAddr  string `env:"MODHOST_LISTEN_ADDR"`
	StorageKind string `env:"MODHOST_STORAGE_KIND"`
	DataDir     string `env:"MODHOST_DATA_DIR"`
	SQLitePath  string `env:"MODHOST_SQLITE_PATH"`

	PostgresHost     string `env:"MODHOST_PG_HOST"`
	PostgresPort     int    `env:"MODHOST_PG_PORT"`
	PostgresUser     string `env:"MODHOST_PG_USER"`
	PostgresPassword string `env:"MODHOST_PG_PASSWORD"`
	PostgresDatabase string `env:"MODHOST_PG_DATABASE"`
	PostgresSSLMode  string `env:"MODHOST_PG_SSLMODE"`

	SessionTTL  time.Duration `env:"MODHOST_SESSION_TTL"`
	RememberTTL time.Duration `env:"MODHOST_REMEMBER_TTL"`
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.StorageKind = "json"
	c.DataDir = "./data"
	c.SQLitePath = ""
	c.PostgresHost = "localhost"
	c.PostgresPort = 5432
	c.PostgresUser = "postgres"
	c.PostgresPassword = "postgres"
	c.PostgresDatabase = "modhost"
	c.PostgresSSLMode = "disable"
	c.SessionTTL = 4 * time.Hour
	c.RememberTTL = 30 * 24 * time.Hour
}

// PostgresDSN assembles the connection string from the Postgres* fields.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort,
		c.PostgresDatabase, c.PostgresSSLMode)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment and finally from command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	parseFlags(cfg)
	return cfg, nil
}
