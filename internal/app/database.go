package app

import (
	"strings"

	"github.com/kamrulhasan12345/brainstormers-server/internal/database"
)

// DatabaseSettings translates the configuration block into the connection
// settings the database package consumes. Host based driver blocks win over
// the top-level driver only when explicitly enabled.
func (c *Config) DatabaseSettings() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Database.Driver)),
		Path:   strings.TrimSpace(c.Database.Path),
		DSN:    strings.TrimSpace(c.Database.DSN),
	}

	switch cfg.Driver {
	case "", "sqlite":
		cfg.Driver = "sqlite"
	case "postgresql":
		cfg.Driver = "postgres"
	}

	switch {
	case c.Database.Postgres.Enabled:
		cfg.Driver = "postgres"
		applyHostSettings(&cfg, c.Database.Postgres)
	case c.Database.MySQL.Enabled:
		cfg.Driver = "mysql"
		applyHostSettings(&cfg, c.Database.MySQL)
	case cfg.Driver == "postgres":
		applyHostSettings(&cfg, c.Database.Postgres)
	case cfg.Driver == "mysql":
		applyHostSettings(&cfg, c.Database.MySQL)
	}

	return cfg
}

func applyHostSettings(cfg *database.Config, auth DBAuthConfig) {
	cfg.Host = strings.TrimSpace(auth.Host)
	cfg.Port = auth.Port
	cfg.Name = strings.TrimSpace(auth.Database)
	cfg.User = strings.TrimSpace(auth.Username)
	cfg.Password = strings.TrimSpace(auth.Password)
}
