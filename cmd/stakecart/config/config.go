package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	webcfg "github.com/screwyprof/stakecart/web/config"
)

// Config holds all configuration loaded from environment variables
type Config struct {
	Account           string        `env:"STAKECART_ACCOUNT,required,notEmpty"`
	LCDURL            string        `env:"STAKECART_LCD_URL" envDefault:"http://localhost:1317"`
	HTTPClientTimeout time.Duration `env:"STAKECART_HTTP_CLIENT_TIMEOUT" envDefault:"30s"`
	PollInterval      time.Duration `env:"STAKECART_POLL_INTERVAL" envDefault:"30s"`
	ReconcileDelay    time.Duration `env:"STAKECART_RECONCILE_DELAY" envDefault:"5s"`
	EventBuffer       int           `env:"STAKECART_EVENT_BUFFER" envDefault:"64"`

	// Journal is disabled when DatabaseURL is empty
	DatabaseURL      string `env:"STAKECART_DATABASE_URL"`
	MigrationsDir    string `env:"STAKECART_MIGRATIONS_DIR"`
	DatabaseMaxConns int32  `env:"STAKECART_DATABASE_MAX_CONNS" envDefault:"4"`

	Web webcfg.Config

	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogHumanFriendly bool   `env:"LOG_HUMAN_FRIENDLY" envDefault:"false"`
}

// JournalEnabled reports whether reconciliations are persisted
func (c Config) JournalEnabled() bool {
	return c.DatabaseURL != ""
}

// Parse loads the configuration, reporting missing or malformed variables
func Parse() (Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	return cfg, err
}

// New loads all configuration from environment variables
func New() Config {
	return env.Must(Parse())
}
