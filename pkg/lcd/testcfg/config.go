package testcfg

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds test-specific configuration for LCD client acceptance tests
type Config struct {
	BaseURL     string        `env:"LCD_TEST_BASE_URL" envDefault:"http://localhost:1317"`
	Delegator   string        `env:"LCD_TEST_DELEGATOR,required"`
	HTTPTimeout time.Duration `env:"LCD_TEST_HTTP_TIMEOUT" envDefault:"30s"`
}

// parseConfig wraps env.Parse to return (Config, error) for use with env.Must
func parseConfig() (Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	return cfg, err
}

// New loads test configuration from environment variables
func New() Config {
	return env.Must(parseConfig())
}
