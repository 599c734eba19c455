package config

import (
	"net"
	"time"
)

// Config holds the HTTP read API settings, parsed with caarlos0/env
// as part of the daemon configuration
type Config struct {
	HTTPPort        string        `env:"WEB_HTTP_PORT" envDefault:"8080"`
	HTTPHost        string        `env:"WEB_HTTP_HOST" envDefault:"localhost"`
	ShutdownTimeout time.Duration `env:"WEB_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Addr returns the listen address
func (c Config) Addr() string {
	return net.JoinHostPort(c.HTTPHost, c.HTTPPort)
}
