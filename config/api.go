package config

import (
	"strings"
	"time"
)

const (
	defaultAPIBaseURL = "http://localhost:8080/api"
	defaultAPITimeout = 10 * time.Second
)

// APIConfig locates the identity service.
type APIConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:8080/api"`
	Timeout time.Duration `env:"TIMEOUT"  envDefault:"10s"`
}

// Sanitize trims the base URL and restores defaults for empty or non-positive values.
func (c *APIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultAPIBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultAPITimeout
	}
}
