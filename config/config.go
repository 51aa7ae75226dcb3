package config

// AppConfig is the console configuration composed from the files in this
// package. Values are loaded from environment variables with
// github.com/caarlos0/env:
//   - api.go: identity service endpoint
//   - storage.go: session slot storage backends
//   - routes.go: entry destinations
//   - logging.go: log level and format
type AppConfig struct {
	API     APIConfig     `envPrefix:"API_"`
	Storage StorageConfig `envPrefix:"STORAGE_"`
	Redis   RedisConfig   `envPrefix:"REDIS_"`
	Routes  RoutesConfig  `envPrefix:"ROUTES_"`
	Log     LogConfig     `envPrefix:"LOG_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// Call it after parsing.
func (c *AppConfig) Sanitize() {
	c.API.Sanitize()
	c.Storage.Sanitize()
	c.Redis.Sanitize()
	c.Routes.Sanitize()
	c.Log.Sanitize()
}
