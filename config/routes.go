package config

import "strings"

// RoutesConfig names the two entry destinations of the console.
type RoutesConfig struct {
	LoginPath   string `env:"LOGIN_PATH"   envDefault:"/login"`
	DefaultPath string `env:"DEFAULT_PATH" envDefault:"/overview"`
}

// Sanitize ensures both paths are absolute.
func (c *RoutesConfig) Sanitize() {
	c.LoginPath = absPath(c.LoginPath, "/login")
	c.DefaultPath = absPath(c.DefaultPath, "/overview")
}

func absPath(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
