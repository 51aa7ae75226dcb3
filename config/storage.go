package config

import (
	"fmt"
	"strings"
	"time"
)

// StorageBackend selects where session slots are persisted.
type StorageBackend string

const (
	// StorageBackendFile keeps slots in a private JSON file under the user's home.
	StorageBackendFile StorageBackend = "file"
	// StorageBackendRedis keeps slots in Redis, shared by every console pointed at it.
	StorageBackendRedis StorageBackend = "redis"
	// StorageBackendMemory keeps slots for the life of the process only.
	StorageBackendMemory StorageBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageBackend.
func (b *StorageBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "file", "redis", "memory":
		*b = StorageBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid StorageBackend: %q (valid options: file, redis, memory)", v)
	}
}

// StorageConfig controls session slot persistence.
type StorageConfig struct {
	Backend StorageBackend `env:"BACKEND" envDefault:"file"`

	// FilePath overrides the file backend location (default ~/.forest-console/session.json).
	FilePath string `env:"FILE_PATH"`

	TokenSlot    string `env:"TOKEN_SLOT"    envDefault:"token"`
	IdentitySlot string `env:"IDENTITY_SLOT" envDefault:"userInfo"`
}

// Sanitize restores default slot names.
func (c *StorageConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = StorageBackendFile
	}
	c.FilePath = strings.TrimSpace(c.FilePath)
	if c.TokenSlot = strings.TrimSpace(c.TokenSlot); c.TokenSlot == "" {
		c.TokenSlot = "token"
	}
	if c.IdentitySlot = strings.TrimSpace(c.IdentitySlot); c.IdentitySlot == "" {
		c.IdentitySlot = "userInfo"
	}
}

// RedisConfig contains Redis configuration for the redis storage backend.
type RedisConfig struct {
	URI                string        `env:"URI"                  envDefault:"localhost:6379"`
	Password           string        `env:"PASSWORD"             envDefault:""`
	DB                 int           `env:"DB"                   envDefault:"0"`
	KeyPrefix          string        `env:"KEY_PREFIX"           envDefault:"forest-console:"`
	SessionTTL         time.Duration `env:"SESSION_TTL"          envDefault:"24h"`
	SentinelNodes      []string      `env:"SENTINEL_NODES"`
	SentinelMasterName string        `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string        `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool          `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string      `env:"CLUSTER_NODES"`
	UseCluster         bool          `env:"USE_CLUSTER"          envDefault:"false"`
}

// Sanitize trims addresses and clamps numeric values.
func (c *RedisConfig) Sanitize() {
	c.URI = strings.TrimSpace(c.URI)
	if c.DB < 0 {
		c.DB = 0
	}
	if c.SessionTTL < 0 {
		c.SessionTTL = 0
	}
	c.SentinelNodes = trimAll(c.SentinelNodes)
	c.ClusterNodes = trimAll(c.ClusterNodes)
}

func trimAll(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
