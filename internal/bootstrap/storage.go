package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/forest-console/config"
	"github.com/target/forest-console/internal/adapters/filestore"
	"github.com/target/forest-console/internal/adapters/memory"
	redisstore "github.com/target/forest-console/internal/adapters/redis"
	"github.com/target/forest-console/internal/ports"
)

// StorageConfig contains configuration for the session slot storage.
type StorageConfig struct {
	Storage config.StorageConfig
	Redis   config.RedisConfig
	Logger  *slog.Logger
}

// BuildStorage opens the configured slot storage backend.
//
//nolint:ireturn // the backend is chosen at runtime.
func BuildStorage(ctx context.Context, cfg StorageConfig) (ports.SlotStorage, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Storage.Backend {
	case config.StorageBackendMemory:
		logger.Warn("session storage is in-memory; sessions end with the process")
		return memory.NewSlotStore(), nil
	case config.StorageBackendRedis:
		client, err := ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return redisstore.NewSlotStore(client, redisstore.SlotStoreOptions{
			Prefix: cfg.Redis.KeyPrefix,
			TTL:    cfg.Redis.SessionTTL,
		}), nil
	case config.StorageBackendFile, "":
		store, err := filestore.NewSlotStore(cfg.Storage.FilePath)
		if err != nil {
			return nil, fmt.Errorf("open session file: %w", err)
		}
		logger.Debug("session storage file", "path", store.Path())
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

// ConnectRedis establishes a connection to Redis.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	var (
		client   redis.UniversalClient
		addrDesc string
		err      error
	)

	switch {
	case cfg.UseCluster:
		client, addrDesc, err = newClusterClient(cfg)
	case cfg.UseSentinel:
		client, addrDesc, err = newSentinelClient(cfg)
	default:
		client, addrDesc, err = newDirectClient(cfg)
	}
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if logger != nil {
		logger.Info("redis connected", "addr", redactAddr(addrDesc))
	}
	return client, nil
}

func redactAddr(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if i := strings.LastIndex(addr, "@"); i > -1 {
		return addr[i+1:]
	}
	return addr
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newClusterClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	addrs := cfg.ClusterNodes
	password := cfg.Password
	username := ""
	var tlsConfig *tls.Config

	if len(addrs) == 0 && cfg.URI != "" {
		if !isRedisURL(cfg.URI) {
			addrs = []string{cfg.URI}
		} else {
			opt, err := redis.ParseURL(cfg.URI)
			if err != nil {
				return nil, "", fmt.Errorf("parse redis cluster url: %w", err)
			}
			addrs = []string{opt.Addr}
			username = opt.Username
			if opt.Password != "" {
				password = opt.Password
			}
			tlsConfig = opt.TLSConfig
		}
	}
	if len(addrs) == 0 {
		return nil, "", errors.New("redis cluster configuration requires at least one address")
	}

	client := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:     addrs,
		Username:  username,
		Password:  password,
		TLSConfig: tlsConfig,
	})
	return client, "cluster:" + strings.Join(addrs, ","), nil
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newSentinelClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	if len(cfg.SentinelNodes) == 0 {
		return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
	}

	client := redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:       cfg.SentinelMasterName,
		SentinelAddrs:    cfg.SentinelNodes,
		Password:         cfg.Password,
		SentinelPassword: cfg.SentinelPassword,
		DB:               cfg.DB,
	})
	return client, "sentinel:" + cfg.SentinelMasterName, nil
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newDirectClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, "", errors.New("redis direct configuration requires a URI")
	}

	if isRedisURL(uri) {
		opt, err := redis.ParseURL(uri)
		if err != nil {
			return nil, "", fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), uri, nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     uri,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), uri, nil
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}
