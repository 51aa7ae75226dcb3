// Package testutil holds fixtures shared by the console's package tests: a
// per-test Redis slot namespace and a fake identity service.
package testutil

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// RedisAddrEnv overrides the Redis address used by integration tests.
	RedisAddrEnv = "FOREST_TEST_REDIS_ADDR"
	// RequireRedisEnv turns a missing Redis into a test failure instead of a skip.
	RequireRedisEnv = "FOREST_TEST_REQUIRE_REDIS"

	defaultRedisAddr = "localhost:6379"
	slotPrefixRoot   = "forest-console:test:"
)

// RedisAddr returns the test Redis address and whether it answered a ping.
func RedisAddr(t testing.TB) (string, bool) {
	t.Helper()

	addr := os.Getenv(RedisAddrEnv)
	if addr == "" {
		addr = defaultRedisAddr
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Logf("redis not available at %s: %v", addr, err)
		return addr, false
	}
	return addr, true
}

// RedisSlots is a Redis connection plus the slot key prefix owned by one test.
type RedisSlots struct {
	Addr   string
	Client *redis.Client
	Prefix string
}

// Key returns the raw Redis key that holds slot.
func (r RedisSlots) Key(slot string) string { return r.Prefix + slot }

// SetupRedisSlots connects to the test Redis and reserves a slot prefix derived
// from the test name. Keys under the prefix are removed when the test ends.
// The test is skipped when Redis is unreachable unless FOREST_TEST_REQUIRE_REDIS is set.
func SetupRedisSlots(t testing.TB) RedisSlots {
	t.Helper()

	addr, ok := RedisAddr(t)
	if !ok {
		if required, _ := strconv.ParseBool(os.Getenv(RequireRedisEnv)); required {
			t.Fatalf("redis not available at %s", addr)
		}
		t.Skipf("redis not available at %s", addr)
	}

	rs := RedisSlots{
		Addr:   addr,
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Prefix: SlotPrefix(t.Name()),
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deletePrefix(ctx, rs.Client, rs.Prefix); err != nil {
			t.Logf("warning: remove test slots %s*: %v", rs.Prefix, err)
		}
		if err := rs.Client.Close(); err != nil {
			t.Logf("warning: close redis client: %v", err)
		}
	})
	return rs
}

// SlotPrefix maps a test name to a key prefix free of glob metacharacters.
func SlotPrefix(testName string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, testName)
	return slotPrefixRoot + name + ":"
}

func deletePrefix(ctx context.Context, client *redis.Client, prefix string) error {
	iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return client.Del(ctx, keys...).Err()
}
