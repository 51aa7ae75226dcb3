package redis

// Package redis provides a Redis-backed slot storage for consoles that share
// session slots across hosts.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/forest-console/internal/ports"
)

var _ ports.SlotStorage = (*SlotStore)(nil)

// SlotStore is a Redis-based slot store.
// Multi-slot writes and deletes run inside MULTI/EXEC so both slots change together.
type SlotStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// SlotStoreOptions configures a SlotStore.
type SlotStoreOptions struct {
	// Prefix is prepended to every slot key. Defaults to "forest-console:".
	Prefix string
	// TTL expires slots after a period; zero keeps them until deleted.
	TTL time.Duration
}

// NewSlotStore creates a new Redis-based slot store.
func NewSlotStore(client redis.UniversalClient, opts SlotStoreOptions) *SlotStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "forest-console:"
	}
	return &SlotStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *SlotStore) GetAll(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := s.client.MGet(ctx, s.keys(keys)...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, v := range vals {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type %T for slot %q", v, keys[i])
		}
		out[keys[i]] = str
	}
	return out, nil
}

func (s *SlotStore) SetAll(ctx context.Context, slots map[string]string) error {
	if len(slots) == 0 {
		return nil
	}
	for k := range slots {
		if k == "" {
			return errors.New("slot key cannot be empty")
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range slots {
			pipe.Set(ctx, s.prefix+k, v, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set slots: %w", err)
	}
	return nil
}

func (s *SlotStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, s.keys(keys)...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *SlotStore) Close() error { return s.client.Close() }

func (s *SlotStore) keys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.prefix + k
	}
	return out
}
