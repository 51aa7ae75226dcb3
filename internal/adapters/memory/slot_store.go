package memory

// Package memory provides an in-process slot storage. Slots do not survive a restart;
// it backs STORAGE_BACKEND=memory and unit tests.

import (
	"context"
	"sync"

	"github.com/target/forest-console/internal/ports"
)

var _ ports.SlotStorage = (*SlotStore)(nil)

// SlotStore keeps slots in a map guarded by a mutex.
type SlotStore struct {
	mu    sync.RWMutex
	slots map[string]string
}

// NewSlotStore creates an empty in-memory slot store.
func NewSlotStore() *SlotStore {
	return &SlotStore{slots: make(map[string]string)}
}

func (s *SlotStore) GetAll(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.slots[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *SlotStore) SetAll(_ context.Context, slots map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range slots {
		s.slots[k] = v
	}
	return nil
}

func (s *SlotStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.slots, k)
	}
	return nil
}
