package auth

// Package auth contains simple hand-written test doubles for session ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	"github.com/target/forest-console/internal/adapters/memory"
	"github.com/target/forest-console/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SlotStorage           = (*FaultySlotStorage)(nil)
	_ ports.SessionExpiredHandler = (*RecordingExpiredHandler)(nil)
)

// FaultySlotStorage wraps a slot storage and injects failures per operation.
// A nil Inner defaults to an empty in-memory storage.
type FaultySlotStorage struct {
	Inner ports.SlotStorage

	GetAllErr error
	SetAllErr error
	DeleteErr error

	mu      sync.Mutex
	setAlls int
	deletes int
}

// NewFaultySlotStorage creates a FaultySlotStorage over a fresh in-memory storage.
func NewFaultySlotStorage() *FaultySlotStorage {
	return &FaultySlotStorage{Inner: memory.NewSlotStore()}
}

func (f *FaultySlotStorage) inner() ports.SlotStorage {
	if f.Inner == nil {
		f.Inner = memory.NewSlotStore()
	}
	return f.Inner
}

func (f *FaultySlotStorage) GetAll(ctx context.Context, keys ...string) (map[string]string, error) {
	f.mu.Lock()
	err := f.GetAllErr
	inner := f.inner()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return inner.GetAll(ctx, keys...)
}

func (f *FaultySlotStorage) SetAll(ctx context.Context, slots map[string]string) error {
	f.mu.Lock()
	f.setAlls++
	err := f.SetAllErr
	inner := f.inner()
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return inner.SetAll(ctx, slots)
}

func (f *FaultySlotStorage) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	f.deletes++
	err := f.DeleteErr
	inner := f.inner()
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return inner.Delete(ctx, keys...)
}

// SetAllCalls returns how many times SetAll was invoked.
func (f *FaultySlotStorage) SetAllCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setAlls
}

// DeleteCalls returns how many times Delete was invoked.
func (f *FaultySlotStorage) DeleteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

// RecordingExpiredHandler records every session-expired notification.
type RecordingExpiredHandler struct {
	mu    sync.Mutex
	paths []string
}

func (r *RecordingExpiredHandler) SessionExpired(_ context.Context, requestPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, requestPath)
}

// Paths returns a copy of the recorded request paths.
func (r *RecordingExpiredHandler) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}
