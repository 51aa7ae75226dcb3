package filestore

// Package filestore persists console slots in a JSON file under the user's home directory.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/target/forest-console/internal/ports"
)

const (
	defaultDir  = ".forest-console"
	defaultFile = "session.json"
)

var _ ports.SlotStorage = (*SlotStore)(nil)

// SlotStore implements ports.SlotStorage on a single JSON document.
// Every mutation rewrites the document through a temp file and rename so a
// reader never observes a partially written pair of slots.
type SlotStore struct {
	mu   sync.Mutex
	path string
}

// DefaultPath returns ~/.forest-console/session.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, defaultDir, defaultFile), nil
}

// NewSlotStore creates a SlotStore at path, creating the parent directory if needed.
// An empty path selects DefaultPath.
func NewSlotStore(path string) (*SlotStore, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &SlotStore{path: path}, nil
}

// Path returns the backing file path.
func (s *SlotStore) Path() string { return s.path }

func (s *SlotStore) GetAll(ctx context.Context, keys ...string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *SlotStore) SetAll(ctx context.Context, slots map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	for k, v := range slots {
		doc[k] = v
	}
	return s.write(doc)
}

func (s *SlotStore) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := doc[k]; ok {
			delete(doc, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if len(doc) == 0 {
		if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("failed to remove storage file: %w", rmErr)
		}
		return nil
	}
	return s.write(doc)
}

func (s *SlotStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}
	doc := map[string]string{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal storage file: %w", err)
	}
	return doc, nil
}

func (s *SlotStore) write(doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal slots: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) error {
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return errors.Join(cause, fmt.Errorf("remove temp file: %w", rmErr))
		}
		return cause
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return cleanup(fmt.Errorf("failed to write temp file: %w", err))
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return cleanup(fmt.Errorf("failed to chmod temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return cleanup(fmt.Errorf("failed to close temp file: %w", err))
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return cleanup(fmt.Errorf("failed to replace storage file: %w", err))
	}
	return nil
}
