package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/target/forest-console/internal/ports"
)

// SessionOptions groups dependencies for Session.
type SessionOptions struct {
	Storage ports.SlotStorage
	Slots   SlotNames
	Logger  *slog.Logger
}

// Session is the injectable owner of the console's session state. The gateway,
// oracle and navigation guard all receive the same instance, so tests can
// substitute storage per Session.
type Session struct {
	storage ports.SlotStorage
	store   *CredentialStore
	oracle  *SessionOracle
	logger  *slog.Logger

	mu          sync.Mutex
	initialized bool
}

// NewSession constructs a Session. Initialize must run before use.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Storage == nil {
		return nil, errors.New("slot storage is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := NewCredentialStore(CredentialStoreOptions{
		Storage: opts.Storage,
		Slots:   opts.Slots,
		Logger:  logger,
	})
	return &Session{
		storage: opts.Storage,
		store:   store,
		oracle:  NewSessionOracle(store),
		logger:  logger,
	}, nil
}

// Initialize loads persisted session slots. Calling it again reloads them.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Load(ctx); err != nil {
		return fmt.Errorf("initialize session: %w", err)
	}
	s.initialized = true

	attrs := []any{"active", s.oracle.HasActiveSession()}
	if id, ok := s.store.ReadIdentity(); ok {
		attrs = append(attrs, "actor", id.ActorID, "role", string(id.Role))
	}
	s.logger.InfoContext(ctx, "session initialized", attrs...)
	return nil
}

// Teardown drops the in-memory session without touching persisted slots and
// closes the storage when it owns a connection.
func (s *Session) Teardown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.swap(nil)
	s.initialized = false

	if closer, ok := s.storage.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("close slot storage: %w", err)
		}
	}
	s.logger.DebugContext(ctx, "session torn down")
	return nil
}

// Initialized reports whether Initialize has completed since the last Teardown.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Store returns the session's credential store.
func (s *Session) Store() *CredentialStore { return s.store }

// Oracle returns the read-side view of the session.
func (s *Session) Oracle() *SessionOracle { return s.oracle }
