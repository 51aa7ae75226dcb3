package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domainauth "github.com/target/forest-console/internal/domain/auth"
	"github.com/target/forest-console/internal/ports"
)

// SlotNames names the two storage slots holding a session.
type SlotNames struct {
	Credential string
	Identity   string
}

// DefaultSlotNames returns the slot layout used by the web console: "token" and "userInfo".
func DefaultSlotNames() SlotNames {
	return SlotNames{Credential: "token", Identity: "userInfo"}
}

func (n SlotNames) withDefaults() SlotNames {
	d := DefaultSlotNames()
	if n.Credential == "" {
		n.Credential = d.Credential
	}
	if n.Identity == "" {
		n.Identity = d.Identity
	}
	return n
}

// ErrSuperseded is returned when a session write loses to a sign-out that happened
// after the write was started.
var ErrSuperseded = errors.New("session superseded by a later sign-out")

// CredentialStoreOptions groups dependencies for CredentialStore.
type CredentialStoreOptions struct {
	Storage ports.SlotStorage
	Slots   SlotNames
	Logger  *slog.Logger
}

// CredentialStore owns the credential and identity of the current session.
//
// Reads are served from an in-memory snapshot and never touch storage. Save and
// Clear write through to the slot storage; writers are serialized so the two
// slots always change together.
type CredentialStore struct {
	storage ports.SlotStorage
	slots   SlotNames
	logger  *slog.Logger

	writeMu sync.Mutex

	mu         sync.RWMutex
	current    *domainauth.Session
	generation uint64
}

// NewCredentialStore constructs a CredentialStore. Call Load before reading.
func NewCredentialStore(opts CredentialStoreOptions) *CredentialStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialStore{
		storage: opts.Storage,
		slots:   opts.Slots.withDefaults(),
		logger:  logger,
	}
}

// Load replaces the snapshot with what storage holds. A half-present or
// undecodable pair is treated as no session and both slots are removed.
func (s *CredentialStore) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	vals, err := s.storage.GetAll(ctx, s.slots.Credential, s.slots.Identity)
	if err != nil {
		return fmt.Errorf("load session slots: %w", err)
	}

	token, hasToken := vals[s.slots.Credential]
	rawIdentity, hasIdentity := vals[s.slots.Identity]
	if !hasToken && !hasIdentity {
		s.swap(nil)
		return nil
	}

	sess, decodeErr := decodeSession(token, rawIdentity)
	if hasToken && hasIdentity && decodeErr == nil {
		s.swap(&sess)
		return nil
	}

	s.logger.WarnContext(ctx, "discarding incomplete stored session",
		"has_credential", hasToken,
		"has_identity", hasIdentity,
		"error", decodeErr,
	)
	s.swap(nil)
	if delErr := s.storage.Delete(ctx, s.slots.Credential, s.slots.Identity); delErr != nil {
		return fmt.Errorf("remove incomplete session: %w", delErr)
	}
	return nil
}

func decodeSession(token, rawIdentity string) (domainauth.Session, error) {
	if token == "" {
		return domainauth.Session{}, errors.New("empty credential")
	}
	var identity domainauth.Identity
	if err := json.Unmarshal([]byte(rawIdentity), &identity); err != nil {
		return domainauth.Session{}, fmt.Errorf("decode identity: %w", err)
	}
	if identity.ActorID == "" {
		return domainauth.Session{}, errors.New("identity has no actor")
	}
	return domainauth.Session{Credential: domainauth.Credential(token), Identity: identity}, nil
}

// Save persists credential and identity together.
func (s *CredentialStore) Save(ctx context.Context, credential domainauth.Credential, identity domainauth.Identity) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.saveLocked(ctx, credential, identity)
}

// SaveIfGeneration persists the pair only if no Clear happened since generation was read.
// It returns ErrSuperseded otherwise.
func (s *CredentialStore) SaveIfGeneration(
	ctx context.Context,
	generation uint64,
	credential domainauth.Credential,
	identity domainauth.Identity,
) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.Generation() != generation {
		return ErrSuperseded
	}
	return s.saveLocked(ctx, credential, identity)
}

func (s *CredentialStore) saveLocked(ctx context.Context, credential domainauth.Credential, identity domainauth.Identity) error {
	if credential == "" {
		return errors.New("credential is required")
	}
	if identity.ActorID == "" {
		return errors.New("identity actor is required")
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := s.storage.SetAll(ctx, map[string]string{
		s.slots.Credential: string(credential),
		s.slots.Identity:   string(data),
	}); err != nil {
		return fmt.Errorf("save session slots: %w", err)
	}

	s.swap(&domainauth.Session{Credential: credential, Identity: identity})
	return nil
}

// ReplaceIdentity swaps the identity paired with credential. It is a no-op
// reporting false when credential is no longer the current one.
func (s *CredentialStore) ReplaceIdentity(
	ctx context.Context,
	credential domainauth.Credential,
	identity domainauth.Identity,
) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, ok := s.ReadCredential()
	if !ok || current != credential {
		return false, nil
	}
	return true, s.saveLocked(ctx, credential, identity)
}

// Clear removes credential and identity. The in-memory session is dropped even
// when storage fails; the storage error is still returned.
func (s *CredentialStore) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.clearLocked(ctx)
}

// ClearIfCurrent clears the session only when credential is still the current one.
// An empty credential matches the no-session state. It reports whether the
// rejection applied to the current state.
func (s *CredentialStore) ClearIfCurrent(ctx context.Context, credential domainauth.Credential) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, ok := s.ReadCredential()
	if !ok {
		return credential == "", nil
	}
	if current != credential {
		return false, nil
	}
	return true, s.clearLocked(ctx)
}

func (s *CredentialStore) clearLocked(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.generation++
	s.mu.Unlock()

	if err := s.storage.Delete(ctx, s.slots.Credential, s.slots.Identity); err != nil {
		return fmt.Errorf("clear session slots: %w", err)
	}
	return nil
}

// ReadCredential returns the stored credential, if any.
func (s *CredentialStore) ReadCredential() (domainauth.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return "", false
	}
	return s.current.Credential, true
}

// ReadIdentity returns the stored identity, if any.
func (s *CredentialStore) ReadIdentity() (domainauth.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domainauth.Identity{}, false
	}
	return s.current.Identity, true
}

// Snapshot returns both halves read under one lock.
func (s *CredentialStore) Snapshot() (domainauth.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domainauth.Session{}, false
	}
	return *s.current, true
}

// Generation increases on every Clear.
func (s *CredentialStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *CredentialStore) swap(sess *domainauth.Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}
