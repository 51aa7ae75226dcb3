package service

import domainauth "github.com/target/forest-console/internal/domain/auth"

// SessionState answers the questions the navigation guard asks.
type SessionState interface {
	HasActiveSession() bool
	HasElevatedRole() bool
}

var _ SessionState = (*SessionOracle)(nil)

type sessionSnapshotter interface {
	Snapshot() (domainauth.Session, bool)
}

// SessionOracle is a synchronous, I/O-free view over a CredentialStore.
type SessionOracle struct {
	store sessionSnapshotter
}

// NewSessionOracle constructs a SessionOracle over store.
func NewSessionOracle(store *CredentialStore) *SessionOracle {
	return &SessionOracle{store: store}
}

// HasActiveSession reports whether both credential and identity are present.
func (o *SessionOracle) HasActiveSession() bool {
	sess, ok := o.store.Snapshot()
	return ok && sess.Credential != "" && !sess.Identity.IsZero()
}

// HasElevatedRole reports whether an active session holds the administrative role.
func (o *SessionOracle) HasElevatedRole() bool {
	sess, ok := o.store.Snapshot()
	if !ok || sess.Credential == "" || sess.Identity.IsZero() {
		return false
	}
	return sess.Identity.Role.IsElevated()
}

// Identity returns the cached identity of the active session.
func (o *SessionOracle) Identity() (domainauth.Identity, bool) {
	if !o.HasActiveSession() {
		return domainauth.Identity{}, false
	}
	sess, _ := o.store.Snapshot()
	return sess.Identity, true
}
