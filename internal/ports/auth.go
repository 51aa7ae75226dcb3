package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/target/forest-console/internal/domain/auth"
)

// SlotStorage is durable key/value storage scoped to the console's client context.
// SetAll and Delete apply to all given keys atomically.
type SlotStorage interface {
	// GetAll returns the present slots among keys; absent keys are omitted.
	GetAll(ctx context.Context, keys ...string) (map[string]string, error)
	SetAll(ctx context.Context, slots map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Reply is the uniform business outcome reported by the identity service.
type Reply struct {
	Success bool
	Message string
}

// LoginReply carries the session material returned by a successful login.
type LoginReply struct {
	Reply
	Token     domainauth.Credential
	Identity  domainauth.Identity
	ExpiresIn time.Duration
}

// ValidateReply reports whether the presented credential is still accepted.
type ValidateReply struct {
	Reply
	Valid    bool
	Identity domainauth.Identity
}

// SelfReply carries the server's record for the authenticated actor.
type SelfReply struct {
	Reply
	Self domainauth.SelfRecord
}

// IdentityAPI is the logical contract of the identity service.
// Business failures are reported through Reply; an authorization rejection is
// returned as domainauth.ErrSessionExpired; anything else is a transport error.
type IdentityAPI interface {
	Login(ctx context.Context, username, password string) (LoginReply, error)
	Logout(ctx context.Context) (Reply, error)
	Validate(ctx context.Context) (ValidateReply, error)
	ResetPassword(ctx context.Context, username, newPassword string) (Reply, error)
	Me(ctx context.Context) (SelfReply, error)
}

// SessionExpiredHandler is notified after a rejected credential has been cleared.
// requestPath is the path of the outbound call that was rejected.
type SessionExpiredHandler interface {
	SessionExpired(ctx context.Context, requestPath string)
}

// SessionExpiredFunc adapts a function to SessionExpiredHandler.
type SessionExpiredFunc func(ctx context.Context, requestPath string)

// SessionExpired calls f.
func (f SessionExpiredFunc) SessionExpired(ctx context.Context, requestPath string) {
	f(ctx, requestPath)
}
