package auth

// Package auth contains domain-level types for console sessions and route admission.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"fmt"
	"strings"
)

// Role represents an actor's authorization role as the identity service reports it.
// Keep string form so it round-trips through the identity slot unchanged.
type Role string

const (
	// RoleAdmin is the elevated administrative role.
	RoleAdmin Role = "ADMIN"
	// RoleUser is the standard role.
	RoleUser Role = "USER"
)

// ErrSessionExpired is returned when the identity service rejects the presented
// credential (missing, invalid or expired).
var ErrSessionExpired = errors.New("session expired")

// ParseRole maps a wire role code to a Role.
func ParseRole(code string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(code))); r {
	case RoleAdmin, RoleUser:
		return r, nil
	default:
		return "", fmt.Errorf("invalid role: %q", code)
	}
}

// IsElevated reports whether the role grants administrative access.
func (r Role) IsElevated() bool { return r == RoleAdmin }

// Credential is the opaque bearer token proving a session to the server.
// Its shape is never inspected client-side.
type Credential string

// Identity is the cached actor record stored next to the credential.
// The JSON shape matches the identity slot layout.
type Identity struct {
	ActorID string `json:"username"`
	Role    Role   `json:"role"`
}

// IsZero reports whether the identity carries no actor.
func (i Identity) IsZero() bool { return i.ActorID == "" && i.Role == "" }

// Session is the derived pair of credential and identity.
// It only exists when both halves are present.
type Session struct {
	Credential Credential
	Identity   Identity
}

// SelfRecord is the identity service's current record for the authenticated actor.
// Timestamps are kept as the server formats them.
type SelfRecord struct {
	ID          int64  `json:"id"`
	ActorID     string `json:"actorId"`
	Role        Role   `json:"role"`
	Enabled     bool   `json:"enabled"`
	CreatedAt   string `json:"createdAt"`
	LastLoginAt string `json:"lastLoginAt"`
}
