package domain

import "time"

// UserRegisteredEvent is published when a new account completes registration.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	UserName     string
	Email        string
	RegisteredAt time.Time
}

// PasswordChangedEvent is published when a user's password changes through
// any flow (profile change, reset confirmation).
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	ChangedAt time.Time
	ChangedBy string
}

// SessionRevokedEvent is published when a device session is revoked.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	RevokedAt time.Time
	RevokedBy string
}

// UserLockedEvent is published when an administrator locks or unlocks an account.
type UserLockedEvent struct {
	EventID  string
	UserID   string
	Locked   bool
	ActorID  string
	Occurred time.Time
}
