package domain

import (
	"encoding/json"
	"time"
)

// LockoutForever is the sentinel lockout end used when an administrator locks
// an account with no scheduled expiry.
var LockoutForever = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// User mirrors the persisted representation in the users table.
type User struct {
	ID               string
	UserName         string
	Email            string
	EmailConfirmed   bool
	PasswordHash     string
	TwoFactorEnabled bool
	TwoFactorSecret  *string
	LockoutEnd       *time.Time
	BrowserSettings  json.RawMessage
	CreatedAt        time.Time
	ModifiedAt       time.Time
}

// IsLockedOut reports whether the account is locked at the supplied moment.
func (u User) IsLockedOut(at time.Time) bool {
	return u.LockoutEnd != nil && u.LockoutEnd.After(at)
}

// Claim is a (type, value) attribute attached to a user, used for
// fine-grained authorization checks beyond role membership.
type Claim struct {
	Type  string
	Value string
}
