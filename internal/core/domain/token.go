package domain

import "time"

// TokenPurpose distinguishes the single-use action token flows.
type TokenPurpose string

const (
	TokenPurposeEmailVerify   TokenPurpose = "email_verify"
	TokenPurposeEmailChange   TokenPurpose = "email_change"
	TokenPurposeMagicLink     TokenPurpose = "magic_link"
	TokenPurposePasswordReset TokenPurpose = "password_reset"
)

// ActionToken is a persisted single-use token (stored as a hash) backing the
// email verification, email change, magic link, and password reset flows.
type ActionToken struct {
	ID        string
	UserID    string
	TokenHash string
	Purpose   TokenPurpose
	NewEmail  *string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// IsUsable reports whether the token can still be consumed at the supplied moment.
func (t ActionToken) IsUsable(at time.Time) bool {
	return t.UsedAt == nil && t.ExpiresAt.After(at)
}
