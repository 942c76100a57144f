package port

import (
	"context"
	"time"
)

// CodeStore persists short-lived one-time codes (two-factor login codes).
type CodeStore interface {
	Store(ctx context.Context, purpose string, identifier string, code string, ttl time.Duration) error
	// Consume verifies and deletes the stored code. Returns false when the
	// code is absent, expired, or does not match.
	Consume(ctx context.Context, purpose string, identifier string, code string) (bool, error)
}
