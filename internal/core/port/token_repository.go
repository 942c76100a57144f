package port

import (
	"context"
	"time"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
)

// TokenRepository exposes persistence behavior for single-use action tokens.
type TokenRepository interface {
	Create(ctx context.Context, token domain.ActionToken) error
	// Consume atomically looks up an unused, unexpired token by hash and
	// purpose and marks it used. Returns repository.ErrNotFound when no
	// usable token matches.
	Consume(ctx context.Context, tokenHash string, purpose domain.TokenPurpose, at time.Time) (*domain.ActionToken, error)
	// ConsumeForUser is Consume additionally constrained to tokens owned by
	// the given user. A mismatched owner leaves the token unspent.
	ConsumeForUser(ctx context.Context, tokenHash string, purpose domain.TokenPurpose, userID string, at time.Time) (*domain.ActionToken, error)
}
