package port

import (
	"context"
	"time"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
)

// SessionRepository exposes persistence behavior for device sessions.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// ListActiveForUser returns non-revoked, non-expired sessions ordered by
	// expiry descending (most time remaining first).
	ListActiveForUser(ctx context.Context, userID string, at time.Time) ([]domain.Session, error)
	Touch(ctx context.Context, id string, at time.Time, ip *string) error
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string, exceptID string) (int, error)
}
