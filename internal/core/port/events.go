package port

import (
	"context"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
)

// EventPublisher fans account lifecycle events out to downstream consumers.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
	PublishUserLocked(ctx context.Context, event domain.UserLockedEvent) error
}
