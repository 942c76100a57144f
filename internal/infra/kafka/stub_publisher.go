package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"user_name":     event.UserName,
		"email":         event.Email,
		"registered_at": event.RegisteredAt,
	}
	p.logEvent("user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishPasswordChanged logs user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"changed_at": event.ChangedAt,
		"changed_by": event.ChangedBy,
	}
	p.logEvent("user.password.changed", event.UserID, event.ChangedAt, payload)
	return nil
}

// PublishSessionRevoked logs session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"user_id":    event.UserID,
		"revoked_at": event.RevokedAt,
		"revoked_by": event.RevokedBy,
	}
	p.logEvent("session.revoked", event.UserID, event.RevokedAt, payload)
	return nil
}

// PublishUserLocked logs user.lockout.changed events.
func (p *StubPublisher) PublishUserLocked(_ context.Context, event domain.UserLockedEvent) error {
	payload := map[string]any{
		"user_id":  event.UserID,
		"locked":   event.Locked,
		"actor_id": event.ActorID,
		"occurred": event.Occurred,
	}
	p.logEvent("user.lockout.changed", event.UserID, event.Occurred, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
