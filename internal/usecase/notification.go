package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/repository"
)

// NotificationService handles per-user notification queries and the fan-out
// of new notifications to sets of recipients.
type NotificationService struct {
	notifications port.NotificationRepository
	logger        *zap.Logger
	now           func() time.Time
}

// NewNotificationService constructs a notification service.
func NewNotificationService(notifications port.NotificationRepository, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{
		notifications: notifications,
		logger:        log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *NotificationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// NotificationPage is a search result page plus the caller's unread count.
type NotificationPage struct {
	Items       []domain.Notification
	TotalCount  int
	UnreadCount int
}

// Search returns the caller's notifications plus their unread count. The
// unread count ignores the search filter.
func (s *NotificationService) Search(ctx context.Context, actor Actor, filter port.NotificationSearchFilter) (*NotificationPage, error) {
	if filter.PageNumber < 1 {
		filter.PageNumber = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 10
	}

	items, total, err := s.notifications.Search(ctx, actor.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("search notifications: %w", err)
	}

	unread, err := s.notifications.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}

	return &NotificationPage{Items: items, TotalCount: total, UnreadCount: unread}, nil
}

// Get returns one of the caller's notifications. Another user's notification
// reports the same error as a missing one.
func (s *NotificationService) Get(ctx context.Context, actor Actor, id int64) (*domain.Notification, error) {
	notification, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("load notification: %w", err)
	}

	if notification.UserID != actor.UserID {
		return nil, ErrNotificationNotFound
	}

	return notification, nil
}

// MarkRead marks one of the caller's notifications read. Idempotent.
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id int64) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}

	if err := s.notifications.MarkRead(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("mark read: %w", err)
	}

	return nil
}

// MarkAllRead marks every notification of the caller read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) error {
	if err := s.notifications.MarkAllRead(ctx, actor.UserID); err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

// FanOutResult reports the per-recipient outcome of a notification fan-out.
type FanOutResult struct {
	Delivered []string
	Failed    map[string]error
}

// FanOut creates the same notification for every recipient. One recipient
// failing does not abort the rest; the result lists both outcomes.
func (s *NotificationService) FanOut(ctx context.Context, recipients []string, notificationType domain.NotificationType, data map[string]string) *FanOutResult {
	result := &FanOutResult{Failed: make(map[string]error)}
	now := s.now()

	for _, recipient := range recipients {
		notification := domain.Notification{
			UserID:    recipient,
			Type:      notificationType,
			Status:    domain.NotificationStatusUnread,
			Timestamp: now,
			Data:      data,
		}
		if _, err := s.notifications.Create(ctx, notification); err != nil {
			s.logger.Warn("fan-out notification failed",
				zap.String("recipient", recipient),
				zap.String("type", string(notificationType)),
				zap.Error(err),
			)
			result.Failed[recipient] = err
			continue
		}
		result.Delivered = append(result.Delivered, recipient)
	}

	return result
}
