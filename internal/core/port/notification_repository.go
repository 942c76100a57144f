package port

import (
	"context"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
)

// NotificationSearchFilter captures the notification search criteria. A nil
// Status excludes archived items; an explicit Status matches exactly.
type NotificationSearchFilter struct {
	SinceID    *int64
	PriorToID  *int64
	Status     *domain.NotificationStatus
	Type       *domain.NotificationType
	PageNumber int
	PageSize   int
}

// NotificationRepository exposes persistence behavior for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification domain.Notification) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Notification, error)
	// Search returns matching notifications ordered newest-id-first along with
	// the total match count.
	Search(ctx context.Context, userID string, filter NotificationSearchFilter) ([]domain.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, userID string) error
}
