package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
)

func seedNotifications(t *testing.T, repo *fakeNotificationRepo, userID string, statuses ...domain.NotificationStatus) []int64 {
	t.Helper()

	ids := make([]int64, 0, len(statuses))
	for _, status := range statuses {
		id, err := repo.Create(context.Background(), domain.Notification{
			UserID: userID,
			Type:   domain.NotificationTypeNewUserRegistered,
			Status: status,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestNotificationSearchExcludesArchivedByDefault(t *testing.T) {
	repo := newFakeNotificationRepo()
	service := NewNotificationService(repo, zap.NewNop())

	seedNotifications(t, repo, "user-1",
		domain.NotificationStatusUnread,
		domain.NotificationStatusRead,
		domain.NotificationStatusArchived,
	)

	page, err := service.Search(context.Background(), Actor{UserID: "user-1"}, port.NotificationSearchFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, page.TotalCount)
	require.Equal(t, 1, page.UnreadCount)

	// Newest first.
	require.Greater(t, page.Items[0].ID, page.Items[1].ID)

	archived := domain.NotificationStatusArchived
	page, err = service.Search(context.Background(), Actor{UserID: "user-1"}, port.NotificationSearchFilter{Status: &archived})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	// The unread count is independent of the filter.
	require.Equal(t, 1, page.UnreadCount)
}

func TestNotificationGetHidesOtherUsers(t *testing.T) {
	repo := newFakeNotificationRepo()
	service := NewNotificationService(repo, zap.NewNop())

	ids := seedNotifications(t, repo, "user-1", domain.NotificationStatusUnread)

	_, err := service.Get(context.Background(), Actor{UserID: "user-2"}, ids[0])
	require.ErrorIs(t, err, ErrNotificationNotFound)

	_, err = service.Get(context.Background(), Actor{UserID: "user-1"}, 999)
	require.ErrorIs(t, err, ErrNotificationNotFound)

	notification, err := service.Get(context.Background(), Actor{UserID: "user-1"}, ids[0])
	require.NoError(t, err)
	require.Equal(t, ids[0], notification.ID)
}

func TestNotificationMarkRead(t *testing.T) {
	repo := newFakeNotificationRepo()
	service := NewNotificationService(repo, zap.NewNop())

	ids := seedNotifications(t, repo, "user-1", domain.NotificationStatusUnread, domain.NotificationStatusUnread)

	require.ErrorIs(t, service.MarkRead(context.Background(), Actor{UserID: "user-2"}, ids[0]), ErrNotificationNotFound)

	require.NoError(t, service.MarkRead(context.Background(), Actor{UserID: "user-1"}, ids[0]))
	// Marking a read notification again is harmless.
	require.NoError(t, service.MarkRead(context.Background(), Actor{UserID: "user-1"}, ids[0]))

	unread, err := repo.CountUnread(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, unread)

	require.NoError(t, service.MarkAllRead(context.Background(), Actor{UserID: "user-1"}))

	unread, err = repo.CountUnread(context.Background(), "user-1")
	require.NoError(t, err)
	require.Zero(t, unread)
}

func TestFanOutContinuesPastFailures(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.failFor["user-2"] = errors.New("storage down")
	service := NewNotificationService(repo, zap.NewNop())

	result := service.FanOut(context.Background(), []string{"user-1", "user-2", "user-3"},
		domain.NotificationTypeNewUserRegistered, map[string]string{"userId": "user-9"})

	require.Equal(t, []string{"user-1", "user-3"}, result.Delivered)
	require.Len(t, result.Failed, 1)
	require.Error(t, result.Failed["user-2"])

	unread, err := repo.CountUnread(context.Background(), "user-3")
	require.NoError(t, err)
	require.Equal(t, 1, unread)
}
