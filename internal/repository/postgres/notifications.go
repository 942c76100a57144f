package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/repository"
)

var notificationColumns = []string{
	"id",
	"user_id",
	"type",
	"status",
	"created_at",
	"data",
}

// NotificationRepository implements port.NotificationRepository using PostgreSQL.
type NotificationRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewNotificationRepository wires a PostgreSQL-backed notification repository.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a notification row and returns the generated id.
func (r *NotificationRepository) Create(ctx context.Context, notification domain.Notification) (int64, error) {
	payload, err := json.Marshal(notification.Data)
	if err != nil {
		return 0, fmt.Errorf("marshal notification data: %w", err)
	}

	sql, args, err := r.builder.Insert("notifications").
		Columns("user_id", "type", "status", "created_at", "data").
		Values(
			notification.UserID,
			notification.Type,
			notification.Status,
			notification.Timestamp,
			payload,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert notification sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}

	return id, nil
}

// GetByID retrieves a notification by identifier.
func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	stmt, args, err := r.builder.
		Select(notificationColumns...).
		From("notifications").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select notification sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	notification, err := scanNotification(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}

	return notification, nil
}

// Search returns notifications matching the filter ordered newest-id-first,
// plus the total match count. A nil Status filter excludes archived items.
func (r *NotificationRepository) Search(ctx context.Context, userID string, filter port.NotificationSearchFilter) ([]domain.Notification, int, error) {
	base := r.builder.Select(notificationColumns...).From("notifications").Where(squirrel.Eq{"user_id": userID})
	count := r.builder.Select("count(*)").From("notifications").Where(squirrel.Eq{"user_id": userID})

	apply := func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.SinceID != nil {
			q = q.Where(squirrel.Gt{"id": *filter.SinceID})
		}
		if filter.PriorToID != nil {
			q = q.Where(squirrel.Lt{"id": *filter.PriorToID})
		}
		if filter.Status != nil {
			q = q.Where(squirrel.Eq{"status": *filter.Status})
		} else {
			q = q.Where(squirrel.NotEq{"status": domain.NotificationStatusArchived})
		}
		if filter.Type != nil {
			q = q.Where(squirrel.Eq{"type": *filter.Type})
		}
		return q
	}

	base = apply(base).OrderBy("id DESC")
	count = apply(count)

	stmt, args, err := count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count notifications sql: %w", err)
	}

	var total int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	if filter.PageNumber > 1 {
		base = base.Offset(uint64((filter.PageNumber - 1) * pageSize))
	}
	base = base.Limit(uint64(pageSize))

	stmt, args, err = base.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build search notifications sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *notification)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notifications: %w", err)
	}

	return notifications, total, nil
}

// CountUnread returns the user's unread notification count regardless of any
// search filter.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	stmt, args, err := r.builder.
		Select("count(*)").
		From("notifications").
		Where(squirrel.Eq{"user_id": userID, "status": domain.NotificationStatusUnread}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count unread sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}

	return count, nil
}

// MarkRead transitions one notification to read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) error {
	sql, args, err := r.builder.Update("notifications").
		Set("status", domain.NotificationStatusRead).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark read sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// MarkAllRead transitions every one of the user's notifications to read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	sql, args, err := r.builder.Update("notifications").
		Set("status", domain.NotificationStatusRead).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark all read sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}

	return nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		notification domain.Notification
		payload      []byte
	)

	if err := row.Scan(
		&notification.ID,
		&notification.UserID,
		&notification.Type,
		&notification.Status,
		&notification.Timestamp,
		&payload,
	); err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &notification.Data); err != nil {
			return nil, fmt.Errorf("unmarshal notification data: %w", err)
		}
	}

	return &notification, nil
}

var _ port.NotificationRepository = (*NotificationRepository)(nil)
