package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/repository"
)

var sessionColumns = []string{
	"id",
	"user_id",
	"token_hash",
	"details",
	"ip",
	"issued_at",
	"expires_at",
	"last_seen",
	"revoked",
}

// SessionRepository implements port.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository wires a PostgreSQL-backed session repository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a session row.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	sql, args, err := r.builder.Insert("sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.TokenHash,
			session.Details,
			session.IP,
			session.IssuedAt,
			session.ExpiresAt,
			session.LastSeen,
			session.Revoked,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by identifier.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByTokenHash retrieves a session by its refresh token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	return r.getOne(ctx, squirrel.Eq{"token_hash": tokenHash})
}

func (r *SessionRepository) getOne(ctx context.Context, pred any) (*domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("sessions").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	session, err := scanSession(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return session, nil
}

// ListActiveForUser returns live sessions ordered by expiry descending.
func (r *SessionRepository) ListActiveForUser(ctx context.Context, userID string, at time.Time) ([]domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("sessions").
		Where(squirrel.Eq{"user_id": userID, "revoked": false}).
		Where(squirrel.Gt{"expires_at": at}).
		OrderBy("expires_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// Touch updates last-seen metadata for the session.
func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time, ip *string) error {
	update := r.builder.Update("sessions").
		Set("last_seen", at).
		Where(squirrel.Eq{"id": id})
	if ip != nil {
		update = update.Set("ip", *ip)
	}

	sql, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build touch session sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Revoke marks the session revoked.
func (r *SessionRepository) Revoke(ctx context.Context, id string) error {
	sql, args, err := r.builder.Update("sessions").
		Set("revoked", true).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke session sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RevokeAllForUser revokes every live session for the user except the
// supplied one, returning the number of sessions revoked.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string, exceptID string) (int, error) {
	update := r.builder.Update("sessions").
		Set("revoked", true).
		Where(squirrel.Eq{"user_id": userID, "revoked": false})
	if exceptID != "" {
		update = update.Where(squirrel.NotEq{"id": exceptID})
	}

	sql, args, err := update.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke sessions sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		session domain.Session
		ip      *string
	)

	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.Details,
		&ip,
		&session.IssuedAt,
		&session.ExpiresAt,
		&session.LastSeen,
		&session.Revoked,
	); err != nil {
		return nil, err
	}

	session.IP = ip

	return &session, nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
