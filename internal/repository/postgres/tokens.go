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

// TokenRepository implements port.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository wires a PostgreSQL-backed action token repository.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts an action token row.
func (r *TokenRepository) Create(ctx context.Context, token domain.ActionToken) error {
	sql, args, err := r.builder.Insert("action_tokens").
		Columns("id", "user_id", "token_hash", "purpose", "new_email", "created_at", "expires_at", "used_at").
		Values(
			token.ID,
			token.UserID,
			token.TokenHash,
			token.Purpose,
			token.NewEmail,
			token.CreatedAt,
			token.ExpiresAt,
			token.UsedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

// Consume marks an unused, unexpired token used and returns it. The UPDATE
// with conditions doubles as the atomicity guard against double spends.
func (r *TokenRepository) Consume(ctx context.Context, tokenHash string, purpose domain.TokenPurpose, at time.Time) (*domain.ActionToken, error) {
	return r.consume(ctx, at, squirrel.Eq{"token_hash": tokenHash, "purpose": purpose})
}

// ConsumeForUser is Consume constrained to tokens owned by the given user.
// The owner check lives in the UPDATE predicate so a mismatch leaves the
// token unspent.
func (r *TokenRepository) ConsumeForUser(ctx context.Context, tokenHash string, purpose domain.TokenPurpose, userID string, at time.Time) (*domain.ActionToken, error) {
	return r.consume(ctx, at, squirrel.Eq{"token_hash": tokenHash, "purpose": purpose, "user_id": userID})
}

func (r *TokenRepository) consume(ctx context.Context, at time.Time, match squirrel.Eq) (*domain.ActionToken, error) {
	sql, args, err := r.builder.Update("action_tokens").
		Set("used_at", at).
		Where(match).
		Where("used_at IS NULL").
		Where(squirrel.Gt{"expires_at": at}).
		Suffix("RETURNING id, user_id, token_hash, purpose, new_email, created_at, expires_at, used_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build consume token sql: %w", err)
	}

	var (
		newEmail *string
		usedAt   *time.Time
	)

	var result domain.ActionToken
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(
		&result.ID,
		&result.UserID,
		&result.TokenHash,
		&result.Purpose,
		&newEmail,
		&result.CreatedAt,
		&result.ExpiresAt,
		&usedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("consume token: %w", err)
	}

	result.NewEmail = newEmail
	result.UsedAt = usedAt

	return &result, nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
