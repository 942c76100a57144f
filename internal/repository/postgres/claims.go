package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/repository"
)

// ClaimRepository implements port.ClaimRepository using PostgreSQL.
type ClaimRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewClaimRepository wires a PostgreSQL-backed claim repository.
func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListForUser returns the claims attached to the user.
func (r *ClaimRepository) ListForUser(ctx context.Context, userID string) ([]domain.Claim, error) {
	stmt, args, err := r.builder.
		Select("claim_type", "claim_value").
		From("user_claims").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("claim_type ASC", "claim_value ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select claims sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select claims: %w", err)
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		var claim domain.Claim
		if err := rows.Scan(&claim.Type, &claim.Value); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}

	return claims, nil
}

// ListUsersWithClaim returns every user carrying the exact (type, value) pair.
func (r *ClaimRepository) ListUsersWithClaim(ctx context.Context, claim domain.Claim) ([]domain.User, error) {
	columns := make([]string, 0, len(userColumns))
	for _, column := range userColumns {
		columns = append(columns, "u."+column)
	}

	stmt, args, err := r.builder.
		Select(columns...).
		From("users u").
		Join("user_claims uc ON uc.user_id = u.id").
		Where(squirrel.Eq{"uc.claim_type": claim.Type, "uc.claim_value": claim.Value}).
		OrderBy("u.user_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select claim users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select claim users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim users: %w", err)
	}

	return users, nil
}

// Add attaches the claim to the user. Duplicate pairs are a no-op.
func (r *ClaimRepository) Add(ctx context.Context, userID string, claim domain.Claim) error {
	sql, args, err := r.builder.Insert("user_claims").
		Columns("user_id", "claim_type", "claim_value").
		Values(userID, claim.Type, claim.Value).
		Suffix("ON CONFLICT (user_id, claim_type, claim_value) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert claim sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}

	return nil
}

// Remove detaches the claim from the user.
func (r *ClaimRepository) Remove(ctx context.Context, userID string, claim domain.Claim) error {
	sql, args, err := r.builder.Delete("user_claims").
		Where(squirrel.Eq{
			"user_id":     userID,
			"claim_type":  claim.Type,
			"claim_value": claim.Value,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete claim sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
