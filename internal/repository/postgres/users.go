package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/repository"
)

var userColumns = []string{
	"id",
	"user_name",
	"email",
	"email_confirmed",
	"password_hash",
	"two_factor_enabled",
	"two_factor_secret",
	"lockout_end",
	"browser_settings",
	"created_at",
	"modified_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{pool: r.pool, exec: tx, builder: r.builder}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	sql, args, err := r.builder.Insert("users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.UserName,
			user.Email,
			user.EmailConfirmed,
			user.PasswordHash,
			user.TwoFactorEnabled,
			user.TwoFactorSecret,
			user.LockoutEnd,
			settingsValue(user.BrowserSettings),
			user.CreatedAt,
			user.ModifiedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"lower(email)": strings.ToLower(email)})
}

// GetByUserName retrieves a user by normalized username.
func (r *UserRepository) GetByUserName(ctx context.Context, userName string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"lower(user_name)": strings.ToLower(userName)})
}

func (r *UserRepository) getOne(ctx context.Context, pred any) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("users").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	user, err := scanUser(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return user, nil
}

// Search returns users matching the filter along with the total match count.
func (r *UserRepository) Search(ctx context.Context, filter port.UserSearchFilter) ([]domain.User, int, error) {
	base := r.builder.Select(userColumns...).From("users")
	countQuery := r.builder.Select("count(*)").From("users")

	if email := strings.TrimSpace(filter.Email); email != "" {
		pred := squirrel.ILike{"email": fmt.Sprintf("%%%s%%", email)}
		base = base.Where(pred)
		countQuery = countQuery.Where(pred)
	}

	if userName := strings.TrimSpace(filter.UserName); userName != "" {
		pred := squirrel.ILike{"user_name": fmt.Sprintf("%%%s%%", userName)}
		base = base.Where(pred)
		countQuery = countQuery.Where(pred)
	}

	column, err := sortColumn(filter.SortBy)
	if err != nil {
		return nil, 0, err
	}
	direction := "ASC"
	if filter.ReverseSort {
		direction = "DESC"
	}
	base = base.OrderBy(fmt.Sprintf("%s %s", column, direction))

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	if filter.PageNumber > 1 {
		base = base.Offset(uint64((filter.PageNumber - 1) * pageSize))
	}
	base = base.Limit(uint64(pageSize))

	stmt, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count users sql: %w", err)
	}

	var total int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	stmt, args, err = base.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build search users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}

	return users, total, nil
}

// Update persists mutable profile fields for the user.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	sql, args, err := r.builder.Update("users").
		Set("user_name", user.UserName).
		Set("two_factor_enabled", user.TwoFactorEnabled).
		Set("two_factor_secret", user.TwoFactorSecret).
		Set("modified_at", user.ModifiedAt).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a user row. Dependent rows cascade via foreign keys.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := r.builder.Delete("users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{
		"password_hash": passwordHash,
		"modified_at":   changedAt,
	})
}

// UpdateEmail applies an email change and its confirmation state.
func (r *UserRepository) UpdateEmail(ctx context.Context, id string, email string, confirmed bool, changedAt time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{
		"email":           email,
		"email_confirmed": confirmed,
		"modified_at":     changedAt,
	})
}

// SetLockoutEnd updates the lockout window; nil clears the lock.
func (r *UserRepository) SetLockoutEnd(ctx context.Context, id string, lockoutEnd *time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{
		"lockout_end": lockoutEnd,
		"modified_at": time.Now().UTC(),
	})
}

// UpdateSettings replaces the opaque browser settings blob.
func (r *UserRepository) UpdateSettings(ctx context.Context, id string, settings json.RawMessage) error {
	return r.updateColumns(ctx, id, map[string]any{
		"browser_settings": settingsValue(settings),
		"modified_at":      time.Now().UTC(),
	})
}

func (r *UserRepository) updateColumns(ctx context.Context, id string, columns map[string]any) error {
	sql, args, err := r.builder.Update("users").
		SetMap(columns).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func sortColumn(sortBy port.UserSortBy) (string, error) {
	switch sortBy {
	case port.UserSortByEmail, "":
		return "email", nil
	case port.UserSortByUserName:
		return "user_name", nil
	case port.UserSortByCreatedDate:
		return "created_at", nil
	case port.UserSortByLastModifiedDate:
		return "modified_at", nil
	default:
		return "", fmt.Errorf("invalid sort field %q", sortBy)
	}
}

func settingsValue(settings json.RawMessage) []byte {
	if len(settings) == 0 {
		return []byte("{}")
	}
	return settings
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user       domain.User
		secret     *string
		lockoutEnd *time.Time
		settings   []byte
	)

	if err := row.Scan(
		&user.ID,
		&user.UserName,
		&user.Email,
		&user.EmailConfirmed,
		&user.PasswordHash,
		&user.TwoFactorEnabled,
		&secret,
		&lockoutEnd,
		&settings,
		&user.CreatedAt,
		&user.ModifiedAt,
	); err != nil {
		return nil, err
	}

	user.TwoFactorSecret = secret
	user.LockoutEnd = lockoutEnd
	user.BrowserSettings = settings

	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
