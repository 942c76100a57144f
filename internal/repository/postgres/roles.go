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

// RoleRepository implements port.RoleRepository using PostgreSQL.
type RoleRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleRepository wires a PostgreSQL-backed role repository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// List returns every persisted role.
func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	stmt, args, err := r.builder.
		Select("name", "display_name", "description").
		From("roles").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.Name, &role.DisplayName, &role.Description); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	return roles, nil
}

// GetByName retrieves a role by its name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	stmt, args, err := r.builder.
		Select("name", "display_name", "description").
		From("roles").
		Where(squirrel.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role sql: %w", err)
	}

	var role domain.Role
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&role.Name, &role.DisplayName, &role.Description); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}

	return &role, nil
}

// Create inserts a role row.
func (r *RoleRepository) Create(ctx context.Context, role domain.Role) error {
	sql, args, err := r.builder.Insert("roles").
		Columns("name", "display_name", "description").
		Values(role.Name, role.DisplayName, role.Description).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert role: %w", err)
	}

	return nil
}

// Delete removes a role row; memberships cascade.
func (r *RoleRepository) Delete(ctx context.Context, name string) error {
	sql, args, err := r.builder.Delete("roles").
		Where(squirrel.Eq{"name": name}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete role sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListForUser returns the role names assigned to the user.
func (r *RoleRepository) ListForUser(ctx context.Context, userID string) ([]string, error) {
	stmt, args, err := r.builder.
		Select("role_name").
		From("user_roles").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("role_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select user roles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user roles: %w", err)
	}

	return names, nil
}

// ListUsersInRole returns every user holding the role.
func (r *RoleRepository) ListUsersInRole(ctx context.Context, role string) ([]domain.User, error) {
	columns := make([]string, 0, len(userColumns))
	for _, column := range userColumns {
		columns = append(columns, "u."+column)
	}

	stmt, args, err := r.builder.
		Select(columns...).
		From("users u").
		Join("user_roles ur ON ur.user_id = u.id").
		Where(squirrel.Eq{"ur.role_name": role}).
		OrderBy("u.user_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select role users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role users: %w", err)
	}

	return users, nil
}

// AssignUser adds the user to the role. Adding an existing membership is a no-op.
func (r *RoleRepository) AssignUser(ctx context.Context, userID string, role string) error {
	sql, args, err := r.builder.Insert("user_roles").
		Columns("user_id", "role_name", "assigned_at").
		Values(userID, role, time.Now().UTC()).
		Suffix("ON CONFLICT (user_id, role_name) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user role: %w", err)
	}

	return nil
}

// RemoveUser removes the user from the role.
func (r *RoleRepository) RemoveUser(ctx context.Context, userID string, role string) error {
	sql, args, err := r.builder.Delete("user_roles").
		Where(squirrel.Eq{"user_id": userID, "role_name": role}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user role sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete user role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.RoleRepository = (*RoleRepository)(nil)
