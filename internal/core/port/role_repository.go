package port

import (
	"context"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
)

// RoleRepository exposes persistence behavior for roles and role membership.
type RoleRepository interface {
	List(ctx context.Context) ([]domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	Create(ctx context.Context, role domain.Role) error
	Delete(ctx context.Context, name string) error
	ListForUser(ctx context.Context, userID string) ([]string, error)
	ListUsersInRole(ctx context.Context, role string) ([]domain.User, error)
	AssignUser(ctx context.Context, userID string, role string) error
	RemoveUser(ctx context.Context, userID string, role string) error
}

// ClaimRepository exposes persistence behavior for user claims.
type ClaimRepository interface {
	ListForUser(ctx context.Context, userID string) ([]domain.Claim, error)
	ListUsersWithClaim(ctx context.Context, claim domain.Claim) ([]domain.User, error)
	Add(ctx context.Context, userID string, claim domain.Claim) error
	Remove(ctx context.Context, userID string, claim domain.Claim) error
}
