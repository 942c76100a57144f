package port

import (
	"context"
	"encoding/json"
	"time"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
)

// UserSortBy enumerates the sortable columns for administrator user search.
type UserSortBy string

const (
	UserSortByEmail            UserSortBy = "Email"
	UserSortByUserName         UserSortBy = "UserName"
	UserSortByCreatedDate      UserSortBy = "CreatedDate"
	UserSortByLastModifiedDate UserSortBy = "LastModifiedDate"
)

// UserSearchFilter captures the administrator search criteria. Email and
// UserName are case-insensitive substring matches over normalized values.
type UserSearchFilter struct {
	Email       string
	UserName    string
	SortBy      UserSortBy
	ReverseSort bool
	PageNumber  int
	PageSize    int
}

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUserName(ctx context.Context, userName string) (*domain.User, error)
	Search(ctx context.Context, filter UserSearchFilter) ([]domain.User, int, error)
	Update(ctx context.Context, user domain.User) error
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
	UpdateEmail(ctx context.Context, id string, email string, confirmed bool, changedAt time.Time) error
	SetLockoutEnd(ctx context.Context, id string, lockoutEnd *time.Time) error
	UpdateSettings(ctx context.Context, id string, settings json.RawMessage) error
}
