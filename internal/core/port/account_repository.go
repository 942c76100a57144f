package port

import (
	"context"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
)

// AccountRepository exposes persistence behavior for the demo accounts table.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Update(ctx context.Context, account domain.Account) error
	Delete(ctx context.Context, id int64) error
}
