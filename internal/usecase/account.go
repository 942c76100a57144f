package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/repository"
)

// AccountService handles the sample accounts resource.
type AccountService struct {
	accounts port.AccountRepository
}

// NewAccountService constructs an account service.
func NewAccountService(accounts port.AccountRepository) *AccountService {
	return &AccountService{accounts: accounts}
}

// AccountInput captures the editable fields of an account.
type AccountInput struct {
	Name        string
	Type        string
	Description *string
	Balance     float64
}

func (in *AccountInput) validate() error {
	var messages []string
	if strings.TrimSpace(in.Name) == "" {
		messages = append(messages, "name is required")
	}
	if strings.TrimSpace(in.Type) == "" {
		messages = append(messages, "type is required")
	}
	if len(messages) > 0 {
		return NewValidationError(messages...)
	}
	return nil
}

// Create stores a new account and returns it with its assigned id.
func (s *AccountService) Create(ctx context.Context, input AccountInput) (*domain.Account, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	account := domain.Account{
		Name:        strings.TrimSpace(input.Name),
		Type:        strings.TrimSpace(input.Type),
		Description: input.Description,
		Balance:     input.Balance,
	}

	id, err := s.accounts.Create(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	account.ID = id
	return &account, nil
}

// Get returns one account by id.
func (s *AccountService) Get(ctx context.Context, id int64) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

// List returns every account.
func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// Update replaces the editable fields of an account.
func (s *AccountService) Update(ctx context.Context, id int64, input AccountInput) (*domain.Account, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	account := domain.Account{
		ID:          id,
		Name:        strings.TrimSpace(input.Name),
		Type:        strings.TrimSpace(input.Type),
		Description: input.Description,
		Balance:     input.Balance,
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("update account: %w", err)
	}

	return &account, nil
}

// Delete removes an account.
func (s *AccountService) Delete(ctx context.Context, id int64) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
