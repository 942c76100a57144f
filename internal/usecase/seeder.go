package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/infra/logger"
	"github.com/halcyonsoft/halcyon/internal/infra/security"
	"github.com/halcyonsoft/halcyon/internal/repository"
)

// DefaultRoles is the role catalogue reconciled into storage at startup.
var DefaultRoles = []domain.Role{
	{
		Name:        domain.RoleAdministrator,
		DisplayName: "Administrator",
		Description: "Administrators have full access to management features.",
	},
}

// AdministratorSeed describes an administrator account ensured at startup.
// UserName and Password are only needed when the account does not exist yet.
type AdministratorSeed struct {
	UserName string
	Email    string
	Password string
}

// Seeder converges roles and administrator accounts at startup. Running it
// repeatedly is a no-op once storage matches the configuration.
type Seeder struct {
	users  port.UserRepository
	roles  port.RoleRepository
	logger *zap.Logger
}

// NewSeeder constructs a startup seeder.
func NewSeeder(users port.UserRepository, roles port.RoleRepository, log *zap.Logger) *Seeder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{users: users, roles: roles, logger: log}
}

// Run reconciles the role catalogue and ensures every configured
// administrator account exists and holds the Administrator role. Accounts
// missing from storage are created when the entry carries a user name and
// password; otherwise the entry is logged and skipped so a misconfigured
// entry cannot block startup.
func (s *Seeder) Run(ctx context.Context, administrators []AdministratorSeed) error {
	if err := s.reconcileRoles(ctx); err != nil {
		return err
	}

	for _, entry := range administrators {
		entry.Email = strings.TrimSpace(entry.Email)
		entry.UserName = strings.TrimSpace(entry.UserName)
		if entry.Email == "" {
			continue
		}

		user, err := s.users.GetByEmail(ctx, entry.Email)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("load administrator %s: %w", logger.MaskEmail(entry.Email), err)
			}
			if entry.UserName == "" || entry.Password == "" {
				s.logger.Warn("configured administrator does not exist and has no user name or password to create it",
					zap.String("email", logger.MaskEmail(entry.Email)))
				continue
			}
			user, err = s.createAdministrator(ctx, entry)
			if err != nil {
				return err
			}
		}

		if err := s.roles.AssignUser(ctx, user.ID, domain.RoleAdministrator); err != nil {
			return fmt.Errorf("assign administrator role: %w", err)
		}
	}

	return nil
}

func (s *Seeder) createAdministrator(ctx context.Context, entry AdministratorSeed) (*domain.User, error) {
	hash, err := security.HashPassword(entry.Password)
	if err != nil {
		return nil, fmt.Errorf("hash administrator password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:             uuid.NewString(),
		UserName:       entry.UserName,
		Email:          entry.Email,
		EmailConfirmed: true,
		PasswordHash:   hash,
		CreatedAt:      now,
		ModifiedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create administrator %s: %w", logger.MaskEmail(entry.Email), err)
	}

	s.logger.Info("administrator account created",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	return &user, nil
}

func (s *Seeder) reconcileRoles(ctx context.Context) error {
	existing, err := s.roles.List(ctx)
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}

	current := make([]string, 0, len(existing))
	for _, role := range existing {
		current = append(current, role.Name)
	}

	diff := domain.ReconcileRoles(DefaultRoles, current)

	for _, role := range diff.Create {
		if err := s.roles.Create(ctx, role); err != nil {
			return fmt.Errorf("create role %s: %w", role.Name, err)
		}
		s.logger.Info("role created", zap.String("role", role.Name))
	}

	for _, name := range diff.Delete {
		if err := s.roles.Delete(ctx, name); err != nil {
			return fmt.Errorf("delete role %s: %w", name, err)
		}
		s.logger.Info("role removed", zap.String("role", name))
	}

	return nil
}
