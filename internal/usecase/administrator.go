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
	"github.com/halcyonsoft/halcyon/internal/repository"
)

// AdministratorService handles user, role, and claim management on behalf of
// administrators. Route-level authorization has already run by the time these
// methods execute; the checks here enforce the invariants that survive even a
// correctly authorized caller.
type AdministratorService struct {
	users    port.UserRepository
	roles    port.RoleRepository
	claims   port.ClaimRepository
	sessions port.SessionRepository
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewAdministratorService constructs an administrator service.
func NewAdministratorService(
	users port.UserRepository,
	roles port.RoleRepository,
	claims port.ClaimRepository,
	sessions port.SessionRepository,
	events port.EventPublisher,
	log *zap.Logger,
) *AdministratorService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdministratorService{
		users:    users,
		roles:    roles,
		claims:   claims,
		sessions: sessions,
		events:   events,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *AdministratorService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// GetUser returns a single user by id.
func (s *AdministratorService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.load(ctx, userID)
}

// SearchUsers pages through users matching the filter.
func (s *AdministratorService) SearchUsers(ctx context.Context, filter port.UserSearchFilter) ([]domain.User, int, error) {
	if filter.PageNumber < 1 {
		filter.PageNumber = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 10
	}
	if filter.SortBy == "" {
		filter.SortBy = port.UserSortByUserName
	}

	users, total, err := s.users.Search(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("search users: %w", err)
	}

	return users, total, nil
}

// UpdateUser applies administrator-editable fields to a user.
func (s *AdministratorService) UpdateUser(ctx context.Context, userID, userName string) (*domain.User, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return nil, NewValidationError("user name is required")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(user.UserName, userName) {
		if existing, err := s.users.GetByUserName(ctx, userName); err == nil && existing.ID != user.ID {
			return nil, ErrDuplicateUserName
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("check user name: %w", err)
		}
	}

	user.UserName = userName
	user.ModifiedAt = s.now()

	if err := s.users.Update(ctx, *user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// DeleteUser removes an account. Administrator accounts must have the role
// removed first.
func (s *AdministratorService) DeleteUser(ctx context.Context, userID string) error {
	roles, err := s.roles.ListForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}
	for _, role := range roles {
		if role == domain.RoleAdministrator {
			return ErrAdministratorDeletion
		}
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}

// LockUser locks an account indefinitely and revokes its sessions.
func (s *AdministratorService) LockUser(ctx context.Context, actor Actor, userID string) error {
	if _, err := s.load(ctx, userID); err != nil {
		return err
	}

	lockoutEnd := domain.LockoutForever
	if err := s.users.SetLockoutEnd(ctx, userID, &lockoutEnd); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set lockout: %w", err)
	}

	if _, err := s.sessions.RevokeAllForUser(ctx, userID, ""); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.publishLockChanged(ctx, actor, userID, true)

	return nil
}

// UnlockUser clears any lockout on the account.
func (s *AdministratorService) UnlockUser(ctx context.Context, actor Actor, userID string) error {
	if _, err := s.load(ctx, userID); err != nil {
		return err
	}

	if err := s.users.SetLockoutEnd(ctx, userID, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("clear lockout: %w", err)
	}

	s.publishLockChanged(ctx, actor, userID, false)

	return nil
}

// ListRoles returns the role catalogue.
func (s *AdministratorService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// GetUserRoles returns the role names held by a user.
func (s *AdministratorService) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}

	roles, err := s.roles.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}

	return roles, nil
}

// GetUsersInRole returns the members of a role.
func (s *AdministratorService) GetUsersInRole(ctx context.Context, role string) ([]domain.User, error) {
	if _, err := s.roles.GetByName(ctx, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("load role: %w", err)
	}

	users, err := s.roles.ListUsersInRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list role members: %w", err)
	}

	return users, nil
}

// AddUserToRole grants role membership. Adding an existing member is a no-op.
func (s *AdministratorService) AddUserToRole(ctx context.Context, userID, role string) error {
	if _, err := s.load(ctx, userID); err != nil {
		return err
	}
	if _, err := s.roles.GetByName(ctx, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("load role: %w", err)
	}

	if err := s.roles.AssignUser(ctx, userID, role); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}

	return nil
}

// RemoveUserFromRole revokes role membership. Administrators cannot strip
// their own Administrator role.
func (s *AdministratorService) RemoveUserFromRole(ctx context.Context, actor Actor, userID, role string) error {
	if role == domain.RoleAdministrator && userID == actor.UserID {
		return ErrSelfAdministratorRemoval
	}

	if err := s.roles.RemoveUser(ctx, userID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("remove role: %w", err)
	}

	return nil
}

// GetUserClaims returns the claims attached to a user.
func (s *AdministratorService) GetUserClaims(ctx context.Context, userID string) ([]domain.Claim, error) {
	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}

	claims, err := s.claims.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}

	return claims, nil
}

// GetUsersWithClaim returns every user holding the exact claim.
func (s *AdministratorService) GetUsersWithClaim(ctx context.Context, claim domain.Claim) ([]domain.User, error) {
	users, err := s.claims.ListUsersWithClaim(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("list claim holders: %w", err)
	}
	return users, nil
}

// AddClaim attaches a claim to a user. Duplicates are a no-op.
func (s *AdministratorService) AddClaim(ctx context.Context, userID string, claim domain.Claim) error {
	if claim.Type == "" || claim.Value == "" {
		return NewValidationError("claim type and value are required")
	}

	if _, err := s.load(ctx, userID); err != nil {
		return err
	}

	if err := s.claims.Add(ctx, userID, claim); err != nil {
		return fmt.Errorf("add claim: %w", err)
	}

	return nil
}

// RemoveClaim detaches a claim from a user.
func (s *AdministratorService) RemoveClaim(ctx context.Context, userID string, claim domain.Claim) error {
	if err := s.claims.Remove(ctx, userID, claim); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("remove claim: %w", err)
	}

	return nil
}

// ListUserDevices returns another user's active sessions.
func (s *AdministratorService) ListUserDevices(ctx context.Context, userID string) ([]domain.Session, error) {
	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListActiveForUser(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}

// RevokeUserDevice revokes one of the target user's sessions. A device id
// belonging to a different user reports the same error as a missing one.
func (s *AdministratorService) RevokeUserDevice(ctx context.Context, actor Actor, userID, deviceID string) error {
	session, err := s.sessions.GetByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("load session: %w", err)
	}

	if session.UserID != userID {
		return ErrDeviceNotFound
	}

	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("revoke session: %w", err)
	}

	if s.events != nil {
		event := domain.SessionRevokedEvent{
			EventID:   uuid.NewString(),
			SessionID: session.ID,
			UserID:    session.UserID,
			RevokedAt: s.now(),
			RevokedBy: actor.UserID,
		}
		if err := s.events.PublishSessionRevoked(ctx, event); err != nil {
			s.logger.Warn("publish session revoked event", zap.Error(err))
		}
	}

	return nil
}

func (s *AdministratorService) load(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *AdministratorService) publishLockChanged(ctx context.Context, actor Actor, userID string, locked bool) {
	if s.events == nil {
		return
	}

	event := domain.UserLockedEvent{
		EventID:  uuid.NewString(),
		UserID:   userID,
		Locked:   locked,
		ActorID:  actor.UserID,
		Occurred: s.now(),
	}
	if err := s.events.PublishUserLocked(ctx, event); err != nil {
		s.logger.Warn("publish lockout event", zap.Error(err))
	}
}
