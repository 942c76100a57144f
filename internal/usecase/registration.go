package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
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

const emailVerificationTTL = 24 * time.Hour

// SessionEstablisher opens a session for a user whose identity was verified
// by a flow other than a password login.
type SessionEstablisher interface {
	EstablishSession(ctx context.Context, user *domain.User, device DeviceInfo) (*LoginResult, error)
}

// RegistrationService handles new account onboarding and email confirmation.
type RegistrationService struct {
	users               port.UserRepository
	roles               port.RoleRepository
	tokens              port.TokenRepository
	notifier            *NotificationService
	sessions            SessionEstablisher
	mailer              port.Mailer
	events              port.EventPublisher
	validator           *security.PasswordValidator
	requireVerification bool
	logger              *zap.Logger
	now                 func() time.Time
}

// RegistrationServiceDeps bundles the collaborators of RegistrationService.
type RegistrationServiceDeps struct {
	Users     port.UserRepository
	Roles     port.RoleRepository
	Tokens    port.TokenRepository
	Notifier  *NotificationService
	Sessions  SessionEstablisher
	Mailer    port.Mailer
	Events    port.EventPublisher
	Validator *security.PasswordValidator
	// RequireVerification keeps new accounts signed out until their email
	// address is confirmed.
	RequireVerification bool
	Logger              *zap.Logger
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(deps RegistrationServiceDeps) *RegistrationService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &RegistrationService{
		users:               deps.Users,
		roles:               deps.Roles,
		tokens:              deps.Tokens,
		notifier:            deps.Notifier,
		sessions:            deps.Sessions,
		mailer:              deps.Mailer,
		events:              deps.Events,
		validator:           deps.Validator,
		requireVerification: deps.RequireVerification,
		logger:              deps.Logger,
		now:                 func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *RegistrationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// RegisterInput captures the registration form.
type RegisterInput struct {
	UserName string
	Email    string
	Password string
}

// RegisterResult is the outcome of a registration. Login is set only when
// email verification is not required and the user was signed in directly.
type RegisterResult struct {
	User                      *domain.User
	Login                     *LoginResult
	EmailVerificationRequired bool
}

// Register creates an account. Depending on configuration it either mails a
// verification link or confirms the address and signs the user in.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput, device DeviceInfo) (*RegisterResult, error) {
	input.UserName = strings.TrimSpace(input.UserName)
	input.Email = strings.TrimSpace(input.Email)

	var messages []string
	if input.UserName == "" {
		messages = append(messages, "user name is required")
	}
	if input.Email == "" {
		messages = append(messages, "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		messages = append(messages, "email address is not valid")
	}
	for _, violation := range s.validator.Validate(input.Password) {
		messages = append(messages, violation.Error())
	}
	if len(messages) > 0 {
		return nil, NewValidationError(messages...)
	}

	if err := s.checkUnique(ctx, input.Email, input.UserName); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:             uuid.NewString(),
		UserName:       input.UserName,
		Email:          input.Email,
		EmailConfirmed: !s.requireVerification,
		PasswordHash:   hash,
		CreatedAt:      now,
		ModifiedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.requireVerification {
		if err := s.sendVerification(ctx, user); err != nil {
			return nil, err
		}
	}

	s.notifyAdministrators(ctx, user)

	if s.events != nil {
		event := domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       user.ID,
			UserName:     user.UserName,
			Email:        user.Email,
			RegisteredAt: now,
		}
		if err := s.events.PublishUserRegistered(ctx, event); err != nil {
			s.logger.Warn("publish user registered event", zap.Error(err))
		}
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	result := &RegisterResult{
		User:                      &user,
		EmailVerificationRequired: s.requireVerification,
	}

	if !s.requireVerification && s.sessions != nil {
		login, err := s.sessions.EstablishSession(ctx, &user, device)
		if err != nil {
			return nil, fmt.Errorf("establish session: %w", err)
		}
		result.Login = login
	}

	return result, nil
}

// VerifyEmail confirms the address attached to the supplied token.
func (s *RegistrationService) VerifyEmail(ctx context.Context, token string) error {
	now := s.now()
	consumed, err := s.tokens.Consume(ctx, security.HashToken(token), domain.TokenPurposeEmailVerify, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("consume verification token: %w", err)
	}

	user, err := s.users.GetByID(ctx, consumed.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("load user: %w", err)
	}

	if user.EmailConfirmed {
		return nil
	}

	if err := s.users.UpdateEmail(ctx, user.ID, user.Email, true, now); err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}

	return nil
}

// ResendVerification issues a fresh verification email for an unconfirmed
// account. Unknown or already confirmed addresses are silently accepted.
func (s *RegistrationService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}

	if user.EmailConfirmed {
		return nil
	}

	return s.sendVerification(ctx, *user)
}

func (s *RegistrationService) checkUnique(ctx context.Context, email, userName string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}

	if _, err := s.users.GetByUserName(ctx, userName); err == nil {
		return ErrDuplicateUserName
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check user name: %w", err)
	}

	return nil
}

func (s *RegistrationService) sendVerification(ctx context.Context, user domain.User) error {
	raw, err := security.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	now := s.now()
	token := domain.ActionToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(raw),
		Purpose:   domain.TokenPurposeEmailVerify,
		CreatedAt: now,
		ExpiresAt: now.Add(emailVerificationTTL),
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	if err := s.mailer.SendEmailVerification(ctx, user.Email, raw); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	return nil
}

// notifyAdministrators fans a new-user notification out to every
// administrator. Delivery failures are logged but do not fail registration.
func (s *RegistrationService) notifyAdministrators(ctx context.Context, user domain.User) {
	if s.notifier == nil {
		return
	}

	admins, err := s.roles.ListUsersInRole(ctx, domain.RoleAdministrator)
	if err != nil {
		s.logger.Warn("list administrators for notification", zap.Error(err))
		return
	}

	recipients := make([]string, 0, len(admins))
	for _, admin := range admins {
		recipients = append(recipients, admin.ID)
	}

	s.notifier.FanOut(ctx, recipients, domain.NotificationTypeNewUserRegistered, map[string]string{
		"userId":   user.ID,
		"userName": user.UserName,
		"email":    user.Email,
	})
}
