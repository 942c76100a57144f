package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/infra/security"
	"github.com/halcyonsoft/halcyon/internal/repository"
)

const emailChangeTTL = 24 * time.Hour

// ProfileService handles the caller's own account: profile data, browser
// settings, password and email changes, devices, and two-factor enrollment.
type ProfileService struct {
	users      port.UserRepository
	sessions   port.SessionRepository
	tokens     port.TokenRepository
	mailer     port.Mailer
	events     port.EventPublisher
	validator  *security.PasswordValidator
	totpIssuer string
	logger     *zap.Logger
	now        func() time.Time
}

// NewProfileService constructs a profile service. totpIssuer names the
// application in authenticator apps.
func NewProfileService(
	users port.UserRepository,
	sessions port.SessionRepository,
	tokens port.TokenRepository,
	mailer port.Mailer,
	events port.EventPublisher,
	validator *security.PasswordValidator,
	totpIssuer string,
	log *zap.Logger,
) *ProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		mailer:     mailer,
		events:     events,
		validator:  validator,
		totpIssuer: totpIssuer,
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *ProfileService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// GetProfile returns the caller's account.
func (s *ProfileService) GetProfile(ctx context.Context, actor Actor) (*domain.User, error) {
	return s.load(ctx, actor.UserID)
}

// UpdateProfile applies mutable profile fields. Only the user name is
// editable here; email changes go through the confirmation flow.
func (s *ProfileService) UpdateProfile(ctx context.Context, actor Actor, userName string) (*domain.User, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return nil, NewValidationError("user name is required")
	}

	user, err := s.load(ctx, actor.UserID)
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

// GetSettings returns the caller's opaque browser settings blob.
func (s *ProfileService) GetSettings(ctx context.Context, actor Actor) (json.RawMessage, error) {
	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(user.BrowserSettings) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return user.BrowserSettings, nil
}

// UpdateSettings stores the caller's browser settings blob verbatim.
func (s *ProfileService) UpdateSettings(ctx context.Context, actor Actor, settings json.RawMessage) error {
	if len(settings) > 0 && !json.Valid(settings) {
		return NewValidationError("settings must be valid JSON")
	}

	if err := s.users.UpdateSettings(ctx, actor.UserID, settings); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update settings: %w", err)
	}

	return nil
}

// ChangePassword verifies the current password, applies the new one, and
// revokes every other session of the caller.
func (s *ProfileService) ChangePassword(ctx context.Context, actor Actor, currentPassword, newPassword, sessionID string) error {
	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	var messages []string
	if err := security.RequireDifferentFrom(currentPassword).Validate(newPassword); err != nil {
		messages = append(messages, err.Error())
	}
	for _, violation := range s.validator.Validate(newPassword) {
		messages = append(messages, violation.Error())
	}
	if len(messages) > 0 {
		return NewValidationError(messages...)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	if err := s.users.UpdatePassword(ctx, user.ID, hash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	// The current session stays alive; everything else is cut loose.
	if _, err := s.sessions.RevokeAllForUser(ctx, user.ID, sessionID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	if s.events != nil {
		event := domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			ChangedAt: now,
			ChangedBy: user.ID,
		}
		if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("publish password changed event", zap.Error(err))
		}
	}

	return nil
}

// RequestEmailChange emails a confirmation link to the proposed address.
func (s *ProfileService) RequestEmailChange(ctx context.Context, actor Actor, newEmail string) error {
	newEmail = strings.TrimSpace(newEmail)
	if newEmail == "" {
		return NewValidationError("new email is required")
	}
	if _, err := mail.ParseAddress(newEmail); err != nil {
		return NewValidationError("email address is not valid")
	}

	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return err
	}

	if existing, err := s.users.GetByEmail(ctx, newEmail); err == nil && existing.ID != user.ID {
		return ErrDuplicateEmail
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}

	raw, err := security.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	token := domain.ActionToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(raw),
		Purpose:   domain.TokenPurposeEmailChange,
		NewEmail:  &newEmail,
		CreatedAt: now,
		ExpiresAt: now.Add(emailChangeTTL),
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	if err := s.mailer.SendEmailChange(ctx, newEmail, newEmail, raw); err != nil {
		return fmt.Errorf("send email change: %w", err)
	}

	return nil
}

// ConfirmEmailChange applies the address stored with the token. Ownership is
// part of the consume predicate so another user's attempt does not burn the
// pending change.
func (s *ProfileService) ConfirmEmailChange(ctx context.Context, actor Actor, token string) error {
	now := s.now()
	consumed, err := s.tokens.ConsumeForUser(ctx, security.HashToken(token), domain.TokenPurposeEmailChange, actor.UserID, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("consume token: %w", err)
	}

	if consumed.NewEmail == nil {
		return ErrInvalidToken
	}

	if err := s.users.UpdateEmail(ctx, consumed.UserID, *consumed.NewEmail, true, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update email: %w", err)
	}

	return nil
}

// ListDevices returns the caller's active sessions.
func (s *ProfileService) ListDevices(ctx context.Context, actor Actor) ([]domain.Session, error) {
	sessions, err := s.sessions.ListActiveForUser(ctx, actor.UserID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeDevice revokes one of the caller's sessions. A session belonging to
// another user reports the same error as a missing one.
func (s *ProfileService) RevokeDevice(ctx context.Context, actor Actor, deviceID string) error {
	session, err := s.sessions.GetByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("load session: %w", err)
	}

	if session.UserID != actor.UserID {
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

// TwoFactorEnrollment carries the provisioning material for an authenticator app.
type TwoFactorEnrollment struct {
	Secret string
	URL    string
}

// BeginTwoFactorEnrollment provisions a TOTP secret. The secret is only
// activated once ConfirmTwoFactorEnrollment verifies a code against it.
func (s *ProfileService) BeginTwoFactorEnrollment(ctx context.Context, actor Actor) (*TwoFactorEnrollment, error) {
	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	secret, url, err := security.GenerateTOTPSecret(s.totpIssuer, user.Email)
	if err != nil {
		return nil, err
	}

	user.TwoFactorSecret = &secret
	user.ModifiedAt = s.now()
	if err := s.users.Update(ctx, *user); err != nil {
		return nil, fmt.Errorf("store totp secret: %w", err)
	}

	return &TwoFactorEnrollment{Secret: secret, URL: url}, nil
}

// ConfirmTwoFactorEnrollment verifies the first code and enables two-factor.
func (s *ProfileService) ConfirmTwoFactorEnrollment(ctx context.Context, actor Actor, code string) error {
	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return err
	}

	if user.TwoFactorSecret == nil {
		return ErrInvalidCode
	}
	if !security.ValidateTOTP(code, *user.TwoFactorSecret) {
		return ErrInvalidCode
	}

	user.TwoFactorEnabled = true
	user.ModifiedAt = s.now()
	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("enable two-factor: %w", err)
	}

	return nil
}

// DisableTwoFactor turns two-factor off after re-verifying the password.
func (s *ProfileService) DisableTwoFactor(ctx context.Context, actor Actor, password string) error {
	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	user.TwoFactorEnabled = false
	user.TwoFactorSecret = nil
	user.ModifiedAt = s.now()
	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("disable two-factor: %w", err)
	}

	return nil
}

func (s *ProfileService) load(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
