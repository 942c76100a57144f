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

const (
	magicLinkTTL     = 15 * time.Minute
	passwordResetTTL = time.Hour

	codePurposeTwoFactor        = "two_factor"
	codePurposeTwoFactorPending = "two_factor_pending"

	// twoFactorPendingMarker is the stored value proving the password factor
	// was presented. TOTP users have no emailed code to double as that proof.
	twoFactorPendingMarker = "pending"
)

// TokenIssuer signs access tokens for authenticated sessions.
type TokenIssuer interface {
	IssueAccessToken(user *domain.User, roles []string, claims []domain.Claim, sessionID string, now time.Time) (string, error)
	AccessTokenTTL() time.Duration
}

// IdentityService handles login, token refresh, two-factor verification,
// magic links, and password resets.
type IdentityService struct {
	users           port.UserRepository
	roles           port.RoleRepository
	claims          port.ClaimRepository
	sessions        port.SessionRepository
	tokens          port.TokenRepository
	codes           port.CodeStore
	mailer          port.Mailer
	events          port.EventPublisher
	issuer          TokenIssuer
	validator       *security.PasswordValidator
	refreshTokenTTL time.Duration
	codeTTL         time.Duration
	logger          *zap.Logger
	now             func() time.Time
}

// IdentityServiceDeps bundles the collaborators of IdentityService.
type IdentityServiceDeps struct {
	Users           port.UserRepository
	Roles           port.RoleRepository
	Claims          port.ClaimRepository
	Sessions        port.SessionRepository
	Tokens          port.TokenRepository
	Codes           port.CodeStore
	Mailer          port.Mailer
	Events          port.EventPublisher
	Issuer          TokenIssuer
	Validator       *security.PasswordValidator
	RefreshTokenTTL time.Duration
	CodeTTL         time.Duration
	Logger          *zap.Logger
}

// NewIdentityService constructs an identity service.
func NewIdentityService(deps IdentityServiceDeps) *IdentityService {
	if deps.RefreshTokenTTL <= 0 {
		deps.RefreshTokenTTL = 168 * time.Hour
	}
	if deps.CodeTTL <= 0 {
		deps.CodeTTL = 5 * time.Minute
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &IdentityService{
		users:           deps.Users,
		roles:           deps.Roles,
		claims:          deps.Claims,
		sessions:        deps.Sessions,
		tokens:          deps.Tokens,
		codes:           deps.Codes,
		mailer:          deps.Mailer,
		events:          deps.Events,
		issuer:          deps.Issuer,
		validator:       deps.Validator,
		refreshTokenTTL: deps.RefreshTokenTTL,
		codeTTL:         deps.CodeTTL,
		logger:          deps.Logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *IdentityService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// LoginResult carries the outcome of a login attempt. When TwoFactorRequired
// is set the token fields are empty and the client must call VerifyTwoFactor.
type LoginResult struct {
	AccessToken       string
	RefreshToken      string
	ExpiresAt         time.Time
	TwoFactorRequired bool
}

// DeviceInfo describes the client device establishing a session.
type DeviceInfo struct {
	Details string
	IP      *string
}

// Login verifies credentials and either establishes a session or defers to
// the two-factor step. The login may be an email address or a user name.
func (s *IdentityService) Login(ctx context.Context, login, password string, device DeviceInfo) (*LoginResult, error) {
	user, err := s.authenticate(ctx, login, password)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		if err := s.beginTwoFactor(ctx, user); err != nil {
			return nil, err
		}
		return &LoginResult{TwoFactorRequired: true}, nil
	}

	return s.establishSession(ctx, user, device)
}

// VerifyTwoFactor completes a two-factor login with a TOTP or emailed code.
// Either path requires a preceding successful Login within the code TTL; the
// code alone never opens a session.
func (s *IdentityService) VerifyTwoFactor(ctx context.Context, login, code string, device DeviceInfo) (*LoginResult, error) {
	user, err := s.findByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactorEnabled {
		return nil, ErrInvalidCode
	}
	if user.IsLockedOut(s.now()) {
		return nil, ErrAccountLocked
	}

	if user.TwoFactorSecret != nil {
		if !security.ValidateTOTP(code, *user.TwoFactorSecret) {
			return nil, ErrInvalidCode
		}
		ok, err := s.codes.Consume(ctx, codePurposeTwoFactorPending, user.ID, twoFactorPendingMarker)
		if err != nil {
			return nil, fmt.Errorf("consume pending login: %w", err)
		}
		if !ok {
			return nil, ErrInvalidCode
		}
	} else {
		ok, err := s.codes.Consume(ctx, codePurposeTwoFactor, user.ID, code)
		if err != nil {
			return nil, fmt.Errorf("consume two-factor code: %w", err)
		}
		if !ok {
			return nil, ErrInvalidCode
		}
	}

	return s.establishSession(ctx, user, device)
}

// RequestMagicLink emails a one-time sign-in link. Unknown addresses are
// silently accepted to avoid account enumeration.
func (s *IdentityService) RequestMagicLink(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Info("magic link requested for unknown email",
				zap.String("email", logger.MaskEmail(email)))
			return nil
		}
		return err
	}

	raw, err := s.createActionToken(ctx, user.ID, domain.TokenPurposeMagicLink, nil, magicLinkTTL)
	if err != nil {
		return err
	}

	if err := s.mailer.SendMagicLink(ctx, user.Email, raw); err != nil {
		return fmt.Errorf("send magic link: %w", err)
	}

	return nil
}

// RedeemMagicLink exchanges a magic link token for a session.
func (s *IdentityService) RedeemMagicLink(ctx context.Context, token string, device DeviceInfo) (*LoginResult, error) {
	consumed, err := s.tokens.Consume(ctx, security.HashToken(token), domain.TokenPurposeMagicLink, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("consume magic link token: %w", err)
	}

	user, err := s.users.GetByID(ctx, consumed.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if user.IsLockedOut(s.now()) {
		return nil, ErrAccountLocked
	}

	return s.establishSession(ctx, user, device)
}

// Refresh issues a new access token for an active session identified by its
// refresh token.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string, device DeviceInfo) (*LoginResult, error) {
	session, err := s.sessions.GetByTokenHash(ctx, security.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	now := s.now()
	if !session.IsActive(now) {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if user.IsLockedOut(now) {
		return nil, ErrAccountLocked
	}

	if err := s.sessions.Touch(ctx, session.ID, now, device.IP); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	access, err := s.issueAccessToken(ctx, user, session.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// Logout revokes the session identified by the refresh token. Unknown tokens
// are treated as already logged out.
func (s *IdentityService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.sessions.GetByTokenHash(ctx, security.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load session: %w", err)
	}

	if err := s.sessions.Revoke(ctx, session.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}

	s.publishSessionRevoked(ctx, session, session.UserID)

	return nil
}

// RequestPasswordReset emails a reset link. Unknown addresses are silently
// accepted to avoid account enumeration.
func (s *IdentityService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Info("password reset requested for unknown email",
				zap.String("email", logger.MaskEmail(email)))
			return nil
		}
		return err
	}

	raw, err := s.createActionToken(ctx, user.ID, domain.TokenPurposePasswordReset, nil, passwordResetTTL)
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, raw); err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}

	return nil
}

// ConfirmPasswordReset validates the reset token, applies the new password,
// and revokes every session of the user.
func (s *IdentityService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if violations := s.validator.Validate(newPassword); len(violations) > 0 {
		messages := make([]string, 0, len(violations))
		for _, violation := range violations {
			messages = append(messages, violation.Error())
		}
		return NewValidationError(messages...)
	}

	now := s.now()
	consumed, err := s.tokens.Consume(ctx, security.HashToken(token), domain.TokenPurposePasswordReset, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, consumed.UserID, hash, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("update password: %w", err)
	}

	if _, err := s.sessions.RevokeAllForUser(ctx, consumed.UserID, ""); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	if s.events != nil {
		event := domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    consumed.UserID,
			ChangedAt: now,
			ChangedBy: consumed.UserID,
		}
		if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("publish password changed event", zap.Error(err))
		}
	}

	return nil
}

func (s *IdentityService) authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	user, err := s.findByLogin(ctx, login)
	if err != nil {
		// Burn a hash comparison so unknown and known logins take similar time.
		if errors.Is(err, ErrInvalidCredentials) {
			_, _ = security.VerifyPassword(password, "")
		}
		return nil, err
	}

	if user.IsLockedOut(s.now()) {
		return nil, ErrAccountLocked
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}

	return user, nil
}

func (s *IdentityService) findByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// findByLogin resolves a login string as an email address first, then as a
// user name.
func (s *IdentityService) findByLogin(ctx context.Context, login string) (*domain.User, error) {
	user, err := s.findByEmail(ctx, login)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrInvalidCredentials) {
		return nil, err
	}

	user, err = s.users.GetByUserName(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *IdentityService) beginTwoFactor(ctx context.Context, user *domain.User) error {
	// TOTP users generate codes locally; record only that the password factor
	// has been presented.
	if user.TwoFactorSecret != nil {
		if err := s.codes.Store(ctx, codePurposeTwoFactorPending, user.ID, twoFactorPendingMarker, s.codeTTL); err != nil {
			return fmt.Errorf("store pending login: %w", err)
		}
		return nil
	}

	code, err := security.GenerateNumericCode(6)
	if err != nil {
		return fmt.Errorf("generate two-factor code: %w", err)
	}

	if err := s.codes.Store(ctx, codePurposeTwoFactor, user.ID, code, s.codeTTL); err != nil {
		return fmt.Errorf("store two-factor code: %w", err)
	}

	if err := s.mailer.SendTwoFactorCode(ctx, user.Email, code); err != nil {
		return fmt.Errorf("send two-factor code: %w", err)
	}

	return nil
}

// EstablishSession opens a session for a user whose identity was verified by
// another flow, such as registration without email verification.
func (s *IdentityService) EstablishSession(ctx context.Context, user *domain.User, device DeviceInfo) (*LoginResult, error) {
	return s.establishSession(ctx, user, device)
}

func (s *IdentityService) establishSession(ctx context.Context, user *domain.User, device DeviceInfo) (*LoginResult, error) {
	now := s.now()

	refreshToken, err := security.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(refreshToken),
		Details:   device.Details,
		IP:        device.IP,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTokenTTL),
		LastSeen:  now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	access, err := s.issueAccessToken(ctx, user, session.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session established",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

func (s *IdentityService) issueAccessToken(ctx context.Context, user *domain.User, sessionID string) (string, error) {
	roles, err := s.roles.ListForUser(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("list roles: %w", err)
	}

	claims, err := s.claims.ListForUser(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("list claims: %w", err)
	}

	access, err := s.issuer.IssueAccessToken(user, roles, claims, sessionID, s.now())
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}

	return access, nil
}

func (s *IdentityService) createActionToken(ctx context.Context, userID string, purpose domain.TokenPurpose, newEmail *string, ttl time.Duration) (string, error) {
	raw, err := security.GenerateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	token := domain.ActionToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: security.HashToken(raw),
		Purpose:   purpose,
		NewEmail:  newEmail,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}

	return raw, nil
}

func (s *IdentityService) publishSessionRevoked(ctx context.Context, session *domain.Session, actorID string) {
	if s.events == nil {
		return
	}

	event := domain.SessionRevokedEvent{
		EventID:   uuid.NewString(),
		SessionID: session.ID,
		UserID:    session.UserID,
		RevokedAt: s.now(),
		RevokedBy: actorID,
	}
	if err := s.events.PublishSessionRevoked(ctx, event); err != nil {
		s.logger.Warn("publish session revoked event", zap.Error(err))
	}
}
