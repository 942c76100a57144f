package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/infra/security"
)

const testPassword = "Str0ng!Passw0rd"

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	return hash
}

func confirmedUser(t *testing.T) domain.User {
	t.Helper()
	return domain.User{
		ID:             "user-1",
		UserName:       "alice",
		Email:          "alice@example.com",
		EmailConfirmed: true,
		PasswordHash:   mustHash(t, testPassword),
	}
}

type identityFixture struct {
	service  *IdentityService
	users    *fakeUserRepo
	roles    *fakeRoleRepo
	sessions *fakeSessionRepo
	tokens   *fakeTokenRepo
	codes    *fakeCodeStore
	mailer   *fakeMailer
	events   *fakeEventPublisher
	issuer   *fakeTokenIssuer
}

func newIdentityFixture(t *testing.T, users ...domain.User) *identityFixture {
	t.Helper()

	userRepo := newFakeUserRepo(users...)
	roleRepo := newFakeRoleRepo(userRepo)
	fixture := &identityFixture{
		users:    userRepo,
		roles:    roleRepo,
		sessions: newFakeSessionRepo(),
		tokens:   newFakeTokenRepo(),
		codes:    newFakeCodeStore(),
		mailer:   &fakeMailer{},
		events:   &fakeEventPublisher{},
		issuer:   &fakeTokenIssuer{},
	}

	fixture.service = NewIdentityService(IdentityServiceDeps{
		Users:     userRepo,
		Roles:     roleRepo,
		Claims:    newFakeClaimRepo(userRepo),
		Sessions:  fixture.sessions,
		Tokens:    fixture.tokens,
		Codes:     fixture.codes,
		Mailer:    fixture.mailer,
		Events:    fixture.events,
		Issuer:    fixture.issuer,
		Validator: security.NewPasswordValidator(security.MinLengthRule(8)),
		Logger:    zap.NewNop(),
	})

	return fixture
}

func TestLoginSuccess(t *testing.T) {
	fixture := newIdentityFixture(t, confirmedUser(t))

	result, err := fixture.service.Login(context.Background(), "alice@example.com", testPassword, DeviceInfo{Details: "Firefox on Linux"})
	require.NoError(t, err)
	require.False(t, result.TwoFactorRequired)
	require.Equal(t, "access-token", result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	sessions, err := fixture.sessions.ListActiveForUser(context.Background(), "user-1", time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "Firefox on Linux", sessions[0].Details)
}

func TestLoginFailures(t *testing.T) {
	locked := confirmedUser(t)
	locked.ID = "user-locked"
	locked.UserName = "locked"
	locked.Email = "locked@example.com"
	lockedEnd := domain.LockoutForever
	locked.LockoutEnd = &lockedEnd

	unconfirmed := confirmedUser(t)
	unconfirmed.ID = "user-unconfirmed"
	unconfirmed.UserName = "pending"
	unconfirmed.Email = "pending@example.com"
	unconfirmed.EmailConfirmed = false

	fixture := newIdentityFixture(t, confirmedUser(t), locked, unconfirmed)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "unknown email", email: "nobody@example.com", password: testPassword, wantErr: ErrInvalidCredentials},
		{name: "wrong password", email: "alice@example.com", password: "not-the-password", wantErr: ErrInvalidCredentials},
		{name: "locked account", email: "locked@example.com", password: testPassword, wantErr: ErrAccountLocked},
		{name: "unconfirmed email", email: "pending@example.com", password: testPassword, wantErr: ErrEmailNotConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixture.service.Login(context.Background(), tt.email, tt.password, DeviceInfo{})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoginWithEmailTwoFactor(t *testing.T) {
	user := confirmedUser(t)
	user.TwoFactorEnabled = true

	fixture := newIdentityFixture(t, user)

	result, err := fixture.service.Login(context.Background(), user.Email, testPassword, DeviceInfo{})
	require.NoError(t, err)
	require.True(t, result.TwoFactorRequired)
	require.Empty(t, result.AccessToken)

	mail := fixture.mailer.lastOfKind("two_factor")
	require.NotNil(t, mail)

	_, err = fixture.service.VerifyTwoFactor(context.Background(), user.Email, "000000", DeviceInfo{})
	require.ErrorIs(t, err, ErrInvalidCode)

	verified, err := fixture.service.VerifyTwoFactor(context.Background(), user.Email, mail.Token, DeviceInfo{})
	require.NoError(t, err)
	require.NotEmpty(t, verified.AccessToken)

	// The code is single use.
	_, err = fixture.service.VerifyTwoFactor(context.Background(), user.Email, mail.Token, DeviceInfo{})
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestLoginByUserName(t *testing.T) {
	fixture := newIdentityFixture(t, confirmedUser(t))

	result, err := fixture.service.Login(context.Background(), "alice", testPassword, DeviceInfo{})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	_, err = fixture.service.Login(context.Background(), "nobody", testPassword, DeviceInfo{})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTotpVerifyRequiresPriorLogin(t *testing.T) {
	secret, _, err := security.GenerateTOTPSecret("halcyon", "alice@example.com")
	require.NoError(t, err)

	user := confirmedUser(t)
	user.TwoFactorEnabled = true
	user.TwoFactorSecret = &secret

	fixture := newIdentityFixture(t, user)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	// A valid authenticator code alone does not open a session.
	_, err = fixture.service.VerifyTwoFactor(context.Background(), user.Email, code, DeviceInfo{})
	require.ErrorIs(t, err, ErrInvalidCode)

	login, err := fixture.service.Login(context.Background(), user.Email, testPassword, DeviceInfo{})
	require.NoError(t, err)
	require.True(t, login.TwoFactorRequired)

	verified, err := fixture.service.VerifyTwoFactor(context.Background(), user.Email, code, DeviceInfo{})
	require.NoError(t, err)
	require.NotEmpty(t, verified.AccessToken)

	// Each password login covers exactly one verification.
	code, err = totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	_, err = fixture.service.VerifyTwoFactor(context.Background(), user.Email, code, DeviceInfo{})
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyCodeRejectsLockedAccount(t *testing.T) {
	user := confirmedUser(t)
	user.TwoFactorEnabled = true

	fixture := newIdentityFixture(t, user)

	login, err := fixture.service.Login(context.Background(), user.Email, testPassword, DeviceInfo{})
	require.NoError(t, err)
	require.True(t, login.TwoFactorRequired)

	mail := fixture.mailer.lastOfKind("two_factor")
	require.NotNil(t, mail)

	// Locking between the two steps wins over a correct code.
	lockoutEnd := domain.LockoutForever
	require.NoError(t, fixture.users.SetLockoutEnd(context.Background(), user.ID, &lockoutEnd))

	_, err = fixture.service.VerifyTwoFactor(context.Background(), user.Email, mail.Token, DeviceInfo{})
	require.ErrorIs(t, err, ErrAccountLocked)
}

func TestMagicLinkRoundTrip(t *testing.T) {
	fixture := newIdentityFixture(t, confirmedUser(t))

	require.NoError(t, fixture.service.RequestMagicLink(context.Background(), "alice@example.com"))

	mail := fixture.mailer.lastOfKind("magic_link")
	require.NotNil(t, mail)

	result, err := fixture.service.RedeemMagicLink(context.Background(), mail.Token, DeviceInfo{})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	// Tokens are single use.
	_, err = fixture.service.RedeemMagicLink(context.Background(), mail.Token, DeviceInfo{})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMagicLinkUnknownEmailIsSilent(t *testing.T) {
	fixture := newIdentityFixture(t, confirmedUser(t))

	require.NoError(t, fixture.service.RequestMagicLink(context.Background(), "nobody@example.com"))
	require.Nil(t, fixture.mailer.lastOfKind("magic_link"))
}

func TestRefreshAndLogout(t *testing.T) {
	fixture := newIdentityFixture(t, confirmedUser(t))

	login, err := fixture.service.Login(context.Background(), "alice@example.com", testPassword, DeviceInfo{})
	require.NoError(t, err)

	refreshed, err := fixture.service.Refresh(context.Background(), login.RefreshToken, DeviceInfo{})
	require.NoError(t, err)
	require.Equal(t, login.RefreshToken, refreshed.RefreshToken)
	require.NotEmpty(t, refreshed.AccessToken)

	require.NoError(t, fixture.service.Logout(context.Background(), login.RefreshToken))
	require.Len(t, fixture.events.sessionRevoked, 1)

	_, err = fixture.service.Refresh(context.Background(), login.RefreshToken, DeviceInfo{})
	require.ErrorIs(t, err, ErrInvalidToken)

	// Logging out twice is fine.
	require.NoError(t, fixture.service.Logout(context.Background(), login.RefreshToken))
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	fixture := newIdentityFixture(t, confirmedUser(t))

	_, err := fixture.service.Refresh(context.Background(), "not-a-token", DeviceInfo{})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	fixture := newIdentityFixture(t, confirmedUser(t))

	// Establish a session that the reset should revoke.
	login, err := fixture.service.Login(context.Background(), "alice@example.com", testPassword, DeviceInfo{})
	require.NoError(t, err)

	require.NoError(t, fixture.service.RequestPasswordReset(context.Background(), "alice@example.com"))
	mail := fixture.mailer.lastOfKind("password_reset")
	require.NotNil(t, mail)

	err = fixture.service.ConfirmPasswordReset(context.Background(), mail.Token, "short")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	require.NoError(t, fixture.service.ConfirmPasswordReset(context.Background(), mail.Token, "Fresh!Passw0rd"))
	require.Len(t, fixture.events.passwordChanged, 1)

	_, err = fixture.service.Refresh(context.Background(), login.RefreshToken, DeviceInfo{})
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = fixture.service.Login(context.Background(), "alice@example.com", "Fresh!Passw0rd", DeviceInfo{})
	require.NoError(t, err)

	// Token is single use.
	require.ErrorIs(t, fixture.service.ConfirmPasswordReset(context.Background(), mail.Token, "Another!Passw0rd"), ErrInvalidToken)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	fixture := newIdentityFixture(t, confirmedUser(t))

	require.NoError(t, fixture.service.RequestPasswordReset(context.Background(), "nobody@example.com"))
	require.Nil(t, fixture.mailer.lastOfKind("password_reset"))
}
