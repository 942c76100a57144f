package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/infra/security"
)

type registrationFixture struct {
	service       *RegistrationService
	users         *fakeUserRepo
	roles         *fakeRoleRepo
	tokens        *fakeTokenRepo
	notifications *fakeNotificationRepo
	sessions      *fakeSessionEstablisher
	mailer        *fakeMailer
	events        *fakeEventPublisher
}

type registrationOption func(*RegistrationServiceDeps)

func withoutVerification() registrationOption {
	return func(deps *RegistrationServiceDeps) {
		deps.RequireVerification = false
	}
}

func newRegistrationFixture(t *testing.T, opts []registrationOption, users ...domain.User) *registrationFixture {
	t.Helper()

	userRepo := newFakeUserRepo(users...)
	fixture := &registrationFixture{
		users:         userRepo,
		roles:         newFakeRoleRepo(userRepo),
		tokens:        newFakeTokenRepo(),
		notifications: newFakeNotificationRepo(),
		sessions:      &fakeSessionEstablisher{},
		mailer:        &fakeMailer{},
		events:        &fakeEventPublisher{},
	}

	deps := RegistrationServiceDeps{
		Users:               userRepo,
		Roles:               fixture.roles,
		Tokens:              fixture.tokens,
		Notifier:            NewNotificationService(fixture.notifications, zap.NewNop()),
		Sessions:            fixture.sessions,
		Mailer:              fixture.mailer,
		Events:              fixture.events,
		Validator:           security.NewPasswordValidator(security.MinLengthRule(8), security.RequireDigitRule()),
		RequireVerification: true,
		Logger:              zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	fixture.service = NewRegistrationService(deps)
	return fixture
}

func TestRegisterSuccess(t *testing.T) {
	admin := confirmedUser(t)
	admin.ID = "admin-1"
	admin.UserName = "admin"
	admin.Email = "admin@example.com"

	fixture := newRegistrationFixture(t, nil, admin)
	require.NoError(t, fixture.roles.AssignUser(context.Background(), admin.ID, domain.RoleAdministrator))

	result, err := fixture.service.Register(context.Background(), RegisterInput{
		UserName: "bob",
		Email:    "bob@example.com",
		Password: "Passw0rd!long",
	}, DeviceInfo{})
	require.NoError(t, err)
	require.False(t, result.User.EmailConfirmed)
	require.True(t, result.EmailVerificationRequired)
	require.Nil(t, result.Login)
	require.Empty(t, fixture.sessions.established)

	mail := fixture.mailer.lastOfKind("verification")
	require.NotNil(t, mail)
	require.Equal(t, "bob@example.com", mail.To)

	require.Len(t, fixture.events.registered, 1)
	require.Equal(t, result.User.ID, fixture.events.registered[0].UserID)

	// Administrators get a new-user notification.
	unread, err := fixture.notifications.CountUnread(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Equal(t, 1, unread)
}

func TestRegisterWithoutVerificationSignsIn(t *testing.T) {
	fixture := newRegistrationFixture(t, []registrationOption{withoutVerification()})

	result, err := fixture.service.Register(context.Background(), RegisterInput{
		UserName: "bob",
		Email:    "bob@example.com",
		Password: "Passw0rd!long",
	}, DeviceInfo{Details: "Firefox on Linux"})
	require.NoError(t, err)
	require.True(t, result.User.EmailConfirmed)
	require.False(t, result.EmailVerificationRequired)
	require.NotNil(t, result.Login)
	require.NotEmpty(t, result.Login.AccessToken)
	require.Equal(t, []string{result.User.ID}, fixture.sessions.established)

	// No verification mail in this mode.
	require.Nil(t, fixture.mailer.lastOfKind("verification"))
}

func TestRegisterNotifiesRemainingAdminsOnFailure(t *testing.T) {
	first := confirmedUser(t)
	first.ID = "admin-1"
	first.UserName = "admin1"
	first.Email = "admin1@example.com"

	second := confirmedUser(t)
	second.ID = "admin-2"
	second.UserName = "admin2"
	second.Email = "admin2@example.com"

	fixture := newRegistrationFixture(t, nil, first, second)
	require.NoError(t, fixture.roles.AssignUser(context.Background(), first.ID, domain.RoleAdministrator))
	require.NoError(t, fixture.roles.AssignUser(context.Background(), second.ID, domain.RoleAdministrator))

	fixture.notifications.failFor[first.ID] = errors.New("insert failed")

	result, err := fixture.service.Register(context.Background(), RegisterInput{
		UserName: "bob",
		Email:    "bob@example.com",
		Password: "Passw0rd!long",
	}, DeviceInfo{})
	require.NoError(t, err)
	require.NotNil(t, result.User)

	// One recipient failing does not block the other.
	unread, err := fixture.notifications.CountUnread(context.Background(), second.ID)
	require.NoError(t, err)
	require.Equal(t, 1, unread)
}

func TestRegisterValidationCollectsAllMessages(t *testing.T) {
	fixture := newRegistrationFixture(t, nil)

	_, err := fixture.service.Register(context.Background(), RegisterInput{
		UserName: "",
		Email:    "not-an-email",
		Password: "short",
	}, DeviceInfo{})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Messages, 4)
}

func TestRegisterDuplicates(t *testing.T) {
	fixture := newRegistrationFixture(t, nil, confirmedUser(t))

	_, err := fixture.service.Register(context.Background(), RegisterInput{
		UserName: "somebody",
		Email:    "ALICE@example.com",
		Password: "Passw0rd!long",
	}, DeviceInfo{})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = fixture.service.Register(context.Background(), RegisterInput{
		UserName: "Alice",
		Email:    "new@example.com",
		Password: "Passw0rd!long",
	}, DeviceInfo{})
	require.ErrorIs(t, err, ErrDuplicateUserName)
}

func TestVerifyEmailRoundTrip(t *testing.T) {
	fixture := newRegistrationFixture(t, nil)

	result, err := fixture.service.Register(context.Background(), RegisterInput{
		UserName: "bob",
		Email:    "bob@example.com",
		Password: "Passw0rd!long",
	}, DeviceInfo{})
	require.NoError(t, err)

	mail := fixture.mailer.lastOfKind("verification")
	require.NotNil(t, mail)

	require.ErrorIs(t, fixture.service.VerifyEmail(context.Background(), "bogus"), ErrInvalidToken)

	require.NoError(t, fixture.service.VerifyEmail(context.Background(), mail.Token))

	stored, err := fixture.users.GetByID(context.Background(), result.User.ID)
	require.NoError(t, err)
	require.True(t, stored.EmailConfirmed)

	// Token is single use.
	require.ErrorIs(t, fixture.service.VerifyEmail(context.Background(), mail.Token), ErrInvalidToken)
}

func TestResendVerification(t *testing.T) {
	fixture := newRegistrationFixture(t, nil)

	_, err := fixture.service.Register(context.Background(), RegisterInput{
		UserName: "bob",
		Email:    "bob@example.com",
		Password: "Passw0rd!long",
	}, DeviceInfo{})
	require.NoError(t, err)

	require.NoError(t, fixture.service.ResendVerification(context.Background(), "bob@example.com"))
	require.Len(t, fixture.mailer.sent, 2)

	// Unknown addresses are silently accepted.
	require.NoError(t, fixture.service.ResendVerification(context.Background(), "nobody@example.com"))
	require.Len(t, fixture.mailer.sent, 2)
}
