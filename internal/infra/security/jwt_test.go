package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:       "user-1",
		UserName: "alice",
		Email:    "alice@example.com",
	}
}

func TestJWTManagerRequiresSecretAndIssuer(t *testing.T) {
	_, err := NewJWTManager("", "halcyon", "", time.Minute)
	require.Error(t, err)

	_, err = NewJWTManager("secret", " ", "", time.Minute)
	require.Error(t, err)
}

func TestIssueAndParseAccessToken(t *testing.T) {
	mgr, err := NewJWTManager("test-secret", "halcyon", "halcyon-api", 15*time.Minute)
	require.NoError(t, err)

	claims := []domain.Claim{{Type: "user:manage", Value: "user-2"}}
	token, err := mgr.IssueAccessToken(testUser(), []string{"Administrator", "Administrator", ""}, claims, "session-1", time.Now())
	require.NoError(t, err)

	parsed, err := mgr.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", parsed.Subject)
	require.Equal(t, "alice", parsed.UserName)
	require.Equal(t, []string{"Administrator"}, parsed.Roles)
	require.Equal(t, []string{"user:manage:user-2"}, parsed.Claims)
	require.Equal(t, "session-1", parsed.SessionID)
}

func TestParseAccessTokenRejectsTampering(t *testing.T) {
	mgr, err := NewJWTManager("test-secret", "halcyon", "", 15*time.Minute)
	require.NoError(t, err)

	token, err := mgr.IssueAccessToken(testUser(), nil, nil, "session-1", time.Now())
	require.NoError(t, err)

	other, err := NewJWTManager("different-secret", "halcyon", "", 15*time.Minute)
	require.NoError(t, err)

	_, err = other.ParseAccessToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	mgr, err := NewJWTManager("test-secret", "halcyon", "", time.Minute)
	require.NoError(t, err)

	token, err := mgr.IssueAccessToken(testUser(), nil, nil, "session-1", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = mgr.ParseAccessToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	mgr, err := NewJWTManager("test-secret", "someone-else", "", time.Minute)
	require.NoError(t, err)

	token, err := mgr.IssueAccessToken(testUser(), nil, nil, "", time.Now())
	require.NoError(t, err)

	verifier, err := NewJWTManager("test-secret", "halcyon", "", time.Minute)
	require.NoError(t, err)

	_, err = verifier.ParseAccessToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
