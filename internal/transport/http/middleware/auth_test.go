package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/infra/security"
)

func newTestJWTManager(t *testing.T) *security.JWTManager {
	t.Helper()
	manager, err := security.NewJWTManager("0123456789abcdef0123456789abcdef", "halcyon", "halcyon-api", 15*time.Minute)
	require.NoError(t, err)
	return manager
}

func issueTestToken(t *testing.T, manager *security.JWTManager, roles []string, claims []domain.Claim) string {
	t.Helper()
	user := &domain.User{ID: "user-1", UserName: "alice", Email: "alice@example.com"}
	token, err := manager.IssueAccessToken(user, roles, claims, "session-1", time.Now().UTC())
	require.NoError(t, err)
	return token
}

func newAuthRouter(manager *security.JWTManager, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	chain := append([]gin.HandlerFunc{RequireAuth(manager)}, extra...)
	chain = append(chain, func(c *gin.Context) {
		userID, _ := GetAuthenticatedUserID(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":    userID,
			"session_id": AuthenticatedSessionID(c),
			"claims":     AuthenticatedClaims(c),
		})
	})
	router.GET("/protected/:user_id", chain...)
	return router
}

func doRequest(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuthRejectsBadHeaders(t *testing.T) {
	manager := newTestJWTManager(t)
	router := newAuthRouter(manager)

	tests := []struct {
		name          string
		authorization string
	}{
		{name: "missing header", authorization: ""},
		{name: "not bearer", authorization: "Basic abc"},
		{name: "empty token", authorization: "Bearer "},
		{name: "garbage token", authorization: "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, "/protected/user-1", tt.authorization)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	manager := newTestJWTManager(t)
	router := newAuthRouter(manager)

	token := issueTestToken(t, manager, []string{"Administrator"}, nil)
	rec := doRequest(router, "/protected/user-1", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"user_id":"user-1"`)
	require.Contains(t, rec.Body.String(), `"session_id":"session-1"`)
}

func TestRequireRole(t *testing.T) {
	manager := newTestJWTManager(t)
	router := newAuthRouter(manager, RequireRole("Administrator"))

	token := issueTestToken(t, manager, []string{"Member"}, nil)
	rec := doRequest(router, "/protected/user-1", "Bearer "+token)
	require.Equal(t, http.StatusForbidden, rec.Code)

	token = issueTestToken(t, manager, []string{"Administrator"}, nil)
	rec = doRequest(router, "/protected/user-1", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestClaimPolicyRouteParam(t *testing.T) {
	manager := newTestJWTManager(t)
	policy := ClaimPolicy{
		Requirements: []ClaimRequirement{
			{Type: "user:manage", Value: "user_id", Source: ClaimValueRouteParam},
		},
		OverrideRoles: []string{"Administrator"},
	}
	router := newAuthRouter(manager, policy.Handler())

	// Claim value must match the route parameter.
	token := issueTestToken(t, manager, nil, []domain.Claim{{Type: "user:manage", Value: "user-1"}})
	rec := doRequest(router, "/protected/user-1", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, "/protected/user-2", "Bearer "+token)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, rec.Body.String())

	// Override roles bypass the claim requirements.
	token = issueTestToken(t, manager, []string{"Administrator"}, nil)
	rec = doRequest(router, "/protected/user-2", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestClaimPolicyEmptyDeniesAll(t *testing.T) {
	manager := newTestJWTManager(t)
	router := newAuthRouter(manager, ClaimPolicy{}.Handler())

	token := issueTestToken(t, manager, []string{"Administrator"}, []domain.Claim{{Type: "user:manage", Value: "user-1"}})
	rec := doRequest(router, "/protected/user-1", "Bearer "+token)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, rec.Body.String())
}
