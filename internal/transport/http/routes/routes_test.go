package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/infra/config"
	"github.com/halcyonsoft/halcyon/internal/infra/security"
	"github.com/halcyonsoft/halcyon/internal/transport/http/handlers"
	httproutes "github.com/halcyonsoft/halcyon/internal/transport/http/routes"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	tokens, err := security.NewJWTManager("0123456789abcdef0123456789abcdef", "halcyon", "halcyon-api", 15*time.Minute)
	require.NoError(t, err)

	return httproutes.NewRouter(httproutes.Dependencies{
		Config:        &config.AppConfig{},
		Logger:        zap.NewNop(),
		Tokens:        tokens,
		Health:        handlers.NewHealthHandler(nil, nil),
		Identity:      handlers.NewIdentityHandler(nil, nil, zap.NewNop()),
		Profile:       handlers.NewProfileHandler(nil, nil, zap.NewNop()),
		Administrator: handlers.NewAdministratorHandler(nil, zap.NewNop()),
		Accounts:      handlers.NewAccountHandler(nil, zap.NewNop()),
	})
}

func TestRouterProbesArePublic(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterProtectedGroupsRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	paths := []string{
		"/api/profile",
		"/api/accounts",
		"/api/administrator/users",
	}

	for _, path := range paths {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouterRequestIDHeader(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
}
