package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/infra/config"
	"github.com/halcyonsoft/halcyon/internal/infra/security"
	"github.com/halcyonsoft/halcyon/internal/transport/http/handlers"
	"github.com/halcyonsoft/halcyon/internal/transport/http/middleware"
)

// Dependencies aggregates everything the HTTP router needs.
type Dependencies struct {
	Config         *config.AppConfig
	Logger         *zap.Logger
	Tokens         *security.JWTManager
	RateLimitStore middleware.RateLimitStore
	Metrics        *middleware.HTTPMetrics
	Health         *handlers.HealthHandler
	Identity       *handlers.IdentityHandler
	Profile        *handlers.ProfileHandler
	Administrator  *handlers.AdministratorHandler
	Accounts       *handlers.AccountHandler
}

// NewRouter assembles the Gin engine: common middleware, probes, and the
// /api/{identity,profile,administrator,accounts} route groups.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Config != nil && deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.EnrichContext())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.CORS(corsOrigins(deps.Config)))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Handler())
	}

	if deps.Health != nil {
		router.GET("/healthz", deps.Health.Status)
		router.GET("/readyz", deps.Health.Ready)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	if deps.Identity != nil {
		deps.Identity.RegisterRoutes(api.Group("/identity"), identityGuards(deps))
	}

	if deps.Profile != nil {
		profile := api.Group("/profile", middleware.RequireAuth(deps.Tokens))
		deps.Profile.RegisterRoutes(profile)
	}

	if deps.Accounts != nil {
		accounts := api.Group("/accounts", middleware.RequireAuth(deps.Tokens))
		deps.Accounts.RegisterRoutes(accounts)
	}

	if deps.Administrator != nil {
		administrator := api.Group("/administrator", middleware.RequireAuth(deps.Tokens))

		collections := administrator.Group("", middleware.RequireRole(domain.RoleAdministrator))
		deps.Administrator.RegisterRoutes(collections)

		// Per-user operations demonstrate claim-parameter authorization: the
		// caller needs a user:manage claim matching the route's user id, or
		// the Administrator role.
		userPolicy := middleware.ClaimPolicy{
			Requirements: []middleware.ClaimRequirement{
				{Type: "user:manage", Value: "user_id", Source: middleware.ClaimValueRouteParam},
			},
			OverrideRoles: []string{domain.RoleAdministrator},
		}
		users := administrator.Group("/users", userPolicy.Handler())
		deps.Administrator.RegisterUserRoutes(users)
	}

	return router
}

func identityGuards(deps Dependencies) handlers.IdentityRouteGuards {
	if deps.RateLimitStore == nil || deps.Config == nil {
		return handlers.IdentityRouteGuards{}
	}

	limits := deps.Config.RateLimit
	limiter := middleware.NewRateLimiter(deps.RateLimitStore, deps.Logger)

	rule := func(name string, limit int) []gin.HandlerFunc {
		if limit <= 0 {
			return nil
		}
		return []gin.HandlerFunc{limiter.RateLimit(middleware.RateLimitRule{
			Name:       name,
			Limit:      limit,
			Window:     limits.WindowDuration,
			Identifier: middleware.ClientIPIdentifier(),
		})}
	}

	return handlers.IdentityRouteGuards{
		Login:    rule("login", limits.LoginMaxAttempts),
		Register: rule("register", limits.RegisterMaxAttempts),
		Refresh:  rule("refresh", limits.RefreshMaxAttempts),
		Reset:    rule("password_reset", limits.PasswordResetMaxAttempts),
	}
}

func corsOrigins(cfg *config.AppConfig) []string {
	if cfg == nil || cfg.App.SiteURL == "" {
		return []string{"*"}
	}
	return []string{cfg.App.SiteURL}
}
