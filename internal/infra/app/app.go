package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/infra/config"
	"github.com/halcyonsoft/halcyon/internal/infra/database"
	"github.com/halcyonsoft/halcyon/internal/infra/email"
	kafkainfra "github.com/halcyonsoft/halcyon/internal/infra/kafka"
	"github.com/halcyonsoft/halcyon/internal/infra/logger"
	redisinfra "github.com/halcyonsoft/halcyon/internal/infra/redis"
	"github.com/halcyonsoft/halcyon/internal/infra/security"
	"github.com/halcyonsoft/halcyon/internal/infra/telemetry"
	postgresrepo "github.com/halcyonsoft/halcyon/internal/repository/postgres"
	redisrepo "github.com/halcyonsoft/halcyon/internal/repository/redis"
	"github.com/halcyonsoft/halcyon/internal/transport/http/handlers"
	"github.com/halcyonsoft/halcyon/internal/transport/http/middleware"
	"github.com/halcyonsoft/halcyon/internal/transport/http/routes"
	"github.com/halcyonsoft/halcyon/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	if cfg.Postgres.Migrate {
		if err := database.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.Enabled {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			pool.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	tokens, err := security.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.AccessTokenTTL)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init jwt manager: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})
	codeStore := redisrepo.NewCodeRepository(redisClient.Client(), cfg.Redis.CodePrefix)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var mailer port.Mailer
	if cfg.SMTP.Host != "" {
		mailer = email.NewSMTPMailer(cfg.SMTP, cfg.App.SiteURL, log)
	} else {
		log.Info("smtp host not configured, writing emails to the log")
		mailer = email.NewLogMailer(log)
	}

	validator := passwordValidator(cfg.Password)

	identityService := usecase.NewIdentityService(usecase.IdentityServiceDeps{
		Users:           repos.Users,
		Roles:           repos.Roles,
		Claims:          repos.Claims,
		Sessions:        repos.Sessions,
		Tokens:          repos.Tokens,
		Codes:           codeStore,
		Mailer:          mailer,
		Events:          eventPublisher,
		Issuer:          tokens,
		Validator:       validator,
		RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
		CodeTTL:         cfg.Redis.CodeTTL,
		Logger:          log,
	})
	notificationService := usecase.NewNotificationService(repos.Notifications, log)
	registrationService := usecase.NewRegistrationService(usecase.RegistrationServiceDeps{
		Users:               repos.Users,
		Roles:               repos.Roles,
		Tokens:              repos.Tokens,
		Notifier:            notificationService,
		Sessions:            identityService,
		Mailer:              mailer,
		Events:              eventPublisher,
		Validator:           validator,
		RequireVerification: cfg.App.RequireEmailVerification,
		Logger:              log,
	})
	profileService := usecase.NewProfileService(repos.Users, repos.Sessions, repos.Tokens, mailer, eventPublisher, validator, cfg.App.Name, log)
	administratorService := usecase.NewAdministratorService(repos.Users, repos.Roles, repos.Claims, repos.Sessions, eventPublisher, log)
	accountService := usecase.NewAccountService(repos.Accounts)

	seedEntries, err := cfg.Seed.ParseAdministrators()
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("parse seed administrators: %w", err)
	}
	administrators := make([]usecase.AdministratorSeed, 0, len(seedEntries))
	for _, entry := range seedEntries {
		administrators = append(administrators, usecase.AdministratorSeed{
			UserName: entry.UserName,
			Email:    entry.Email,
			Password: entry.Password,
		})
	}

	seeder := usecase.NewSeeder(repos.Users, repos.Roles, log)
	if err := seeder.Run(ctx, administrators); err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("seed roles: %w", err)
	}

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	engine := routes.NewRouter(routes.Dependencies{
		Config:         cfg,
		Logger:         log,
		Tokens:         tokens,
		RateLimitStore: rateLimitStore,
		Metrics:        metrics,
		Health:         handlers.NewHealthHandler(pool, redisClient),
		Identity:       handlers.NewIdentityHandler(registrationService, identityService, log),
		Profile:        handlers.NewProfileHandler(profileService, notificationService, log),
		Administrator:  handlers.NewAdministratorHandler(administratorService, log),
		Accounts:       handlers.NewAccountHandler(accountService, log),
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			if err := a.tracer.Shutdown(context.Background()); err != nil {
				a.logger.Warn("failed to shut down tracer provider", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

func passwordValidator(cfg config.PasswordSettings) *security.PasswordValidator {
	minLength := cfg.MinLength
	if minLength <= 0 {
		minLength = 8
	}

	rules := []security.PasswordRule{security.MinLengthRule(minLength)}
	if cfg.RequireUppercase {
		rules = append(rules, security.RequireUppercaseRule())
	}
	if cfg.RequireLowercase {
		rules = append(rules, security.RequireLowercaseRule())
	}
	if cfg.RequireDigit {
		rules = append(rules, security.RequireDigitRule())
	}
	if cfg.RequireSymbol {
		rules = append(rules, security.RequireSymbolRule())
	}
	if cfg.MinStrengthScore > 0 {
		rules = append(rules, security.RequirePasswordStrengthRule(cfg.MinStrengthScore))
	}

	return security.NewPasswordValidator(rules...)
}
