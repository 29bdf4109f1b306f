package di

import (
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/fittrack-backend/internal/app"
	"github.com/sandeepkv93/fittrack-backend/internal/config"
	"github.com/sandeepkv93/fittrack-backend/internal/database"
	"github.com/sandeepkv93/fittrack-backend/internal/events"
	"github.com/sandeepkv93/fittrack-backend/internal/health"
	"github.com/sandeepkv93/fittrack-backend/internal/http/handler"
	"github.com/sandeepkv93/fittrack-backend/internal/http/middleware"
	"github.com/sandeepkv93/fittrack-backend/internal/http/router"
	"github.com/sandeepkv93/fittrack-backend/internal/observability"
	"github.com/sandeepkv93/fittrack-backend/internal/security"
	"github.com/sandeepkv93/fittrack-backend/internal/service"
)

// backgroundStop releases workers that live alongside the HTTP server.
type backgroundStop func()

func provideDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	return database.Open(cfg, logger)
}

// provideRedis returns nil when no component is configured to use redis.
func provideRedis(cfg *config.Config) redis.UniversalClient {
	if !cfg.UsesRedis() {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideTokenManager(cfg *config.Config) *security.TokenManager {
	refreshSecret := cfg.JWTRefreshSecret
	if refreshSecret == "" {
		refreshSecret = cfg.JWTSecret
	}
	return security.NewTokenManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret, refreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
}

func providePasswordHasher(cfg *config.Config) (*security.PasswordHasher, error) {
	return security.NewPasswordHasher(cfg.BcryptCost)
}

func provideAuthAbuseGuard(cfg *config.Config, rc redis.UniversalClient) service.AuthAbuseGuard {
	policy := service.AuthAbusePolicy{
		FreeAttempts: cfg.AuthAbuseFreeAttempts,
		BaseDelay:    cfg.AuthAbuseBaseDelay,
		Multiplier:   cfg.AuthAbuseMultiplier,
		MaxDelay:     cfg.AuthAbuseMaxDelay,
		ResetWindow:  cfg.AuthAbuseResetWindow,
	}
	if cfg.RedisEnabled && rc != nil {
		return service.NewRedisAuthAbuseGuard(rc, cfg.AuthAbuseRedisPrefix, policy)
	}
	return service.NewLocalAuthAbuseGuard(policy)
}

func provideEventPublisher(cfg *config.Config, logger *slog.Logger) (service.EventPublisher, backgroundStop) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka brokers not configured, training events disabled")
		return events.Noop{}, func() {}
	}
	producer := events.NewKafkaProducer(cfg.KafkaBrokers)
	publisher := events.NewPublisher(producer, events.Topics{
		ExerciseLogs:   cfg.KafkaExerciseLogTopic,
		BodyweightLogs: cfg.KafkaBodyweightLogTopic,
	}, cfg.KafkaPublishTimeout)
	return publisher, func() {
		if err := producer.Close(); err != nil {
			logger.Warn("close kafka producer", "error", err)
		}
	}
}

func provideIdempotency(cfg *config.Config, rc redis.UniversalClient) router.IdempotencyMiddlewareFactory {
	if !cfg.IdempotencyEnabled || !cfg.RedisEnabled || rc == nil {
		return nil
	}
	store := service.NewRedisIdempotencyStore(rc, cfg.IdempotencyRedisPrefix)
	return router.IdempotencyMiddlewareFactory(middleware.Idempotency(store, cfg.IdempotencyTTL))
}

func provideRouterDependencies(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	trainingHandler *handler.TrainingHandler,
	logHandler *handler.LogHandler,
	tokens *security.TokenManager,
	rc redis.UniversalClient,
	idempotency router.IdempotencyMiddlewareFactory,
	readiness *health.ProbeRunner,
) router.Dependencies {
	dep := router.Dependencies{
		AuthHandler:      authHandler,
		TrainingHandler:  trainingHandler,
		LogHandler:       logHandler,
		Tokens:           tokens,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		Idempotency:      idempotency,
		Readiness:        readiness,
		EnableOTelHTTP:   cfg.OTELTracingEnabled,
		EnablePrometheus: cfg.PrometheusEnabled,
	}

	var limiter middleware.Limiter
	mode := middleware.FailureMode(cfg.RateLimitFailureMode)
	backend := "local"
	if cfg.RateLimitRedisEnabled && rc != nil {
		limiter = middleware.NewRedisLimiter(rc, cfg.RateLimitRedisPrefix)
		backend = "redis"
	} else {
		limiter = middleware.NewMemoryLimiter()
		mode = middleware.FailClosed
	}
	authLimiter := func(name string) func(http.Handler) http.Handler {
		return middleware.NewThrottle(limiter, middleware.PerMinute(cfg.AuthRateLimitRPM),
			middleware.WithScope(backend+".auth."+name),
			middleware.WithFailureMode(mode),
		).Middleware()
	}
	dep.AuthRateLimiter = authLimiter("default")
	dep.APIRateLimiter = middleware.NewThrottle(limiter, middleware.PerMinute(cfg.APIRateLimitRPM),
		middleware.WithScope(backend+".api"),
		middleware.WithFailureMode(mode),
		middleware.WithKeyFunc(middleware.AccountOrIPKeyFunc(tokens)),
	).Middleware()
	dep.RouteRateLimitPolicies = router.RouteRateLimitPolicies{
		router.RoutePolicyLogin:  authLimiter(router.RoutePolicyLogin),
		router.RoutePolicySignup: authLimiter(router.RoutePolicySignup),
	}
	return dep
}

func provideReadiness(cfg *config.Config, db *gorm.DB, rc redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.DBChecker(db)}
	if rc != nil {
		checkers = append(checkers, health.RedisChecker(rc))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ReadinessCacheTTL, checkers...)
}

func provideHTTPHandler(dep router.Dependencies) http.Handler {
	return router.NewRouter(dep)
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadTimeout:       cfg.ServerReadTimeout,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	db *gorm.DB,
	rc redis.UniversalClient,
	runtime *observability.Runtime,
	readiness *health.ProbeRunner,
	stop backgroundStop,
) *app.App {
	return app.New(cfg, logger, server, db, rc, runtime, readiness, stop)
}
