package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/sandeepkv93/fittrack-backend/internal/config"
	"github.com/sandeepkv93/fittrack-backend/internal/database"
	"github.com/sandeepkv93/fittrack-backend/internal/health"
	"github.com/sandeepkv93/fittrack-backend/internal/observability"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Observability *observability.Runtime
	Readiness     *health.ProbeRunner

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	stopBackground func()
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	runtime *observability.Runtime,
	readiness *health.ProbeRunner,
	stopBackground func(),
) *App {
	return &App{
		Config:                       cfg,
		Logger:                       logger,
		Server:                       server,
		DB:                           db,
		Redis:                        redisClient,
		Observability:                runtime,
		Readiness:                    readiness,
		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownHTTPDrainTimeout,
		ShutdownObservabilityTimeout: cfg.ShutdownObservabilityTimeout,
		stopBackground:               stopBackground,
	}
}

// StopBackgroundTasks releases publishers and other workers started next to
// the HTTP server.
func (a *App) StopBackgroundTasks() {
	if a.stopBackground != nil {
		a.stopBackground()
	}
}

// Run serves until ctx is cancelled or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", ln.Addr().String())
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(context.WithoutCancel(ctx))
	})
	return g.Wait()
}

// Shutdown drains HTTP traffic first, then stops background work, flushes
// telemetry and closes the data stores. Each phase has its own deadline
// inside ShutdownTimeout.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, positive(a.ShutdownTimeout, 20*time.Second))
	defer cancel()

	var errs []error
	drainCtx, drainCancel := context.WithTimeout(ctx, positive(a.ShutdownHTTPDrainTimeout, 10*time.Second))
	if err := a.Server.Shutdown(drainCtx); err != nil {
		errs = append(errs, err)
		a.Logger.Warn("http drain incomplete", "error", err)
	}
	drainCancel()

	a.StopBackgroundTasks()

	obsCtx, obsCancel := context.WithTimeout(ctx, positive(a.ShutdownObservabilityTimeout, 5*time.Second))
	if err := a.Observability.Shutdown(obsCtx); err != nil {
		errs = append(errs, err)
	}
	obsCancel()

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			errs = append(errs, err)
		}
	}
	a.Logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func positive(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
