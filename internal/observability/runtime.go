package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/sandeepkv93/fittrack-backend/internal/config"
)

// Runtime owns the OpenTelemetry providers installed for the API process.
// LoggerProvider is nil when OTLP log export is disabled.
type Runtime struct {
	LoggerProvider *sdklog.LoggerProvider

	shutdowns []namedShutdown
}

type namedShutdown struct {
	signal string
	fn     func(context.Context) error
}

func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{}
	fail := func(signal string, err error) (*Runtime, error) {
		_ = rt.Shutdown(ctx)
		return nil, fmt.Errorf("init %s: %w", signal, err)
	}

	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		return fail("metrics", err)
	}
	rt.track("metrics", mp.Shutdown)

	tp, err := InitTracing(ctx, cfg, logger)
	if err != nil {
		return fail("tracing", err)
	}
	rt.track("tracing", tp.Shutdown)

	lp, err := InitLogging(ctx, cfg, logger)
	if err != nil {
		return fail("logging", err)
	}
	if lp != nil {
		rt.LoggerProvider = lp
		rt.track("logging", lp.Shutdown)
	}
	return rt, nil
}

func (r *Runtime) track(signal string, fn func(context.Context) error) {
	r.shutdowns = append(r.shutdowns, namedShutdown{signal: signal, fn: fn})
}

// Shutdown flushes providers in reverse start order so logs emitted while
// metrics and traces drain still reach the exporter.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.shutdowns) - 1; i >= 0; i-- {
		s := r.shutdowns[i]
		if err := s.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", s.signal, err))
		}
	}
	r.shutdowns = nil
	return errors.Join(errs...)
}
