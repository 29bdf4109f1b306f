package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/sandeepkv93/fittrack-backend/internal/config"
)

const meterName = "fittrack-backend"

type AppMetrics struct {
	authSignupCounter    metric.Int64Counter
	authLoginCounter     metric.Int64Counter
	authRefreshCounter   metric.Int64Counter
	tokenValidation      metric.Int64Counter
	repositoryOperations metric.Int64Counter
	rateLimitDecisions   metric.Int64Counter
	rateLimitRetryAfter  metric.Float64Histogram
	trainingLogsRecorded metric.Int64Counter
	eventPublishOutcomes metric.Int64Counter
	resourceMutations    metric.Int64Counter
	idempotencyOutcomes  metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	setAppMetrics(m)

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m   AppMetrics
		err error
	)
	if m.authSignupCounter, err = meter.Int64Counter("auth.signup.attempts"); err != nil {
		return nil, err
	}
	if m.authLoginCounter, err = meter.Int64Counter("auth.login.attempts"); err != nil {
		return nil, err
	}
	if m.authRefreshCounter, err = meter.Int64Counter("auth.refresh.attempts"); err != nil {
		return nil, err
	}
	if m.tokenValidation, err = meter.Int64Counter("auth.access_token.validations"); err != nil {
		return nil, err
	}
	if m.repositoryOperations, err = meter.Int64Counter("repository.operations"); err != nil {
		return nil, err
	}
	if m.rateLimitDecisions, err = meter.Int64Counter("http.rate_limit.decisions"); err != nil {
		return nil, err
	}
	if m.rateLimitRetryAfter, err = meter.Float64Histogram("http.rate_limit.retry_after", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.trainingLogsRecorded, err = meter.Int64Counter("training.logs.recorded"); err != nil {
		return nil, err
	}
	if m.eventPublishOutcomes, err = meter.Int64Counter("events.publish.outcomes"); err != nil {
		return nil, err
	}
	if m.resourceMutations, err = meter.Int64Counter("training.resource.mutations"); err != nil {
		return nil, err
	}
	if m.idempotencyOutcomes, err = meter.Int64Counter("http.idempotency.outcomes"); err != nil {
		return nil, err
	}
	return &m, nil
}

func setAppMetrics(m *AppMetrics) {
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
}

func currentMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthSignup(ctx context.Context, status string) {
	if m := currentMetrics(); m != nil {
		m.authSignupCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthLogin(ctx context.Context, status string) {
	if m := currentMetrics(); m != nil {
		m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthRefresh(ctx context.Context, status string) {
	if m := currentMetrics(); m != nil {
		m.authRefreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAccessTokenValidation(ctx context.Context, outcome, source string) {
	if m := currentMetrics(); m != nil {
		m.tokenValidation.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("source", source),
		))
	}
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	if m := currentMetrics(); m != nil {
		m.repositoryOperations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity", entity),
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode, keyType string) {
	if m := currentMetrics(); m != nil {
		m.rateLimitDecisions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("outcome", outcome),
			attribute.String("mode", mode),
			attribute.String("key_type", keyType),
		))
	}
}

func RecordRateLimitRetryAfter(ctx context.Context, scope, reason string, d time.Duration) {
	if m := currentMetrics(); m != nil {
		m.rateLimitRetryAfter.Record(ctx, d.Seconds(), metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("reason", reason),
		))
	}
}

func RecordTrainingLog(ctx context.Context, kind string) {
	if m := currentMetrics(); m != nil {
		m.trainingLogsRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func RecordResourceMutation(ctx context.Context, resource, action string) {
	if m := currentMetrics(); m != nil {
		m.resourceMutations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("resource", resource),
			attribute.String("action", action),
		))
	}
}

func RecordEventPublish(ctx context.Context, topic, outcome string) {
	if m := currentMetrics(); m != nil {
		m.eventPublishOutcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("topic", topic),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordIdempotencyOutcome(ctx context.Context, scope, outcome string) {
	if m := currentMetrics(); m != nil {
		m.idempotencyOutcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("outcome", outcome),
		))
	}
}
