package config

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	loadCounterOnce sync.Once
	loadCounter     metric.Int64Counter
)

// recordLoad counts config loads by environment, outcome and the area of the
// first rejected setting.
func recordLoad(ctx context.Context, env string, err error) {
	loadCounterOnce.Do(func() {
		if c, cerr := otel.Meter("fittrack-backend").Int64Counter("config.loads"); cerr == nil {
			loadCounter = c
		}
	})
	if loadCounter == nil {
		return
	}
	outcome := "accepted"
	if err != nil {
		outcome = "rejected"
	}
	loadCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("env", envLabel(env)),
		attribute.String("outcome", outcome),
		attribute.String("area", failureArea(err)),
	))
}

func envLabel(env string) string {
	switch v := strings.ToLower(strings.TrimSpace(env)); v {
	case "development", "dev", "local":
		return "development"
	case "test", "testing", "ci":
		return "test"
	case "staging", "production", "prod":
		if v == "prod" {
			return "production"
		}
		return v
	case "":
		return "unset"
	default:
		return "other"
	}
}

// settingError marks a rejected setting with the area it belongs to.
type settingError struct {
	area string
	msg  string
}

func (e *settingError) Error() string { return e.msg }

func invalid(area, msg string) error { return &settingError{area: area, msg: msg} }

func failureArea(err error) string {
	if err == nil {
		return "none"
	}
	var se *settingError
	if errors.As(err, &se) {
		return se.area
	}
	var de *decodeError
	if errors.As(err, &de) {
		return "decode"
	}
	return "source"
}

// decodeError wraps failures turning raw values into Config fields.
type decodeError struct{ err error }

func (e *decodeError) Error() string { return "parse config: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }
