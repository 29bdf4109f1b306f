package config

import (
	"errors"
	"fmt"
	"testing"
)

func TestFailureArea(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "none", err: nil, want: "none"},
		{name: "single setting", err: invalid("redis", "REDIS_ADDR is required"), want: "redis"},
		{name: "first of joined", err: errors.Join(invalid("jwt", "short"), invalid("database", "no dsn")), want: "jwt"},
		{name: "wrapped validation", err: fmt.Errorf("validate config: %w", errors.Join(invalid("telemetry", "ratio"))), want: "telemetry"},
		{name: "decode", err: &decodeError{err: errors.New("cannot parse duration")}, want: "decode"},
		{name: "file read", err: fmt.Errorf("parse config file: %w", errors.New("yaml: bad indent")), want: "source"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := failureArea(tc.err); got != tc.want {
				t.Fatalf("failureArea()=%q want %q", got, tc.want)
			}
		})
	}
}

func TestEnvLabel(t *testing.T) {
	cases := map[string]string{
		"  Prod ":     "production",
		"production":  "production",
		"staging":     "staging",
		"dev":         "development",
		"CI":          "test",
		"":            "unset",
		"feature-123": "other",
	}
	for in, want := range cases {
		if got := envLabel(in); got != want {
			t.Fatalf("envLabel(%q)=%q want %q", in, got, want)
		}
	}
}

func TestValidateTagsEveryRejectedSetting(t *testing.T) {
	cfg := &Config{
		JWTSecret:            "short",
		DBDriver:             "oracle",
		RateLimitFailureMode: "maybe",
		BcryptCost:           4,
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("expected joined error, got %T", err)
	}
	for _, e := range joined.Unwrap() {
		var se *settingError
		if !errors.As(e, &se) || se.area == "" {
			t.Fatalf("untagged validation error: %v", e)
		}
	}
}
