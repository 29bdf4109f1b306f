package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// startRedis returns a client bound to a throwaway miniredis server.
func startRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestAuthAbusePolicyDelays(t *testing.T) {
	p := normalizeAuthAbusePolicy(AuthAbusePolicy{FreeAttempts: 3, BaseDelay: time.Second, Multiplier: 2, MaxDelay: 10 * time.Second})
	cases := []struct {
		failures int
		want     time.Duration
	}{
		{failures: 1, want: 0},
		{failures: 3, want: 0},
		{failures: 4, want: time.Second},
		{failures: 5, want: 2 * time.Second},
		{failures: 7, want: 8 * time.Second},
		{failures: 8, want: 10 * time.Second},
		{failures: 500, want: 10 * time.Second},
	}
	for _, c := range cases {
		if got := p.delayFor(c.failures); got != c.want {
			t.Fatalf("delayFor(%d)=%s want %s", c.failures, got, c.want)
		}
	}

	d := normalizeAuthAbusePolicy(AuthAbusePolicy{})
	if d.FreeAttempts != 5 || d.BaseDelay != time.Second || d.MaxDelay != 5*time.Minute || d.ResetWindow != 15*time.Minute {
		t.Fatalf("unexpected default policy: %+v", d)
	}
}

// Both guards must behave the same: free attempts, growing cooldown, per-email
// and per-IP tracking, scope isolation and reset on successful login.
func TestAuthAbuseGuardContract(t *testing.T) {
	policy := AuthAbusePolicy{FreeAttempts: 2, BaseDelay: time.Minute, Multiplier: 2, MaxDelay: time.Hour, ResetWindow: time.Hour}
	guards := map[string]func(t *testing.T) AuthAbuseGuard{
		"local": func(*testing.T) AuthAbuseGuard { return NewLocalAuthAbuseGuard(policy) },
		"redis": func(t *testing.T) AuthAbuseGuard {
			_, rc := startRedis(t)
			return NewRedisAuthAbuseGuard(rc, "fittrack_test:abuse", policy)
		},
	}
	for name, build := range guards {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := build(t)
			const email, ip = "lifter@example.com", "203.0.113.7"

			var delays []time.Duration
			for i := 0; i < 4; i++ {
				d, err := g.RegisterFailure(ctx, AuthAbuseScopeLogin, email, ip)
				if err != nil {
					t.Fatalf("failure %d: %v", i+1, err)
				}
				delays = append(delays, d)
			}
			if delays[0] != 0 || delays[1] != 0 {
				t.Fatalf("free attempts must not cool down: %v", delays)
			}
			if delays[2] <= 0 || delays[3] <= delays[2] {
				t.Fatalf("cooldown must start and grow: %v", delays)
			}

			if d, _ := g.Check(ctx, AuthAbuseScopeLogin, " LIFTER@example.com ", "198.51.100.1"); d <= 0 {
				t.Fatal("email dimension must match case-insensitively from another IP")
			}
			if d, _ := g.Check(ctx, AuthAbuseScopeLogin, "other@example.com", ip); d <= 0 {
				t.Fatal("IP dimension must cool down other emails from the same address")
			}
			if d, _ := g.Check(ctx, AuthAbuseScopeSignup, email, ip); d != 0 {
				t.Fatalf("signup scope must be isolated from login, got %s", d)
			}
			if d, _ := g.Check(ctx, AuthAbuseScopeLogin, "fresh@example.com", "192.0.2.9"); d != 0 {
				t.Fatalf("unrelated caller cooled down: %s", d)
			}

			if err := g.Reset(ctx, AuthAbuseScopeLogin, email, ip); err != nil {
				t.Fatalf("reset: %v", err)
			}
			if d, err := g.Check(ctx, AuthAbuseScopeLogin, email, ip); err != nil || d != 0 {
				t.Fatalf("after reset cooldown=%s err=%v", d, err)
			}
		})
	}
}

func TestLocalAuthAbuseGuardForgetsOldFailures(t *testing.T) {
	now := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	g := NewLocalAuthAbuseGuard(AuthAbusePolicy{FreeAttempts: 1, BaseDelay: time.Second, ResetWindow: 10 * time.Minute})
	g.now = func() time.Time { return now }
	ctx := context.Background()

	if d, _ := g.RegisterFailure(ctx, AuthAbuseScopeLogin, "a@example.com", ""); d != 0 {
		t.Fatalf("first failure is free, got %s", d)
	}
	now = now.Add(11 * time.Minute)
	if d, _ := g.RegisterFailure(ctx, AuthAbuseScopeLogin, "a@example.com", ""); d != 0 {
		t.Fatalf("failure after the reset window must start over, got %s", d)
	}
	if d, _ := g.RegisterFailure(ctx, AuthAbuseScopeLogin, "a@example.com", ""); d != time.Second {
		t.Fatalf("expected base delay, got %s", d)
	}
}

func TestRedisAuthAbuseGuardRejectsCorruptState(t *testing.T) {
	ctx := context.Background()
	_, rc := startRedis(t)
	g := NewRedisAuthAbuseGuard(rc, "", AuthAbusePolicy{})

	key := g.stateKey(AuthAbuseScopeLogin, "id", "corrupt@example.com")
	if err := rc.HSet(ctx, key, "cooldown_until_ms", "soon").Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := g.Check(ctx, AuthAbuseScopeLogin, "corrupt@example.com", ""); err == nil {
		t.Fatal("expected parse error for corrupt cooldown")
	}
}
