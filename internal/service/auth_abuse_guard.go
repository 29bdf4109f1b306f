package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"sync"
	"time"
)

type AuthAbuseScope string

const (
	AuthAbuseScopeLogin  AuthAbuseScope = "login"
	AuthAbuseScopeSignup AuthAbuseScope = "signup"
)

// AuthAbusePolicy grants FreeAttempts failures, then imposes a cooldown that
// starts at BaseDelay and grows by Multiplier up to MaxDelay. Counters reset
// after ResetWindow without failures.
type AuthAbusePolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

func normalizeAuthAbusePolicy(p AuthAbusePolicy) AuthAbusePolicy {
	if p.FreeAttempts <= 0 {
		p.FreeAttempts = 5
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Minute
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.ResetWindow <= 0 {
		p.ResetWindow = 15 * time.Minute
	}
	return p
}

func (p AuthAbusePolicy) delayFor(failures int) time.Duration {
	if failures <= p.FreeAttempts {
		return 0
	}
	exp := float64(failures - p.FreeAttempts - 1)
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, exp)
	if d > float64(p.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

func normalizeAuthIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func normalizeToken(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "none"
	}
	return strings.NewReplacer(":", "_", " ", "_").Replace(v)
}

func hashToken(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:16])
}

type abuseDimension struct {
	name  string
	value string
}

func abuseDimensions(identity, ip string) []abuseDimension {
	dims := make([]abuseDimension, 0, 2)
	if id := normalizeAuthIdentity(identity); id != "" {
		dims = append(dims, abuseDimension{name: "id", value: id})
	}
	if ip = strings.TrimSpace(ip); ip != "" {
		dims = append(dims, abuseDimension{name: "ip", value: ip})
	}
	return dims
}

type localAbuseState struct {
	failures      int
	lastFailure   time.Time
	cooldownUntil time.Time
}

// LocalAuthAbuseGuard keeps abuse counters in process memory.
type LocalAuthAbuseGuard struct {
	mu     sync.Mutex
	policy AuthAbusePolicy
	state  map[string]*localAbuseState
	now    func() time.Time
}

func NewLocalAuthAbuseGuard(policy AuthAbusePolicy) *LocalAuthAbuseGuard {
	return &LocalAuthAbuseGuard{
		policy: normalizeAuthAbusePolicy(policy),
		state:  make(map[string]*localAbuseState),
		now:    time.Now,
	}
}

func (g *LocalAuthAbuseGuard) key(scope AuthAbuseScope, d abuseDimension) string {
	return string(scope) + ":" + d.name + ":" + d.value
}

func (g *LocalAuthAbuseGuard) Check(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	var longest time.Duration
	for _, d := range abuseDimensions(identity, ip) {
		st, ok := g.state[g.key(scope, d)]
		if !ok {
			continue
		}
		if remaining := st.cooldownUntil.Sub(now); remaining > longest {
			longest = remaining
		}
	}
	return longest, nil
}

func (g *LocalAuthAbuseGuard) RegisterFailure(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	var longest time.Duration
	for _, d := range abuseDimensions(identity, ip) {
		k := g.key(scope, d)
		st, ok := g.state[k]
		if !ok || now.Sub(st.lastFailure) > g.policy.ResetWindow {
			st = &localAbuseState{}
			g.state[k] = st
		}
		st.failures++
		st.lastFailure = now
		delay := g.policy.delayFor(st.failures)
		if delay > 0 {
			st.cooldownUntil = now.Add(delay)
		}
		if delay > longest {
			longest = delay
		}
	}
	return longest, nil
}

func (g *LocalAuthAbuseGuard) Reset(_ context.Context, scope AuthAbuseScope, identity, ip string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, d := range abuseDimensions(identity, ip) {
		delete(g.state, g.key(scope, d))
	}
	return nil
}
