package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sandeepkv93/fittrack-backend/internal/http/response"
	"github.com/sandeepkv93/fittrack-backend/internal/observability"
)

// Quota allows Limit requests per key in any Window.
type Quota struct {
	Limit  int
	Window time.Duration
}

// PerMinute is the quota shape every fittrack limiter is configured with.
func PerMinute(n int) Quota {
	return Quota{Limit: n, Window: time.Minute}
}

func (q Quota) orDefault() Quota {
	if q.Limit <= 0 {
		q.Limit = 1
	}
	if q.Window <= 0 {
		q.Window = time.Minute
	}
	return q
}

// Verdict is a limiter's answer for one request.
type Verdict struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

type Limiter interface {
	Take(ctx context.Context, key string, q Quota) (Verdict, error)
}

type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

// KeyFunc derives the bucket a request is counted against. An empty key falls
// back to the client IP.
type KeyFunc func(r *http.Request) string

// Throttle rejects requests over quota with 429 RATE_LIMITED and always
// reports X-RateLimit-* headers.
type Throttle struct {
	limiter Limiter
	quota   Quota
	mode    FailureMode
	scope   string
	key     KeyFunc
}

type ThrottleOption func(*Throttle)

func WithScope(scope string) ThrottleOption {
	return func(t *Throttle) { t.scope = scope }
}

func WithKeyFunc(fn KeyFunc) ThrottleOption {
	return func(t *Throttle) { t.key = fn }
}

// WithFailureMode decides what happens when the limiter backend errors.
func WithFailureMode(mode FailureMode) ThrottleOption {
	return func(t *Throttle) { t.mode = mode }
}

func NewThrottle(limiter Limiter, q Quota, opts ...ThrottleOption) *Throttle {
	t := &Throttle{
		limiter: limiter,
		quota:   q.orDefault(),
		mode:    FailClosed,
		scope:   "api",
		key:     clientIPKey,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.limiter == nil {
		t.limiter = NewMemoryLimiter()
	}
	if t.key == nil {
		t.key = clientIPKey
	}
	return t
}

func (t *Throttle) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := t.key(r)
			if key == "" {
				key = clientIPKey(r)
			}
			kind := keyKind(key)

			v, err := t.limiter.Take(ctx, t.scope+":"+key, t.quota)
			if err != nil {
				observability.RecordRateLimitDecision(ctx, t.scope, "backend_error", string(t.mode), kind)
				if t.mode == FailOpen {
					slog.WarnContext(ctx, "rate limiter unavailable; letting request through",
						"scope", t.scope,
						"error", err.Error(),
					)
					next.ServeHTTP(w, r)
					return
				}
				v = Verdict{RetryAfter: t.quota.Window, ResetAt: time.Now().Add(t.quota.Window)}
				t.reject(w, r, v, "backend")
				return
			}

			setQuotaHeaders(w.Header(), t.quota.Limit, v)
			if !v.Allowed {
				observability.RecordRateLimitDecision(ctx, t.scope, "deny", string(t.mode), kind)
				t.reject(w, r, v, "window")
				return
			}
			observability.RecordRateLimitDecision(ctx, t.scope, "allow", string(t.mode), kind)
			next.ServeHTTP(w, r)
		})
	}
}

func (t *Throttle) reject(w http.ResponseWriter, r *http.Request, v Verdict, reason string) {
	setQuotaHeaders(w.Header(), t.quota.Limit, v)
	w.Header().Set("Retry-After", strconv.Itoa(wholeSeconds(v.RetryAfter)))
	observability.RecordRateLimitRetryAfter(r.Context(), t.scope, reason, v.RetryAfter)
	response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
}

// AccountOrIPKeyFunc counts authenticated traffic per account and anonymous
// traffic per client IP. The limiter runs ahead of AuthMiddleware, so the
// bearer token is parsed here as well.
func AccountOrIPKeyFunc(tokens AccessTokenParser) KeyFunc {
	return func(r *http.Request) string {
		if id, ok := AccountIDFromContext(r.Context()); ok {
			return "sub:" + id.String()
		}
		raw, ok := bearerToken(r)
		if !ok || tokens == nil {
			return clientIPKey(r)
		}
		claims, err := tokens.ParseAccessToken(raw)
		if err != nil || claims.Subject == "" {
			return clientIPKey(r)
		}
		return "sub:" + claims.Subject
	}
}

// memoryLimiter keeps a sliding log of admitted requests per key. It is the
// single-instance fallback when Redis is not configured.
type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	logs    map[string][]time.Time
	sweepAt time.Time
}

func NewMemoryLimiter() Limiter {
	return &memoryLimiter{now: time.Now, logs: make(map[string][]time.Time)}
}

func (m *memoryLimiter) Take(_ context.Context, key string, q Quota) (Verdict, error) {
	q = q.orDefault()
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.After(m.sweepAt) {
		for k, hits := range m.logs {
			if len(hits) == 0 || now.Sub(hits[len(hits)-1]) > q.Window {
				delete(m.logs, k)
			}
		}
		m.sweepAt = now.Add(q.Window)
	}

	cutoff := now.Add(-q.Window)
	hits := m.logs[key]
	live := hits[:0]
	for _, at := range hits {
		if at.After(cutoff) {
			live = append(live, at)
		}
	}

	if len(live) >= q.Limit {
		m.logs[key] = live
		oldest := live[0].Add(q.Window)
		return Verdict{RetryAfter: oldest.Sub(now), ResetAt: oldest}, nil
	}
	live = append(live, now)
	m.logs[key] = live
	return Verdict{
		Allowed:   true,
		Remaining: q.Limit - len(live),
		ResetAt:   live[0].Add(q.Window),
	}, nil
}

// clientIPKey reads the peer address. chi's RealIP middleware has already
// rewritten RemoteAddr from forwarding headers when it is installed.
func clientIPKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return r.RemoteAddr
}

func keyKind(key string) string {
	if strings.HasPrefix(key, "sub:") {
		return "subject"
	}
	return "ip"
}

// wholeSeconds rounds up so clients never retry before the window opens.
func wholeSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

func setQuotaHeaders(h http.Header, limit int, v Verdict) {
	reset := v.ResetAt
	if reset.IsZero() {
		reset = time.Now().Add(time.Second)
	}
	h.Set("X-RateLimit-Limit", strconv.Itoa(max(limit, 0)))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(v.Remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}
