package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sandeepkv93/fittrack-backend/internal/http/response"
	"github.com/sandeepkv93/fittrack-backend/internal/observability"
	"github.com/sandeepkv93/fittrack-backend/internal/service"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotentReplayedHeader  = "Idempotent-Replayed"
	maxIdempotencyKeyLength   = 128
	defaultIdempotencyTimeout = 24 * time.Hour

	// inProgressTTL bounds how long a claim survives a process that dies
	// mid-request. Completed responses are kept for the full ttl.
	inProgressTTL = 2 * time.Minute
)

// IdempotencyStore is the subset of service.IdempotencyStore the middleware needs.
type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (service.IdempotencyBeginResult, error)
	Complete(ctx context.Context, scope, key, fingerprint string, resp service.CachedHTTPResponse, ttl time.Duration) error
	Abort(ctx context.Context, scope, key, fingerprint string) error
}

// Idempotency returns a middleware factory keyed by scope. Requests without an
// Idempotency-Key header pass through untouched.
func Idempotency(store IdempotencyStore, ttl time.Duration) func(scope string) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTimeout
	}
	return func(scope string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
				if key == "" || store == nil {
					next.ServeHTTP(w, r)
					return
				}
				if len(key) > maxIdempotencyKeyLength {
					response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "idempotency key too long", nil)
					return
				}
				body, err := io.ReadAll(r.Body)
				if err != nil {
					var maxErr *http.MaxBytesError
					if errors.As(err, &maxErr) {
						response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
						return
					}
					response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "unable to read request body", nil)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				fp := requestFingerprint(r, body)

				res, err := store.Begin(r.Context(), scope, key, fp, min(ttl, inProgressTTL))
				if err != nil {
					observability.RecordIdempotencyOutcome(r.Context(), scope, "store_error")
					slog.WarnContext(r.Context(), "idempotency store unavailable, processing request", "scope", scope, "error", err)
					next.ServeHTTP(w, r)
					return
				}
				switch res.State {
				case service.IdempotencyStateReplay:
					observability.RecordIdempotencyOutcome(r.Context(), scope, "replay")
					w.Header().Set(IdempotentReplayedHeader, "true")
					if res.Cached.ContentType != "" {
						w.Header().Set("Content-Type", res.Cached.ContentType)
					}
					w.WriteHeader(res.Cached.StatusCode)
					_, _ = w.Write(res.Cached.Body)
					return
				case service.IdempotencyStateInProgress:
					observability.RecordIdempotencyOutcome(r.Context(), scope, "in_progress")
					response.Error(w, r, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "a request with this idempotency key is still being processed", nil)
					return
				case service.IdempotencyStateConflict:
					observability.RecordIdempotencyOutcome(r.Context(), scope, "conflict")
					response.Error(w, r, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "idempotency key was used with a different request", nil)
					return
				}

				// The request context may already be cancelled once the client
				// has gone away; the outcome must still be stored.
				ctx := context.WithoutCancel(r.Context())
				release := func() {
					observability.RecordIdempotencyOutcome(ctx, scope, "aborted")
					if err := store.Abort(ctx, scope, key, fp); err != nil {
						slog.WarnContext(ctx, "idempotency abort failed", "scope", scope, "error", err)
					}
				}
				defer func() {
					if p := recover(); p != nil {
						release()
						panic(p)
					}
				}()

				rec := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
				next.ServeHTTP(rec, r)

				if rec.status >= http.StatusInternalServerError {
					release()
					return
				}
				observability.RecordIdempotencyOutcome(ctx, scope, "stored")
				if err := store.Complete(ctx, scope, key, fp, service.CachedHTTPResponse{
					StatusCode:  rec.status,
					ContentType: rec.Header().Get("Content-Type"),
					Body:        rec.body.Bytes(),
				}, ttl); err != nil {
					slog.WarnContext(ctx, "idempotency complete failed", "scope", scope, "error", err)
				}
			})
		}
	}
}

func requestFingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{0})
	if id, ok := AccountIDFromContext(r.Context()); ok {
		h.Write([]byte(id.String()))
	}
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type capturingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (c *capturingWriter) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *capturingWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}
