package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sandeepkv93/fittrack-backend/internal/http/response"
	"github.com/sandeepkv93/fittrack-backend/internal/observability"
	"github.com/sandeepkv93/fittrack-backend/internal/security"
)

type contextKey string

const AccountIDContextKey contextKey = "account_id"

// AccessTokenParser verifies access tokens.
type AccessTokenParser interface {
	ParseAccessToken(raw string) (*security.Claims, error)
}

// AuthMiddleware requires an "Authorization: Bearer <token>" header carrying a
// valid access token. The token subject is stored in the request context.
func AuthMiddleware(tokens AccessTokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				observability.RecordAccessTokenValidation(r.Context(), "missing", "none")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing or malformed authorization header", nil)
				return
			}
			claims, err := tokens.ParseAccessToken(raw)
			if err != nil {
				observability.RecordAccessTokenValidation(r.Context(), "invalid", "bearer")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token", nil)
				return
			}
			accountID, err := uuid.Parse(claims.Subject)
			if err != nil {
				observability.RecordAccessTokenValidation(r.Context(), "invalid_subject", "bearer")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token", nil)
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid", "bearer")
			noteAccountForLog(r.Context(), accountID.String())
			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func AccountIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(AccountIDContextKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// WithAccountID returns a context carrying accountID, as AuthMiddleware does.
func WithAccountID(ctx context.Context, accountID uuid.UUID) context.Context {
	return context.WithValue(ctx, AccountIDContextKey, accountID)
}
