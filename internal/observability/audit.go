package observability

import (
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// AuthEvent is one authentication attempt as it appears in the audit log.
type AuthEvent struct {
	Action    string
	AccountID string
	Err       error
}

func (e AuthEvent) outcome() string {
	if e.Err != nil {
		return "rejected"
	}
	return "success"
}

// AuditAuth logs the attempt with the request id and peer address. Rejections
// are logged at warn so they surface without debug logging.
func AuditAuth(r *http.Request, ev AuthEvent) {
	attrs := []slog.Attr{
		slog.String("action", ev.Action),
		slog.String("outcome", ev.outcome()),
		slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		slog.String("remote_addr", r.RemoteAddr),
	}
	if ev.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", ev.AccountID))
	}
	level := slog.LevelInfo
	if ev.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("reason", ev.Err.Error()))
	}
	slog.LogAttrs(r.Context(), level, "auth audit", attrs...)
}
