package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sandeepkv93/fittrack-backend/internal/http/middleware"
	"github.com/sandeepkv93/fittrack-backend/internal/http/response"
	"github.com/sandeepkv93/fittrack-backend/internal/service"
)

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// decodeAndValidate reads a single JSON object into dst and validates it. It
// writes the 400 response itself and reports whether the caller may proceed.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return false
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "request body must contain a single JSON object", nil)
		return false
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]fieldError, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag()})
			}
			response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "request validation failed", details)
			return false
		}
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "request validation failed", nil)
		return false
	}
	return true
}

func requireAccount(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return uuid.Nil, false
	}
	return id, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("%s must be a UUID", name), nil)
		return uuid.Nil, false
	}
	return id, true
}

func positiveIntQuery(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

// writeServiceError maps service error kinds to HTTP statuses. Anything it
// does not recognise is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	var nf *service.NotFoundError
	var throttled *service.ThrottledError
	switch {
	case errors.As(err, &verr):
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), []fieldError{{Field: verr.Field, Rule: "invalid"}})
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
	case errors.Is(err, service.ErrUnauthorized):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized", nil)
	case errors.Is(err, service.ErrDuplicateCredential):
		response.Error(w, r, http.StatusConflict, "DUPLICATE_CREDENTIAL", "email or username already registered", nil)
	case errors.As(err, &nf):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", nf.Error(), nil)
	case errors.As(err, &throttled):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(throttled)))
		response.Error(w, r, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "too many failed attempts, try again later", nil)
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", response.RequestID(r),
			"error", err,
		)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}

func retryAfterSeconds(e *service.ThrottledError) int {
	s := int(math.Ceil(e.RetryAfter.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}
