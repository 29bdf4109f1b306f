package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/fittrack-backend/internal/health"
	"github.com/sandeepkv93/fittrack-backend/internal/http/handler"
	"github.com/sandeepkv93/fittrack-backend/internal/http/middleware"
	"github.com/sandeepkv93/fittrack-backend/internal/http/response"
)

const (
	RoutePolicyLogin    = "login"
	RoutePolicySignup   = "signup"
	RoutePolicyRefresh  = "refresh"
	RoutePolicyLogWrite = "log_write"
)

const maxRequestBodyBytes = 1 << 20

type Dependencies struct {
	AuthHandler            *handler.AuthHandler
	TrainingHandler        *handler.TrainingHandler
	LogHandler             *handler.LogHandler
	Tokens                 middleware.AccessTokenParser
	CORSOrigins            []string
	AuthRateLimitRPM       int
	APIRateLimitRPM        int
	APIRateLimiter         APIRateLimiterFunc
	AuthRateLimiter        AuthRateLimiterFunc
	RouteRateLimitPolicies RouteRateLimitPolicies
	Idempotency            IdempotencyMiddlewareFactory
	Readiness              *health.ProbeRunner
	EnableOTelHTTP         bool
	EnablePrometheus       bool
}

type APIRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler
type IdempotencyMiddlewareFactory func(scope string) func(http.Handler) http.Handler

// RouteRateLimitPolicies overrides the shared limiters for individual routes,
// keyed by the RoutePolicy* names.
type RouteRateLimitPolicies map[string]func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	if dep.EnablePrometheus {
		r.Use(middleware.PrometheusMetrics)
	}
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(maxRequestBodyBytes))

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewThrottle(nil, middleware.PerMinute(dep.AuthRateLimitRPM)).Middleware()
	}
	apiLimiter := dep.APIRateLimiter
	if apiLimiter == nil {
		apiLimiter = middleware.NewThrottle(nil, middleware.PerMinute(dep.APIRateLimitRPM),
			middleware.WithKeyFunc(middleware.AccountOrIPKeyFunc(dep.Tokens)),
		).Middleware()
	}
	policy := func(name string, fallback func(http.Handler) http.Handler) func(http.Handler) http.Handler {
		if mw, ok := dep.RouteRateLimitPolicies[name]; ok && mw != nil {
			return mw
		}
		return fallback
	}
	idempotent := func(scope string, chain ...func(http.Handler) http.Handler) []func(http.Handler) http.Handler {
		if dep.Idempotency != nil {
			chain = append(chain, dep.Idempotency(scope))
		}
		return chain
	}
	requireAuth := middleware.AuthMiddleware(dep.Tokens)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})
	if dep.EnablePrometheus {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(idempotent("signup", policy(RoutePolicySignup, authLimiter))...).Post("/signup", dep.AuthHandler.Signup)
		r.With(policy(RoutePolicyLogin, authLimiter)).Post("/login", dep.AuthHandler.Login)
		r.With(policy(RoutePolicyRefresh, authLimiter)).Post("/refresh", dep.AuthHandler.Refresh)
		r.With(requireAuth, apiLimiter).Get("/user", dep.AuthHandler.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(apiLimiter)

		r.Get("/me", dep.AuthHandler.Me)

		r.Get("/plans", dep.TrainingHandler.ListPlans)
		r.Post("/plans", dep.TrainingHandler.CreatePlan)
		r.Get("/plans/{id}", dep.TrainingHandler.GetPlan)
		r.Get("/plans/{id}/routines", dep.TrainingHandler.ListPlanRoutines)
		r.Get("/plans/{id}/groups", dep.TrainingHandler.ListPlanRoutines)

		for _, base := range []string{"/routine", "/routines", "/exercise-groups"} {
			r.Post(base, dep.TrainingHandler.CreateRoutine)
			r.Get(base+"/{id}/exercises", dep.TrainingHandler.ListRoutineExercises)
		}
		r.Get("/routines", dep.TrainingHandler.ListRoutines)
		r.Get("/exercise-groups", dep.TrainingHandler.ListRoutines)
		r.Post("/routines/{id}/exercises", dep.TrainingHandler.AttachExercise)
		r.Post("/exercise-groups/{id}/exercises", dep.TrainingHandler.AttachExercise)

		r.Get("/exercises", dep.TrainingHandler.ListExercises)
		r.Post("/exercises", dep.TrainingHandler.CreateExercise)

		logWrite := policy(RoutePolicyLogWrite, nil)
		var logChain []func(http.Handler) http.Handler
		if logWrite != nil {
			logChain = append(logChain, logWrite)
		}
		r.With(idempotent("exercise_logs.create", logChain...)...).Post("/exercise-logs", dep.LogHandler.CreateExerciseLog)
		r.Get("/users/exercise-logs", dep.LogHandler.ListExerciseLogs)
		r.With(idempotent("bodyweight_logs.create", logChain...)...).Post("/bodyweight-logs", dep.LogHandler.CreateBodyweightLog)
		r.Get("/users/bodyweight-logs", dep.LogHandler.ListBodyweightLogs)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
