//go:build wireinject

package di

import (
	"log/slog"

	"github.com/google/wire"

	"github.com/sandeepkv93/fittrack-backend/internal/app"
	"github.com/sandeepkv93/fittrack-backend/internal/config"
	"github.com/sandeepkv93/fittrack-backend/internal/http/handler"
	"github.com/sandeepkv93/fittrack-backend/internal/observability"
	"github.com/sandeepkv93/fittrack-backend/internal/repository"
	"github.com/sandeepkv93/fittrack-backend/internal/security"
	"github.com/sandeepkv93/fittrack-backend/internal/service"
)

var infraSet = wire.NewSet(
	provideDB,
	provideRedis,
	provideTokenManager,
	providePasswordHasher,
	provideEventPublisher,
	provideReadiness,
)

var repositorySet = wire.NewSet(
	repository.NewAccountRepository,
	repository.NewPlanRepository,
	repository.NewRoutineRepository,
	repository.NewExerciseRepository,
	repository.NewExerciseLogRepository,
	repository.NewBodyweightRepository,
)

var serviceSet = wire.NewSet(
	provideAuthAbuseGuard,
	service.NewAuthService,
	service.NewTrainingService,
	service.NewLogService,
	wire.Bind(new(service.PasswordHasher), new(*security.PasswordHasher)),
	wire.Bind(new(service.TokenIssuer), new(*security.TokenManager)),
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.TrainingServiceInterface), new(*service.TrainingService)),
	wire.Bind(new(service.LogServiceInterface), new(*service.LogService)),
)

var httpSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewTrainingHandler,
	handler.NewLogHandler,
	provideIdempotency,
	provideRouterDependencies,
	provideHTTPHandler,
	provideHTTPServer,
)

func InitializeApp(cfg *config.Config, logger *slog.Logger, runtime *observability.Runtime) (*app.App, error) {
	wire.Build(infraSet, repositorySet, serviceSet, httpSet, provideApp)
	return nil, nil
}
