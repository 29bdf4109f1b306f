package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
	"github.com/sandeepkv93/fittrack-backend/internal/repository"
	"github.com/sandeepkv93/fittrack-backend/internal/security"
)

type AuthServiceInterface interface {
	Signup(ctx context.Context, in SignupInput) (uuid.UUID, error)
	Login(ctx context.Context, in LoginInput) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Me(ctx context.Context, accountID uuid.UUID) (*domain.Profile, error)
}

type TrainingServiceInterface interface {
	CreatePlan(ctx context.Context, accountID uuid.UUID, name string) (*domain.Plan, error)
	ListPlans(ctx context.Context, accountID uuid.UUID) ([]domain.Plan, error)
	GetPlan(ctx context.Context, accountID, planID uuid.UUID) (*domain.Plan, error)
	ListPlanRoutines(ctx context.Context, accountID, planID uuid.UUID) ([]domain.Routine, error)
	CreateRoutine(ctx context.Context, accountID uuid.UUID, in RoutineInput) (*domain.Routine, error)
	ListRoutines(ctx context.Context, accountID uuid.UUID, planID *uuid.UUID) ([]domain.Routine, error)
	ListRoutineExercises(ctx context.Context, accountID, routineID uuid.UUID) (*domain.RoutineExercises, error)
	AttachExercise(ctx context.Context, accountID, routineID, exerciseID uuid.UUID) (*domain.RoutineExerciseLink, error)
	CreateExercise(ctx context.Context, accountID uuid.UUID, in ExerciseInput) (*domain.Exercise, error)
	ListExercises(ctx context.Context, accountID uuid.UUID) ([]domain.Exercise, error)
}

type LogServiceInterface interface {
	LogExercise(ctx context.Context, accountID uuid.UUID, in ExerciseLogInput) (*domain.ExerciseLogEntry, error)
	ListExerciseLogs(ctx context.Context, accountID uuid.UUID, page repository.PageRequest) (repository.PageResult[domain.ExerciseLogEntry], error)
	LogBodyweight(ctx context.Context, accountID uuid.UUID, in BodyweightInput) (*domain.BodyweightLog, error)
	ListBodyweight(ctx context.Context, accountID uuid.UUID) ([]domain.BodyweightLog, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	VerifyDummy(plaintext string) bool
}

type TokenIssuer interface {
	SignAccessToken(subject string) (string, error)
	SignRefreshToken(subject string) (string, error)
	ParseRefreshToken(raw string) (*security.Claims, error)
	AccessTTL() time.Duration
}

// EventPublisher announces recorded training data to downstream consumers.
type EventPublisher interface {
	ExerciseLogged(ctx context.Context, entry *domain.ExerciseLogEntry) error
	BodyweightLogged(ctx context.Context, entry *domain.BodyweightLog) error
}

type AuthAbuseGuard interface {
	Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error
}
