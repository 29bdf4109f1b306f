package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
	"github.com/sandeepkv93/fittrack-backend/internal/observability"
	"github.com/sandeepkv93/fittrack-backend/internal/repository"
)

const maxNameLength = 255

type RoutineInput struct {
	PlanID    uuid.UUID
	Name      string
	DayOfWeek int
}

type ExerciseInput struct {
	Name         string
	Description  string
	TrackingType domain.TrackingType
}

// TrainingService manages plans, routines and exercises. Every call is scoped
// to the account that owns the data.
type TrainingService struct {
	plans     repository.PlanRepository
	routines  repository.RoutineRepository
	exercises repository.ExerciseRepository
}

func NewTrainingService(plans repository.PlanRepository, routines repository.RoutineRepository, exercises repository.ExerciseRepository) *TrainingService {
	return &TrainingService{plans: plans, routines: routines, exercises: exercises}
}

func (s *TrainingService) CreatePlan(ctx context.Context, accountID uuid.UUID, name string) (*domain.Plan, error) {
	name, err := requireName("name", name)
	if err != nil {
		return nil, err
	}
	plan := &domain.Plan{AccountID: accountID, Name: name}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, mapRepositoryError(err)
	}
	observability.RecordResourceMutation(ctx, "plan", "create")
	return plan, nil
}

func (s *TrainingService) ListPlans(ctx context.Context, accountID uuid.UUID) ([]domain.Plan, error) {
	plans, err := s.plans.ListByAccount(ctx, accountID)
	return plans, mapRepositoryError(err)
}

func (s *TrainingService) GetPlan(ctx context.Context, accountID, planID uuid.UUID) (*domain.Plan, error) {
	plan, err := s.plans.FindForAccount(ctx, accountID, planID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return plan, nil
}

func (s *TrainingService) ListPlanRoutines(ctx context.Context, accountID, planID uuid.UUID) ([]domain.Routine, error) {
	routines, err := s.routines.ListByPlan(ctx, accountID, planID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return routines, nil
}

func (s *TrainingService) CreateRoutine(ctx context.Context, accountID uuid.UUID, in RoutineInput) (*domain.Routine, error) {
	name, err := requireName("name", in.Name)
	if err != nil {
		return nil, err
	}
	if in.PlanID == uuid.Nil {
		return nil, invalid("plan_id", "is required")
	}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return nil, invalid("day_of_week", "must be between 0 and 6")
	}
	routine := &domain.Routine{PlanID: in.PlanID, Name: name, DayOfWeek: in.DayOfWeek}
	if err := s.routines.Create(ctx, accountID, routine); err != nil {
		return nil, mapRepositoryError(err)
	}
	observability.RecordResourceMutation(ctx, "routine", "create")
	return routine, nil
}

func (s *TrainingService) ListRoutines(ctx context.Context, accountID uuid.UUID, planID *uuid.UUID) ([]domain.Routine, error) {
	routines, err := s.routines.ListForAccount(ctx, accountID, planID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return routines, nil
}

func (s *TrainingService) ListRoutineExercises(ctx context.Context, accountID, routineID uuid.UUID) (*domain.RoutineExercises, error) {
	out, err := s.routines.ListExercises(ctx, accountID, routineID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return out, nil
}

// AttachExercise links an exercise to a routine. Linking an already linked
// exercise returns the existing link.
func (s *TrainingService) AttachExercise(ctx context.Context, accountID, routineID, exerciseID uuid.UUID) (*domain.RoutineExerciseLink, error) {
	if exerciseID == uuid.Nil {
		return nil, invalid("exercise_id", "is required")
	}
	link, err := s.routines.AttachExercise(ctx, accountID, routineID, exerciseID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	observability.RecordResourceMutation(ctx, "routine_exercise", "attach")
	return link, nil
}

func (s *TrainingService) CreateExercise(ctx context.Context, accountID uuid.UUID, in ExerciseInput) (*domain.Exercise, error) {
	name, err := requireName("name", in.Name)
	if err != nil {
		return nil, err
	}
	if !in.TrackingType.Valid() {
		return nil, invalid("tracking_type", "must be one of reps_sets_weight, time_based, distance_based, calories")
	}
	exercise := &domain.Exercise{
		AccountID:    accountID,
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		TrackingType: in.TrackingType,
	}
	if err := s.exercises.Create(ctx, exercise); err != nil {
		return nil, mapRepositoryError(err)
	}
	observability.RecordResourceMutation(ctx, "exercise", "create")
	return exercise, nil
}

func (s *TrainingService) ListExercises(ctx context.Context, accountID uuid.UUID) ([]domain.Exercise, error) {
	exercises, err := s.exercises.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return exercises, nil
}

func requireName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid(field, "is required")
	}
	if utf8.RuneCountInString(v) > maxNameLength {
		return "", invalid(field, "must be at most %d characters", maxNameLength)
	}
	return v, nil
}
