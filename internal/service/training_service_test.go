package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
	"github.com/sandeepkv93/fittrack-backend/internal/repository"
)

func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func createTestAccount(t *testing.T, db *gorm.DB, username string) uuid.UUID {
	t.Helper()
	a := &domain.Account{Email: username + "@example.com", Username: username, PasswordHash: "hash"}
	if err := repository.NewAccountRepository(db).Create(context.Background(), a); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a.ID
}

func newTrainingServiceForTest(t *testing.T) (*TrainingService, *gorm.DB) {
	t.Helper()
	db := newServiceTestDB(t)
	return NewTrainingService(
		repository.NewPlanRepository(db),
		repository.NewRoutineRepository(db),
		repository.NewExerciseRepository(db),
	), db
}

func TestTrainingServicePlanRoutineExerciseFlow(t *testing.T) {
	ctx := context.Background()
	svc, db := newTrainingServiceForTest(t)
	owner := createTestAccount(t, db, "owner")

	plan, err := svc.CreatePlan(ctx, owner, "  Push Pull Legs ")
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if plan.Name != "Push Pull Legs" {
		t.Fatalf("expected trimmed name, got %q", plan.Name)
	}

	thursday, err := svc.CreateRoutine(ctx, owner, RoutineInput{PlanID: plan.ID, Name: "Legs", DayOfWeek: 4})
	if err != nil {
		t.Fatalf("create routine: %v", err)
	}
	if _, err := svc.CreateRoutine(ctx, owner, RoutineInput{PlanID: plan.ID, Name: "Push", DayOfWeek: 1}); err != nil {
		t.Fatalf("create routine: %v", err)
	}
	routines, err := svc.ListPlanRoutines(ctx, owner, plan.ID)
	if err != nil {
		t.Fatalf("list plan routines: %v", err)
	}
	if len(routines) != 2 || routines[0].DayOfWeek != 1 || routines[1].ID != thursday.ID {
		t.Fatalf("expected routines ordered by day of week, got %+v", routines)
	}

	squat, err := svc.CreateExercise(ctx, owner, ExerciseInput{Name: "Squat", TrackingType: domain.TrackingRepsSetsWeight})
	if err != nil {
		t.Fatalf("create exercise: %v", err)
	}
	first, err := svc.AttachExercise(ctx, owner, thursday.ID, squat.ID)
	if err != nil {
		t.Fatalf("attach exercise: %v", err)
	}
	if first.RoutineName != "Legs" || first.Exercise.ID != squat.ID {
		t.Fatalf("unexpected link: %+v", first)
	}
	if _, err := svc.AttachExercise(ctx, owner, thursday.ID, squat.ID); err != nil {
		t.Fatalf("re-attach should be idempotent: %v", err)
	}
	listed, err := svc.ListRoutineExercises(ctx, owner, thursday.ID)
	if err != nil {
		t.Fatalf("list routine exercises: %v", err)
	}
	if len(listed.Exercises) != 1 {
		t.Fatalf("expected single linked exercise, got %d", len(listed.Exercises))
	}
}

func TestTrainingServiceOwnershipIsEnforced(t *testing.T) {
	ctx := context.Background()
	svc, db := newTrainingServiceForTest(t)
	owner := createTestAccount(t, db, "owner")
	intruder := createTestAccount(t, db, "intruder")

	plan, err := svc.CreatePlan(ctx, owner, "Mine")
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	routine, err := svc.CreateRoutine(ctx, owner, RoutineInput{PlanID: plan.ID, Name: "Day 1"})
	if err != nil {
		t.Fatalf("create routine: %v", err)
	}
	foreignExercise, err := svc.CreateExercise(ctx, intruder, ExerciseInput{Name: "Row", TrackingType: domain.TrackingRepsSetsWeight})
	if err != nil {
		t.Fatalf("create exercise: %v", err)
	}

	tests := []struct {
		name     string
		call     func() error
		resource string
	}{
		{name: "get foreign plan", resource: "plan", call: func() error {
			_, err := svc.GetPlan(ctx, intruder, plan.ID)
			return err
		}},
		{name: "routine under foreign plan", resource: "plan", call: func() error {
			_, err := svc.CreateRoutine(ctx, intruder, RoutineInput{PlanID: plan.ID, Name: "sneaky"})
			return err
		}},
		{name: "list foreign routine exercises", resource: "routine", call: func() error {
			_, err := svc.ListRoutineExercises(ctx, intruder, routine.ID)
			return err
		}},
		{name: "attach foreign exercise", resource: "exercise", call: func() error {
			_, err := svc.AttachExercise(ctx, owner, routine.ID, foreignExercise.ID)
			return err
		}},
		{name: "unknown plan", resource: "plan", call: func() error {
			_, err := svc.GetPlan(ctx, owner, uuid.New())
			return err
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			var nf *NotFoundError
			if !errors.As(err, &nf) || nf.Resource != tc.resource {
				t.Fatalf("expected %s not found, got %v", tc.resource, err)
			}
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound in chain, got %v", err)
			}
		})
	}

	plans, err := svc.ListPlans(ctx, intruder)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 0 {
		t.Fatalf("expected intruder to see no plans, got %d", len(plans))
	}
}

func TestTrainingServiceValidation(t *testing.T) {
	ctx := context.Background()
	svc, db := newTrainingServiceForTest(t)
	owner := createTestAccount(t, db, "owner")

	tests := []struct {
		name  string
		call  func() error
		field string
	}{
		{name: "blank plan name", field: "name", call: func() error {
			_, err := svc.CreatePlan(ctx, owner, "   ")
			return err
		}},
		{name: "long plan name", field: "name", call: func() error {
			_, err := svc.CreatePlan(ctx, owner, strings.Repeat("x", maxNameLength+1))
			return err
		}},
		{name: "routine without plan", field: "plan_id", call: func() error {
			_, err := svc.CreateRoutine(ctx, owner, RoutineInput{Name: "r"})
			return err
		}},
		{name: "day of week out of range", field: "day_of_week", call: func() error {
			_, err := svc.CreateRoutine(ctx, owner, RoutineInput{PlanID: uuid.New(), Name: "r", DayOfWeek: 7})
			return err
		}},
		{name: "unknown tracking type", field: "tracking_type", call: func() error {
			_, err := svc.CreateExercise(ctx, owner, ExerciseInput{Name: "Plank", TrackingType: "vibes"})
			return err
		}},
		{name: "attach without exercise", field: "exercise_id", call: func() error {
			_, err := svc.AttachExercise(ctx, owner, uuid.New(), uuid.Nil)
			return err
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var verr *ValidationError
			if err := tc.call(); !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
}

type recordingPublisher struct {
	mu         sync.Mutex
	exercises  []uuid.UUID
	bodyweight []uuid.UUID
	err        error
}

func (p *recordingPublisher) ExerciseLogged(_ context.Context, entry *domain.ExerciseLogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exercises = append(p.exercises, entry.ID)
	return p.err
}

func (p *recordingPublisher) BodyweightLogged(_ context.Context, entry *domain.BodyweightLog) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodyweight = append(p.bodyweight, entry.ID)
	return p.err
}

