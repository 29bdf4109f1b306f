package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
)

type RoutineRepository interface {
	Create(ctx context.Context, accountID uuid.UUID, routine *domain.Routine) error
	FindForAccount(ctx context.Context, accountID, routineID uuid.UUID) (*domain.Routine, error)
	ListByPlan(ctx context.Context, accountID, planID uuid.UUID) ([]domain.Routine, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID, planID *uuid.UUID) ([]domain.Routine, error)
	ListExercises(ctx context.Context, accountID, routineID uuid.UUID) (*domain.RoutineExercises, error)
	AttachExercise(ctx context.Context, accountID, routineID, exerciseID uuid.UUID) (*domain.RoutineExerciseLink, error)
}

type GormRoutineRepository struct{ db *gorm.DB }

func NewRoutineRepository(db *gorm.DB) RoutineRepository { return &GormRoutineRepository{db: db} }

// Create inserts the routine after checking that its plan belongs to accountID.
func (r *GormRoutineRepository) Create(ctx context.Context, accountID uuid.UUID, routine *domain.Routine) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findPlanForAccount(tx, accountID, routine.PlanID); err != nil {
			return err
		}
		return tx.Create(routine).Error
	})
	recordOp(ctx, "routine", "create", err)
	return err
}

func (r *GormRoutineRepository) FindForAccount(ctx context.Context, accountID, routineID uuid.UUID) (*domain.Routine, error) {
	routine, err := findRoutineForAccount(r.db.WithContext(ctx), accountID, routineID)
	recordOp(ctx, "routine", "find_for_account", err)
	return routine, err
}

func (r *GormRoutineRepository) ListByPlan(ctx context.Context, accountID, planID uuid.UUID) ([]domain.Routine, error) {
	routines := []domain.Routine{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findPlanForAccount(tx, accountID, planID); err != nil {
			return err
		}
		return tx.Where("plan_id = ?", planID).
			Order("day_of_week ASC").
			Order("created_at ASC").
			Find(&routines).Error
	})
	recordOp(ctx, "routine", "list_by_plan", err)
	return routines, err
}

func (r *GormRoutineRepository) ListForAccount(ctx context.Context, accountID uuid.UUID, planID *uuid.UUID) ([]domain.Routine, error) {
	routines := []domain.Routine{}
	q := r.db.WithContext(ctx).
		Joins("JOIN plans ON plans.id = routines.plan_id").
		Where("plans.account_id = ?", accountID)
	if planID != nil {
		q = q.Where("routines.plan_id = ?", *planID)
	}
	err := q.Order("routines.day_of_week ASC").
		Order("routines.created_at ASC").
		Find(&routines).Error
	recordOp(ctx, "routine", "list_for_account", err)
	return routines, err
}

func (r *GormRoutineRepository) ListExercises(ctx context.Context, accountID, routineID uuid.UUID) (*domain.RoutineExercises, error) {
	var out *domain.RoutineExercises
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		routine, err := findRoutineForAccount(tx, accountID, routineID)
		if err != nil {
			return err
		}
		exercises := []domain.Exercise{}
		err = tx.Joins("JOIN routine_exercises ON routine_exercises.exercise_id = exercises.id").
			Where("routine_exercises.routine_id = ?", routine.ID).
			Order("routine_exercises.created_at ASC").
			Find(&exercises).Error
		if err != nil {
			return err
		}
		out = &domain.RoutineExercises{RoutineID: routine.ID, RoutineName: routine.Name, Exercises: exercises}
		return nil
	})
	recordOp(ctx, "routine", "list_exercises", err)
	return out, err
}

// AttachExercise links an exercise to a routine. Both must belong to
// accountID. Attaching an already linked exercise is a no-op.
func (r *GormRoutineRepository) AttachExercise(ctx context.Context, accountID, routineID, exerciseID uuid.UUID) (*domain.RoutineExerciseLink, error) {
	var out *domain.RoutineExerciseLink
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		routine, err := findRoutineForAccount(tx, accountID, routineID)
		if err != nil {
			return err
		}
		exercise, err := findExerciseForAccount(tx, accountID, exerciseID)
		if err != nil {
			return err
		}
		link := domain.RoutineExercise{RoutineID: routine.ID, ExerciseID: exercise.ID}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "routine_id"}, {Name: "exercise_id"}},
			DoNothing: true,
		}).Create(&link).Error
		if err != nil {
			return err
		}
		out = &domain.RoutineExerciseLink{RoutineID: routine.ID, RoutineName: routine.Name, Exercise: *exercise}
		return nil
	})
	recordOp(ctx, "routine", "attach_exercise", err)
	return out, err
}

func findRoutineForAccount(db *gorm.DB, accountID, routineID uuid.UUID) (*domain.Routine, error) {
	var routine domain.Routine
	err := db.Joins("JOIN plans ON plans.id = routines.plan_id").
		Where("routines.id = ? AND plans.account_id = ?", routineID, accountID).
		First(&routine).Error
	if err != nil {
		return nil, notFoundAs(err, ErrRoutineNotFound)
	}
	return &routine, nil
}
