package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
)

type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Exercise, error)
	FindForAccount(ctx context.Context, accountID, exerciseID uuid.UUID) (*domain.Exercise, error)
}

type GormExerciseRepository struct{ db *gorm.DB }

func NewExerciseRepository(db *gorm.DB) ExerciseRepository { return &GormExerciseRepository{db: db} }

func (r *GormExerciseRepository) Create(ctx context.Context, exercise *domain.Exercise) error {
	err := r.db.WithContext(ctx).Create(exercise).Error
	recordOp(ctx, "exercise", "create", err)
	return err
}

func (r *GormExerciseRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Exercise, error) {
	exercises := []domain.Exercise{}
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("name ASC").
		Find(&exercises).Error
	recordOp(ctx, "exercise", "list_by_account", err)
	return exercises, err
}

func (r *GormExerciseRepository) FindForAccount(ctx context.Context, accountID, exerciseID uuid.UUID) (*domain.Exercise, error) {
	e, err := findExerciseForAccount(r.db.WithContext(ctx), accountID, exerciseID)
	recordOp(ctx, "exercise", "find_for_account", err)
	return e, err
}

func findExerciseForAccount(db *gorm.DB, accountID, exerciseID uuid.UUID) (*domain.Exercise, error) {
	var e domain.Exercise
	err := db.Where("id = ? AND account_id = ?", exerciseID, accountID).First(&e).Error
	if err != nil {
		return nil, notFoundAs(err, ErrExerciseNotFound)
	}
	return &e, nil
}
