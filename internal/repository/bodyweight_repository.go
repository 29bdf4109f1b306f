package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
)

type BodyweightRepository interface {
	Create(ctx context.Context, entry *domain.BodyweightLog) error
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]domain.BodyweightLog, error)
}

type GormBodyweightRepository struct{ db *gorm.DB }

func NewBodyweightRepository(db *gorm.DB) BodyweightRepository {
	return &GormBodyweightRepository{db: db}
}

func (r *GormBodyweightRepository) Create(ctx context.Context, entry *domain.BodyweightLog) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	recordOp(ctx, "bodyweight_log", "create", err)
	return err
}

func (r *GormBodyweightRepository) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]domain.BodyweightLog, error) {
	entries := []domain.BodyweightLog{}
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("recorded_at DESC").
		Order("created_at DESC").
		Find(&entries).Error
	recordOp(ctx, "bodyweight_log", "list_for_account", err)
	return entries, err
}
