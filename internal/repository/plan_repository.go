package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Plan, error)
	FindForAccount(ctx context.Context, accountID, planID uuid.UUID) (*domain.Plan, error)
}

type GormPlanRepository struct{ db *gorm.DB }

func NewPlanRepository(db *gorm.DB) PlanRepository { return &GormPlanRepository{db: db} }

func (r *GormPlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	err := r.db.WithContext(ctx).Create(plan).Error
	recordOp(ctx, "plan", "create", err)
	return err
}

func (r *GormPlanRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Plan, error) {
	plans := []domain.Plan{}
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&plans).Error
	recordOp(ctx, "plan", "list_by_account", err)
	return plans, err
}

func (r *GormPlanRepository) FindForAccount(ctx context.Context, accountID, planID uuid.UUID) (*domain.Plan, error) {
	p, err := findPlanForAccount(r.db.WithContext(ctx), accountID, planID)
	recordOp(ctx, "plan", "find_for_account", err)
	return p, err
}

func findPlanForAccount(db *gorm.DB, accountID, planID uuid.UUID) (*domain.Plan, error) {
	var p domain.Plan
	err := db.Where("id = ? AND account_id = ?", planID, accountID).First(&p).Error
	if err != nil {
		return nil, notFoundAs(err, ErrPlanNotFound)
	}
	return &p, nil
}
