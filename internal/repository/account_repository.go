package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
}

type GormAccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &GormAccountRepository{db: db} }

// Create inserts the account. A unique index violation on email or username
// is reported as ErrDuplicateAccount, which covers signups racing past the
// service level existence check.
func (r *GormAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	account.Email = normalizeEmail(account.Email)
	err := r.db.WithContext(ctx).Create(account).Error
	if err != nil && isUniqueViolation(err) {
		err = ErrDuplicateAccount
	}
	recordOp(ctx, "account", "create", err)
	return err
}

func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	recordOp(ctx, "account", "find_by_id", err)
	if err != nil {
		return nil, notFoundAs(err, ErrAccountNotFound)
	}
	return &a, nil
}

func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&a).Error
	recordOp(ctx, "account", "find_by_email", err)
	if err != nil {
		return nil, notFoundAs(err, ErrAccountNotFound)
	}
	return &a, nil
}

func (r *GormAccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var a domain.Account
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&a).Error
	recordOp(ctx, "account", "find_by_username", err)
	if err != nil {
		return nil, notFoundAs(err, ErrAccountNotFound)
	}
	return &a, nil
}

func (r *GormAccountRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Account{}).
		Where("email = ? OR username = ?", normalizeEmail(email), username).
		Count(&count).Error
	recordOp(ctx, "account", "exists", err)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
