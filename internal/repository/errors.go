package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/sandeepkv93/fittrack-backend/internal/observability"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrAccountNotFound  = fmt.Errorf("account %w", ErrNotFound)
	ErrPlanNotFound     = fmt.Errorf("plan %w", ErrNotFound)
	ErrRoutineNotFound  = fmt.Errorf("routine %w", ErrNotFound)
	ErrExerciseNotFound = fmt.Errorf("exercise %w", ErrNotFound)

	ErrDuplicateAccount = errors.New("account already exists")
)

func recordOp(ctx context.Context, entity, op string, err error) {
	switch {
	case err == nil:
		observability.RecordRepositoryOperation(ctx, entity, op, "success")
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrNotFound):
		observability.RecordRepositoryOperation(ctx, entity, op, "not_found")
	default:
		observability.RecordRepositoryOperation(ctx, entity, op, "error")
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func notFoundAs(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
