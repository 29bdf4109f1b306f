package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
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

func seedAccount(t *testing.T, db *gorm.DB, username string) *domain.Account {
	t.Helper()
	a := &domain.Account{Email: username + "@example.com", Username: username, PasswordHash: "hash"}
	if err := NewAccountRepository(db).Create(context.Background(), a); err != nil {
		t.Fatalf("seed account %s: %v", username, err)
	}
	return a
}

func seedPlan(t *testing.T, db *gorm.DB, accountID uuid.UUID, name string) *domain.Plan {
	t.Helper()
	p := &domain.Plan{AccountID: accountID, Name: name}
	if err := NewPlanRepository(db).Create(context.Background(), p); err != nil {
		t.Fatalf("seed plan %s: %v", name, err)
	}
	return p
}

func seedExercise(t *testing.T, db *gorm.DB, accountID uuid.UUID, name string) *domain.Exercise {
	t.Helper()
	e := &domain.Exercise{AccountID: accountID, Name: name, TrackingType: domain.TrackingRepsSetsWeight}
	if err := NewExerciseRepository(db).Create(context.Background(), e); err != nil {
		t.Fatalf("seed exercise %s: %v", name, err)
	}
	return e
}

func seedRoutine(t *testing.T, db *gorm.DB, accountID, planID uuid.UUID, name string, day int) *domain.Routine {
	t.Helper()
	r := &domain.Routine{PlanID: planID, Name: name, DayOfWeek: day}
	if err := NewRoutineRepository(db).Create(context.Background(), accountID, r); err != nil {
		t.Fatalf("seed routine %s: %v", name, err)
	}
	return r
}
