package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
)

type ExerciseLogRepository interface {
	Create(ctx context.Context, log *domain.ExerciseLog) (*domain.ExerciseLogEntry, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID, page PageRequest) (PageResult[domain.ExerciseLogEntry], error)
}

type GormExerciseLogRepository struct{ db *gorm.DB }

func NewExerciseLogRepository(db *gorm.DB) ExerciseLogRepository {
	return &GormExerciseLogRepository{db: db}
}

// Create stores the log once its exercise, and its routine when set, are
// confirmed to belong to the logging account.
func (r *GormExerciseLogRepository) Create(ctx context.Context, log *domain.ExerciseLog) (*domain.ExerciseLogEntry, error) {
	var entry *domain.ExerciseLogEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exercise, err := findExerciseForAccount(tx, log.AccountID, log.ExerciseID)
		if err != nil {
			return err
		}
		entry = &domain.ExerciseLogEntry{Exercise: *exercise}
		if log.RoutineID != nil {
			routine, err := findRoutineForAccount(tx, log.AccountID, *log.RoutineID)
			if err != nil {
				return err
			}
			entry.RoutineName = &routine.Name
			entry.PlanID = &routine.PlanID
		}
		if err := tx.Create(log).Error; err != nil {
			return err
		}
		entry.ExerciseLog = *log
		return nil
	})
	recordOp(ctx, "exercise_log", "create", err)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

type exerciseLogRow struct {
	ID                   uuid.UUID
	AccountID            uuid.UUID
	ExerciseID           uuid.UUID
	RoutineID            *uuid.UUID
	Metrics              datatypes.JSON
	CreatedAt            time.Time
	ExerciseName         string
	ExerciseDescription  string
	ExerciseTrackingType string
	ExerciseCreatedAt    time.Time
	RoutineName          *string
	PlanID               *uuid.UUID
	PlanName             *string
}

func (row exerciseLogRow) entry() domain.ExerciseLogEntry {
	return domain.ExerciseLogEntry{
		ExerciseLog: domain.ExerciseLog{
			ID:         row.ID,
			AccountID:  row.AccountID,
			ExerciseID: row.ExerciseID,
			RoutineID:  row.RoutineID,
			Metrics:    row.Metrics,
			CreatedAt:  row.CreatedAt,
		},
		Exercise: domain.Exercise{
			ID:           row.ExerciseID,
			AccountID:    row.AccountID,
			Name:         row.ExerciseName,
			Description:  row.ExerciseDescription,
			TrackingType: domain.TrackingType(row.ExerciseTrackingType),
			CreatedAt:    row.ExerciseCreatedAt,
		},
		RoutineName: row.RoutineName,
		PlanID:      row.PlanID,
		PlanName:    row.PlanName,
	}
}

// ListForAccount returns the account's logs newest first, each joined with its
// exercise and, when logged against a routine, the routine and plan names.
func (r *GormExerciseLogRepository) ListForAccount(ctx context.Context, accountID uuid.UUID, page PageRequest) (PageResult[domain.ExerciseLogEntry], error) {
	req := page.clamp()
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&domain.ExerciseLog{}).Where("account_id = ?", accountID).Count(&total).Error; err != nil {
		recordOp(ctx, "exercise_log", "list_for_account", err)
		return PageResult[domain.ExerciseLogEntry]{}, err
	}

	var rows []exerciseLogRow
	err := db.Table("exercise_logs AS el").
		Select(`el.id, el.account_id, el.exercise_id, el.routine_id, el.metrics, el.created_at,
			e.name AS exercise_name, e.description AS exercise_description,
			e.tracking_type AS exercise_tracking_type, e.created_at AS exercise_created_at,
			r.name AS routine_name, p.id AS plan_id, p.name AS plan_name`).
		Joins("JOIN exercises e ON e.id = el.exercise_id").
		Joins("LEFT JOIN routines r ON r.id = el.routine_id").
		Joins("LEFT JOIN plans p ON p.id = r.plan_id").
		Where("el.account_id = ?", accountID).
		Order("el.created_at DESC, el.id DESC").
		Offset(req.offset()).
		Limit(req.PageSize).
		Scan(&rows).Error
	recordOp(ctx, "exercise_log", "list_for_account", err)
	if err != nil {
		return PageResult[domain.ExerciseLogEntry]{}, err
	}
	items := make([]domain.ExerciseLogEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.entry())
	}
	return pageOf(req, total, items), nil
}
