package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
	"github.com/sandeepkv93/fittrack-backend/internal/observability"
	"github.com/sandeepkv93/fittrack-backend/internal/repository"
)

const maxNotesLength = 1024

type ExerciseLogInput struct {
	ExerciseID uuid.UUID
	RoutineID  *uuid.UUID
	Metrics    map[string]any
}

type BodyweightInput struct {
	Value      float64
	Unit       domain.WeightUnit
	Notes      *string
	RecordedAt *time.Time
}

// LogService records exercise and bodyweight entries and announces them to
// the event publisher once they are committed.
type LogService struct {
	exerciseLogs repository.ExerciseLogRepository
	bodyweight   repository.BodyweightRepository
	events       EventPublisher
	now          func() time.Time
}

func NewLogService(exerciseLogs repository.ExerciseLogRepository, bodyweight repository.BodyweightRepository, events EventPublisher) *LogService {
	return &LogService{exerciseLogs: exerciseLogs, bodyweight: bodyweight, events: events, now: time.Now}
}

func (s *LogService) LogExercise(ctx context.Context, accountID uuid.UUID, in ExerciseLogInput) (*domain.ExerciseLogEntry, error) {
	if in.ExerciseID == uuid.Nil {
		return nil, invalid("exercise_id", "is required")
	}
	if in.RoutineID != nil && *in.RoutineID == uuid.Nil {
		in.RoutineID = nil
	}
	if len(in.Metrics) == 0 {
		return nil, invalid("metrics", "must be a non-empty object")
	}
	raw, err := json.Marshal(in.Metrics)
	if err != nil {
		return nil, invalid("metrics", "must be valid JSON")
	}
	entry, err := s.exerciseLogs.Create(ctx, &domain.ExerciseLog{
		AccountID:  accountID,
		ExerciseID: in.ExerciseID,
		RoutineID:  in.RoutineID,
		Metrics:    datatypes.JSON(raw),
	})
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	observability.RecordTrainingLog(ctx, "exercise")
	if s.events != nil {
		if err := s.events.ExerciseLogged(ctx, entry); err != nil {
			slog.WarnContext(ctx, "publish exercise logged event failed", "log_id", entry.ID.String(), "error", err)
		}
	}
	return entry, nil
}

func (s *LogService) ListExerciseLogs(ctx context.Context, accountID uuid.UUID, page repository.PageRequest) (repository.PageResult[domain.ExerciseLogEntry], error) {
	out, err := s.exerciseLogs.ListForAccount(ctx, accountID, page)
	if err != nil {
		return repository.PageResult[domain.ExerciseLogEntry]{}, fmt.Errorf("list exercise logs: %w", err)
	}
	return out, nil
}

// LogBodyweight stores the measurement in kilograms and keeps the value and
// unit the caller submitted.
func (s *LogService) LogBodyweight(ctx context.Context, accountID uuid.UUID, in BodyweightInput) (*domain.BodyweightLog, error) {
	if in.Value <= 0 || math.IsNaN(in.Value) || math.IsInf(in.Value, 0) {
		return nil, invalid("value", "must be a positive number")
	}
	unit := domain.WeightUnit(strings.ToLower(strings.TrimSpace(string(in.Unit))))
	if unit != domain.UnitKilograms && unit != domain.UnitPounds {
		return nil, invalid("unit", "must be kg or lb")
	}
	var notes *string
	if in.Notes != nil {
		trimmed := strings.TrimSpace(*in.Notes)
		if len(trimmed) > maxNotesLength {
			return nil, invalid("notes", "must be at most %d bytes", maxNotesLength)
		}
		if trimmed != "" {
			notes = &trimmed
		}
	}
	recordedAt := s.now().UTC()
	if in.RecordedAt != nil && !in.RecordedAt.IsZero() {
		recordedAt = in.RecordedAt.UTC()
	}
	entry := &domain.BodyweightLog{
		AccountID:     accountID,
		WeightKG:      domain.ToKilograms(in.Value, unit),
		OriginalValue: in.Value,
		OriginalUnit:  unit,
		Notes:         notes,
		RecordedAt:    recordedAt,
	}
	if err := s.bodyweight.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create bodyweight log: %w", err)
	}
	observability.RecordTrainingLog(ctx, "bodyweight")
	if s.events != nil {
		if err := s.events.BodyweightLogged(ctx, entry); err != nil {
			slog.WarnContext(ctx, "publish bodyweight logged event failed", "log_id", entry.ID.String(), "error", err)
		}
	}
	return entry, nil
}

func (s *LogService) ListBodyweight(ctx context.Context, accountID uuid.UUID) ([]domain.BodyweightLog, error) {
	out, err := s.bodyweight.ListForAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list bodyweight logs: %w", err)
	}
	return out, nil
}
