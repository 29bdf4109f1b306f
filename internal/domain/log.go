package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExerciseLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID  uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	ExerciseID uuid.UUID      `gorm:"type:uuid;index;not null" json:"exercise_id"`
	RoutineID  *uuid.UUID     `gorm:"type:uuid;index" json:"routine_id"`
	Metrics    datatypes.JSON `gorm:"not null" json:"metrics"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (l *ExerciseLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// ExerciseLogEntry is a logged exercise together with the resources it refers to.
type ExerciseLogEntry struct {
	ExerciseLog
	Exercise    Exercise   `gorm:"-" json:"exercise"`
	RoutineName *string    `gorm:"-" json:"routine_name,omitempty"`
	PlanID      *uuid.UUID `gorm:"-" json:"plan_id,omitempty"`
	PlanName    *string    `gorm:"-" json:"plan_name,omitempty"`
}

type WeightUnit string

const (
	UnitKilograms WeightUnit = "kg"
	UnitPounds    WeightUnit = "lb"
)

const kilogramsPerPound = 0.45359237

// ToKilograms converts value in unit to kilograms rounded to two decimals.
func ToKilograms(value float64, unit WeightUnit) float64 {
	if unit == UnitPounds {
		return math.Round(value*kilogramsPerPound*100) / 100
	}
	return value
}

type BodyweightLog struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	WeightKG      float64    `gorm:"not null" json:"weight_kg"`
	OriginalValue float64    `gorm:"not null" json:"original_value"`
	OriginalUnit  WeightUnit `gorm:"size:2;not null" json:"original_unit"`
	Notes         *string    `gorm:"size:1024" json:"notes"`
	RecordedAt    time.Time  `gorm:"index;not null" json:"recorded_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (b *BodyweightLog) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&Account{},
		&Plan{},
		&Routine{},
		&Exercise{},
		&RoutineExercise{},
		&ExerciseLog{},
		&BodyweightLog{},
	}
}
