package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrackingType string

const (
	TrackingRepsSetsWeight TrackingType = "reps_sets_weight"
	TrackingTimeBased      TrackingType = "time_based"
	TrackingDistanceBased  TrackingType = "distance_based"
	TrackingCalories       TrackingType = "calories"
)

func (t TrackingType) Valid() bool {
	switch t {
	case TrackingRepsSetsWeight, TrackingTimeBased, TrackingDistanceBased, TrackingCalories:
		return true
	default:
		return false
	}
}

type Plan struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Plan) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Routine is a named group of exercises scheduled on one day of a plan.
// The HTTP surface also calls it an exercise group.
type Routine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlanID    uuid.UUID `gorm:"type:uuid;index;not null" json:"plan_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	DayOfWeek int       `gorm:"not null;default:0" json:"day_of_week"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Routine) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type Exercise struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID    uuid.UUID    `gorm:"type:uuid;index;not null" json:"user_id"`
	Name         string       `gorm:"size:255;not null" json:"name"`
	Description  string       `gorm:"size:2048" json:"description"`
	TrackingType TrackingType `gorm:"size:32;not null" json:"tracking_type"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (e *Exercise) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

type RoutineExercise struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoutineID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_routine_exercise" json:"routine_id"`
	ExerciseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_routine_exercise" json:"exercise_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (re *RoutineExercise) BeforeCreate(_ *gorm.DB) error {
	if re.ID == uuid.Nil {
		re.ID = uuid.New()
	}
	return nil
}

// RoutineExercises is the listing shape for the exercises attached to a routine.
type RoutineExercises struct {
	RoutineID   uuid.UUID  `json:"routine_id"`
	RoutineName string     `json:"routine_name"`
	Exercises   []Exercise `json:"exercises"`
}

// RoutineExerciseLink is returned after attaching an exercise to a routine.
type RoutineExerciseLink struct {
	RoutineID   uuid.UUID `json:"routine_id"`
	RoutineName string    `json:"routine_name"`
	Exercise    Exercise  `json:"exercise"`
}
