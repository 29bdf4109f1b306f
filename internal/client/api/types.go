package api

import (
	"encoding/json"
	"time"
)

type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type Plan struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Exercise struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	TrackingType string `json:"tracking_type"`
}

type ExerciseLog struct {
	ID          string          `json:"id"`
	ExerciseID  string          `json:"exercise_id"`
	RoutineID   *string         `json:"routine_id"`
	Metrics     json.RawMessage `json:"metrics"`
	CreatedAt   time.Time       `json:"created_at"`
	Exercise    Exercise        `json:"exercise"`
	RoutineName *string         `json:"routine_name,omitempty"`
	PlanName    *string         `json:"plan_name,omitempty"`
}

type ExerciseLogPage struct {
	Items      []ExerciseLog `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"total_pages"`
}

type BodyweightLog struct {
	ID            string    `json:"id"`
	WeightKG      float64   `json:"weight_kg"`
	OriginalValue float64   `json:"original_value"`
	OriginalUnit  string    `json:"original_unit"`
	Notes         *string   `json:"notes"`
	RecordedAt    time.Time `json:"recorded_at"`
}
