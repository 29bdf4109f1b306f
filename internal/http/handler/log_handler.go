package handler

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
	"github.com/sandeepkv93/fittrack-backend/internal/http/response"
	"github.com/sandeepkv93/fittrack-backend/internal/repository"
	"github.com/sandeepkv93/fittrack-backend/internal/service"
)

type LogHandler struct {
	logs     service.LogServiceInterface
	validate *validator.Validate
}

func NewLogHandler(logs service.LogServiceInterface) *LogHandler {
	return &LogHandler{logs: logs, validate: newValidator()}
}

type createExerciseLogRequest struct {
	ExerciseID string         `json:"exercise_id" validate:"required,uuid"`
	RoutineID  *string        `json:"routine_id" validate:"omitempty,uuid"`
	Metrics    map[string]any `json:"metrics" validate:"required,min=1"`
}

type createBodyweightRequest struct {
	Value      float64    `json:"value" validate:"required,gt=0,lt=1000"`
	Unit       string     `json:"unit" validate:"required,oneof=kg lb"`
	Notes      *string    `json:"notes" validate:"omitempty,max=1024"`
	RecordedAt *time.Time `json:"recorded_at"`
}

func (h *LogHandler) CreateExerciseLog(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var req createExerciseLogRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	in := service.ExerciseLogInput{ExerciseID: uuid.MustParse(req.ExerciseID), Metrics: req.Metrics}
	if req.RoutineID != nil {
		id := uuid.MustParse(*req.RoutineID)
		in.RoutineID = &id
	}
	entry, err := h.logs.LogExercise(r.Context(), accountID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, entry)
}

// ListExerciseLogs handles GET /users/exercise-logs. limit is accepted as an
// alias of page_size.
func (h *LogHandler) ListExerciseLogs(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	page, err := positiveIntQuery(r, "page", repository.DefaultPage)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	size, err := positiveIntQuery(r, "page_size", 0)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if size == 0 {
		if size, err = positiveIntQuery(r, "limit", repository.DefaultPageSize); err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	out, err := h.logs.ListExerciseLogs(r.Context(), accountID, repository.PageRequest{Page: page, PageSize: size})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, out)
}

func (h *LogHandler) CreateBodyweightLog(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var req createBodyweightRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	entry, err := h.logs.LogBodyweight(r.Context(), accountID, service.BodyweightInput{
		Value:      req.Value,
		Unit:       domain.WeightUnit(req.Unit),
		Notes:      req.Notes,
		RecordedAt: req.RecordedAt,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, entry)
}

func (h *LogHandler) ListBodyweightLogs(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	out, err := h.logs.ListBodyweight(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, out)
}
