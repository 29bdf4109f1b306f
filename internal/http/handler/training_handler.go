package handler

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
	"github.com/sandeepkv93/fittrack-backend/internal/http/response"
	"github.com/sandeepkv93/fittrack-backend/internal/service"
)

// TrainingHandler serves plans, routines (exposed as exercise groups too) and
// exercises.
type TrainingHandler struct {
	training service.TrainingServiceInterface
	validate *validator.Validate
}

func NewTrainingHandler(training service.TrainingServiceInterface) *TrainingHandler {
	return &TrainingHandler{training: training, validate: newValidator()}
}

type createPlanRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type createRoutineRequest struct {
	Name      string `json:"name" validate:"required,max=255"`
	PlanID    string `json:"plan_id" validate:"required,uuid"`
	DayOfWeek *int   `json:"day_of_week" validate:"required,min=0,max=6"`
}

// attachExerciseRequest also accepts the group id the mobile client echoes in
// the body. When present it must name the routine in the path.
type attachExerciseRequest struct {
	ExerciseID      string `json:"exercise_id" validate:"required,uuid"`
	ExerciseGroupID string `json:"exercise_group_id" validate:"omitempty,uuid"`
}

type createExerciseRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Description  string `json:"description" validate:"max=2000"`
	TrackingType string `json:"tracking_type" validate:"required,oneof=reps_sets_weight time_based distance_based calories"`
}

func (h *TrainingHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	plans, err := h.training.ListPlans(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, plans)
}

func (h *TrainingHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var req createPlanRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	plan, err := h.training.CreatePlan(r.Context(), accountID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, plan)
}

func (h *TrainingHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	planID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	plan, err := h.training.GetPlan(r.Context(), accountID, planID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, plan)
}

func (h *TrainingHandler) ListPlanRoutines(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	planID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	routines, err := h.training.ListPlanRoutines(r.Context(), accountID, planID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, routines)
}

func (h *TrainingHandler) CreateRoutine(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var req createRoutineRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	routine, err := h.training.CreateRoutine(r.Context(), accountID, service.RoutineInput{
		PlanID:    uuid.MustParse(req.PlanID),
		Name:      req.Name,
		DayOfWeek: *req.DayOfWeek,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, routine)
}

// ListRoutines handles GET /exercise-groups with an optional plan_id filter.
func (h *TrainingHandler) ListRoutines(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var planID *uuid.UUID
	if raw := strings.TrimSpace(r.URL.Query().Get("plan_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "plan_id must be a UUID", nil)
			return
		}
		planID = &id
	}
	routines, err := h.training.ListRoutines(r.Context(), accountID, planID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, routines)
}

func (h *TrainingHandler) ListRoutineExercises(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	routineID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	out, err := h.training.ListRoutineExercises(r.Context(), accountID, routineID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, out)
}

func (h *TrainingHandler) AttachExercise(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	routineID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req attachExerciseRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if req.ExerciseGroupID != "" && uuid.MustParse(req.ExerciseGroupID) != routineID {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "request validation failed",
			[]fieldError{{Field: "exercise_group_id", Rule: "eq_path_id"}})
		return
	}
	link, err := h.training.AttachExercise(r.Context(), accountID, routineID, uuid.MustParse(req.ExerciseID))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, link)
}

func (h *TrainingHandler) ListExercises(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	exercises, err := h.training.ListExercises(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, exercises)
}

func (h *TrainingHandler) CreateExercise(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var req createExerciseRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	exercise, err := h.training.CreateExercise(r.Context(), accountID, service.ExerciseInput{
		Name:         req.Name,
		Description:  req.Description,
		TrackingType: domain.TrackingType(req.TrackingType),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, exercise)
}
