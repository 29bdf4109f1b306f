package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
)

func TestPlanRepositoryScopesByAccount(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := seedAccount(t, db, "owner")
	other := seedAccount(t, db, "other")
	plan := seedPlan(t, db, owner.ID, "Push Pull Legs")
	seedPlan(t, db, other.ID, "Someone else")

	repo := NewPlanRepository(db)
	plans, err := repo.ListByAccount(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(plans) != 1 || plans[0].ID != plan.ID {
		t.Fatalf("expected only owner plan, got %+v", plans)
	}
	if _, err := repo.FindForAccount(ctx, other.ID, plan.ID); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound for foreign plan, got %v", err)
	}
	if _, err := repo.FindForAccount(ctx, owner.ID, plan.ID); err != nil {
		t.Fatalf("find own plan: %v", err)
	}
}

func TestRoutineRepositoryCreateRequiresOwnedPlan(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := seedAccount(t, db, "owner")
	other := seedAccount(t, db, "other")
	plan := seedPlan(t, db, owner.ID, "Strength")

	repo := NewRoutineRepository(db)
	err := repo.Create(ctx, other.ID, &domain.Routine{PlanID: plan.ID, Name: "Legs", DayOfWeek: 2})
	if !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
	var count int64
	if err := db.Model(&domain.Routine{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no routine rows, got %d", count)
	}
}

func TestRoutineRepositoryListsOrderedByDay(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := seedAccount(t, db, "owner")
	plan := seedPlan(t, db, owner.ID, "Strength")
	otherPlan := seedPlan(t, db, owner.ID, "Cardio")
	seedRoutine(t, db, owner.ID, plan.ID, "Friday", 5)
	seedRoutine(t, db, owner.ID, plan.ID, "Monday", 1)
	seedRoutine(t, db, owner.ID, otherPlan.ID, "Run", 3)

	repo := NewRoutineRepository(db)
	routines, err := repo.ListByPlan(ctx, owner.ID, plan.ID)
	if err != nil {
		t.Fatalf("list by plan: %v", err)
	}
	if len(routines) != 2 || routines[0].Name != "Monday" || routines[1].Name != "Friday" {
		t.Fatalf("unexpected routines: %+v", routines)
	}

	all, err := repo.ListForAccount(ctx, owner.ID, nil)
	if err != nil {
		t.Fatalf("list for account: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 routines, got %d", len(all))
	}
	filtered, err := repo.ListForAccount(ctx, owner.ID, &otherPlan.ID)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Name != "Run" {
		t.Fatalf("unexpected filtered routines: %+v", filtered)
	}

	stranger := seedAccount(t, db, "stranger")
	if _, err := repo.ListByPlan(ctx, stranger.ID, plan.ID); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestRoutineRepositoryAttachExercise(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := seedAccount(t, db, "owner")
	other := seedAccount(t, db, "other")
	plan := seedPlan(t, db, owner.ID, "Strength")
	routine := seedRoutine(t, db, owner.ID, plan.ID, "Push", 1)
	bench := seedExercise(t, db, owner.ID, "Bench Press")
	foreign := seedExercise(t, db, other.ID, "Foreign")

	repo := NewRoutineRepository(db)
	link, err := repo.AttachExercise(ctx, owner.ID, routine.ID, bench.ID)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if link.RoutineName != "Push" || link.Exercise.ID != bench.ID {
		t.Fatalf("unexpected link: %+v", link)
	}
	if _, err := repo.AttachExercise(ctx, owner.ID, routine.ID, bench.ID); err != nil {
		t.Fatalf("re-attach should be a no-op, got %v", err)
	}
	if _, err := repo.AttachExercise(ctx, owner.ID, routine.ID, foreign.ID); !errors.Is(err, ErrExerciseNotFound) {
		t.Fatalf("expected ErrExerciseNotFound, got %v", err)
	}
	if _, err := repo.AttachExercise(ctx, other.ID, routine.ID, foreign.ID); !errors.Is(err, ErrRoutineNotFound) {
		t.Fatalf("expected ErrRoutineNotFound, got %v", err)
	}

	listing, err := repo.ListExercises(ctx, owner.ID, routine.ID)
	if err != nil {
		t.Fatalf("list exercises: %v", err)
	}
	if listing.RoutineID != routine.ID || len(listing.Exercises) != 1 || listing.Exercises[0].Name != "Bench Press" {
		t.Fatalf("unexpected listing: %+v", listing)
	}
}

func TestExerciseLogRepositoryCreateAndList(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := seedAccount(t, db, "owner")
	other := seedAccount(t, db, "other")
	plan := seedPlan(t, db, owner.ID, "Strength")
	routine := seedRoutine(t, db, owner.ID, plan.ID, "Push", 1)
	bench := seedExercise(t, db, owner.ID, "Bench Press")
	foreignRoutinePlan := seedPlan(t, db, other.ID, "Other")
	foreignRoutine := seedRoutine(t, db, other.ID, foreignRoutinePlan.ID, "Other", 2)

	repo := NewExerciseLogRepository(db)
	metrics := datatypes.JSON(`{"sets":3,"reps":8,"weight":80}`)

	first, err := repo.Create(ctx, &domain.ExerciseLog{AccountID: owner.ID, ExerciseID: bench.ID, Metrics: metrics})
	if err != nil {
		t.Fatalf("create without routine: %v", err)
	}
	if first.Exercise.Name != "Bench Press" || first.RoutineName != nil {
		t.Fatalf("unexpected entry: %+v", first)
	}

	time.Sleep(5 * time.Millisecond)
	second, err := repo.Create(ctx, &domain.ExerciseLog{AccountID: owner.ID, ExerciseID: bench.ID, RoutineID: &routine.ID, Metrics: metrics})
	if err != nil {
		t.Fatalf("create with routine: %v", err)
	}
	if second.RoutineName == nil || *second.RoutineName != "Push" {
		t.Fatalf("expected routine name on entry, got %+v", second)
	}

	if _, err := repo.Create(ctx, &domain.ExerciseLog{AccountID: owner.ID, ExerciseID: bench.ID, RoutineID: &foreignRoutine.ID, Metrics: metrics}); !errors.Is(err, ErrRoutineNotFound) {
		t.Fatalf("expected ErrRoutineNotFound, got %v", err)
	}
	if _, err := repo.Create(ctx, &domain.ExerciseLog{AccountID: other.ID, ExerciseID: bench.ID, Metrics: metrics}); !errors.Is(err, ErrExerciseNotFound) {
		t.Fatalf("expected ErrExerciseNotFound, got %v", err)
	}

	page, err := repo.ListForAccount(ctx, owner.ID, PageRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("expected 2 logs, got total=%d items=%d", page.Total, len(page.Items))
	}
	newest := page.Items[0]
	if newest.ID != second.ID {
		t.Fatalf("expected newest log first, got %s", newest.ID)
	}
	if newest.PlanName == nil || *newest.PlanName != "Strength" {
		t.Fatalf("expected joined plan name, got %+v", newest)
	}
	if newest.Exercise.Name != "Bench Press" {
		t.Fatalf("expected joined exercise, got %+v", newest.Exercise)
	}
	var decoded map[string]any
	if err := json.Unmarshal(newest.Metrics, &decoded); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if decoded["reps"] != float64(8) {
		t.Fatalf("unexpected metrics: %v", decoded)
	}
	if page.Items[1].RoutineName != nil {
		t.Fatalf("expected no routine on first log, got %v", *page.Items[1].RoutineName)
	}

	limited, err := repo.ListForAccount(ctx, owner.ID, PageRequest{PageSize: 1})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited.Items) != 1 || limited.TotalPages != 2 {
		t.Fatalf("expected one item over two pages, got %d items %d pages", len(limited.Items), limited.TotalPages)
	}

	empty, err := repo.ListForAccount(ctx, uuid.New(), PageRequest{})
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if empty.Items == nil || len(empty.Items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty.Items)
	}
}

func TestBodyweightRepositoryOrdersByRecordedAt(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := seedAccount(t, db, "owner")
	repo := NewBodyweightRepository(db)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, kg := range []float64{80, 79.5, 81} {
		entry := &domain.BodyweightLog{
			AccountID:     owner.ID,
			WeightKG:      kg,
			OriginalValue: kg,
			OriginalUnit:  domain.UnitKilograms,
			RecordedAt:    base.Add(time.Duration(i) * 24 * time.Hour),
		}
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	entries, err := repo.ListForAccount(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 || entries[0].WeightKG != 81 || entries[2].WeightKG != 80 {
		t.Fatalf("expected newest recorded first, got %+v", entries)
	}
}
