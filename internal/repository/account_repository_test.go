package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sandeepkv93/fittrack-backend/internal/domain"
)

func TestAccountRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(newTestDB(t))

	a := &domain.Account{Email: "  Lifter@Example.com ", Username: "lifter", PasswordHash: "hash"}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == uuid.Nil {
		t.Fatal("expected id assigned on create")
	}
	if a.CreatedAt.IsZero() {
		t.Fatal("expected created_at assigned on create")
	}

	byEmail, err := repo.FindByEmail(ctx, "LIFTER@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != a.ID {
		t.Fatalf("expected %s, got %s", a.ID, byEmail.ID)
	}
	byID, err := repo.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Username != "lifter" {
		t.Fatalf("unexpected username %q", byID.Username)
	}
	if _, err := repo.FindByUsername(ctx, "lifter"); err != nil {
		t.Fatalf("find by username: %v", err)
	}
}

func TestAccountRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(newTestDB(t))

	if _, err := repo.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := repo.FindByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepositoryUniqueIndexesReportDuplicate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewAccountRepository(db)

	if err := repo.Create(ctx, &domain.Account{Email: "a@example.com", Username: "alpha", PasswordHash: "h"}); err != nil {
		t.Fatalf("create first: %v", err)
	}
	cases := map[string]*domain.Account{
		"same email":    {Email: "A@example.com", Username: "beta", PasswordHash: "h"},
		"same username": {Email: "b@example.com", Username: "alpha", PasswordHash: "h"},
	}
	for name, acct := range cases {
		if err := repo.Create(ctx, acct); !errors.Is(err, ErrDuplicateAccount) {
			t.Fatalf("%s: expected ErrDuplicateAccount, got %v", name, err)
		}
	}
	var count int64
	if err := db.Model(&domain.Account{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one account row, got %d", count)
	}
}

func TestAccountRepositoryExistsByEmailOrUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(newTestDB(t))
	if err := repo.Create(ctx, &domain.Account{Email: "a@example.com", Username: "alpha", PasswordHash: "h"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []struct {
		email, username string
		want            bool
	}{
		{"a@example.com", "other", true},
		{"other@example.com", "alpha", true},
		{"other@example.com", "other", false},
	}
	for _, tc := range cases {
		got, err := repo.ExistsByEmailOrUsername(ctx, tc.email, tc.username)
		if err != nil {
			t.Fatalf("exists(%q,%q): %v", tc.email, tc.username, err)
		}
		if got != tc.want {
			t.Fatalf("exists(%q,%q)=%v want %v", tc.email, tc.username, got, tc.want)
		}
	}
}
