package database

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/sandeepkv93/fittrack-backend/internal/config"
	"github.com/sandeepkv93/fittrack-backend/internal/domain"
	"github.com/sandeepkv93/fittrack-backend/internal/repository"
)

func TestOpenSQLiteMigratesSchema(t *testing.T) {
	cfg := &config.Config{
		DBDriver:       "sqlite",
		DatabaseURL:    "file:" + filepath.Join(t.TempDir(), "fittrack.db"),
		DBMaxOpenConns: 1,
		DBAutoMigrate:  true,
	}
	db, err := Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })

	for _, model := range domain.Models() {
		if !db.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T", model)
		}
	}

	accounts := repository.NewAccountRepository(db)
	a := &domain.Account{Email: "a@example.com", Username: "a", PasswordHash: "h"}
	if err := accounts.Create(context.Background(), a); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &domain.Account{Email: "a@example.com", Username: "b", PasswordHash: "h"}
	if err := accounts.Create(context.Background(), dup); err == nil {
		t.Fatal("expected unique index violation to surface")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(&config.Config{DBDriver: "mysql"}, nil); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
