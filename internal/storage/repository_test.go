package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"nomina/internal/blob"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nomina.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepositoryVersioning(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, _, err := repo.Get(ctx, "entries.csv"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	v1, err := repo.Put(ctx, "entries.csv", []byte("one"), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v1 != "1" {
		t.Fatalf("first version should be 1, got %s", v1)
	}
	if _, err := repo.Put(ctx, "entries.csv", []byte("dup"), ""); !errors.Is(err, blob.ErrVersionConflict) {
		t.Fatalf("expected conflict on second create, got %v", err)
	}

	v2, err := repo.Put(ctx, "entries.csv", []byte("two"), v1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := repo.Put(ctx, "entries.csv", []byte("three"), v1); !errors.Is(err, blob.ErrVersionConflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}

	data, v, err := repo.Get(ctx, "entries.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "two" || v != v2 {
		t.Fatalf("got %q@%s want two@%s", data, v, v2)
	}

	history, err := repo.History(ctx, "entries.csv", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0] != 2 || history[1] != 1 {
		t.Fatalf("unexpected history %v", history)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nomina.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}
