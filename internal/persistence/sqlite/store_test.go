package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/smart-scheduler/internal/persistence"
	"github.com/example/smart-scheduler/internal/persistence/persistencetest"
	"github.com/example/smart-scheduler/internal/persistence/sqlite/migration"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scheduler.db")
	store, err := Open(context.Background(), migration.TempFileTestSQLiteConfig(path), nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreContract(t *testing.T) {
	t.Parallel()
	persistencetest.Run(t, func(t *testing.T) persistencetest.Store {
		return openTestStore(t)
	})
}

func TestStoreReopenKeepsData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	first, err := Open(ctx, migration.TempFileTestSQLiteConfig(path), nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	user := persistencetest.SeedUser(t, first, "reopen")
	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	second, err := Open(ctx, migration.TempFileTestSQLiteConfig(path), nil)
	if err != nil {
		t.Fatalf("second Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	got, err := second.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if got.Username != "reopen" {
		t.Fatalf("unexpected user %+v", got)
	}
}

func TestStoreRejectsInvalidStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)
	user := persistencetest.SeedUser(t, store, "checker")

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err := store.CreateAppointment(ctx, persistence.Appointment{
		UserID: user.ID, Title: "bad", Start: start, End: start.Add(time.Hour),
		Status: "Bogus", CreatedAt: start, UpdatedAt: start,
	})
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestTimeLayoutSortsLexically(t *testing.T) {
	t.Parallel()

	early := formatTime(time.Date(2025, 1, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600)))
	late := formatTime(time.Date(2025, 1, 1, 8, 30, 0, 500, time.UTC))
	if !(early < late) {
		t.Fatalf("expected %s < %s", early, late)
	}
	parsed, err := parseTime(late)
	if err != nil {
		t.Fatalf("parseTime returned error: %v", err)
	}
	if !parsed.Equal(time.Date(2025, 1, 1, 8, 30, 0, 500, time.UTC)) {
		t.Fatalf("round trip lost precision: %s", parsed)
	}
}
