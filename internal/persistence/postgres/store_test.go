package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/example/smart-scheduler/internal/persistence/persistencetest"
)

// The contract suite needs a disposable database; each subtest truncates it.
const dsnEnv = "SCHEDULER_TEST_POSTGRES_DSN"

func TestStoreContract(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	persistencetest.Run(t, func(t *testing.T) persistencetest.Store {
		ctx := context.Background()
		store, err := Open(ctx, dsn, nil)
		if err != nil {
			t.Fatalf("Open returned error: %v", err)
		}
		if _, err := store.pool.Exec(ctx, `TRUNCATE users RESTART IDENTITY CASCADE`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestConditionsNumbersPlaceholders(t *testing.T) {
	t.Parallel()

	var c conditions
	c.add("user_id = ?", int64(7))
	c.add("status <> ?", "Cancelled")
	if got, want := c.where(), " WHERE user_id = $1 AND status <> $2"; got != want {
		t.Fatalf("where() = %q, want %q", got, want)
	}
	if len(c.args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(c.args))
	}
}
