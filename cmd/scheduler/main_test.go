package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/smart-scheduler/internal/persistence/memory"
	"github.com/example/smart-scheduler/internal/persistence/sqlite"
	"github.com/example/smart-scheduler/internal/persistence/sqlite/migration"
)

func setTestEnv(t *testing.T, dsn string) {
	t.Helper()
	t.Setenv("SCHEDULER_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("SCHEDULER_CONFIG_FILE", "")
	t.Setenv("SCHEDULER_JWT_SECRET", "cli-test-secret-0123456789")
	t.Setenv("SCHEDULER_DATABASE_DSN", dsn)
	t.Setenv("SCHEDULER_LOG_FORMAT", "json")
	t.Setenv("SCHEDULER_LOG_LEVEL", "error")
	t.Setenv("SCHEDULER_LOG_FILE", "")
	t.Setenv("SCHEDULER_EMAIL_ENABLED", "false")
}

func TestMigrateAndCreateAdmin(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scheduler.db")
	setTestEnv(t, dbPath)
	ctx := context.Background()

	var out bytes.Buffer
	if err := run(ctx, []string{"migrate"}, &out); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out.String(), "up to date") {
		t.Fatalf("migrate output = %q", out.String())
	}

	out.Reset()
	args := []string{"user", "create", "root", "root@example.com", "--password", "root-password", "--admin"}
	if err := run(ctx, args, &out); err != nil {
		t.Fatalf("user create: %v", err)
	}
	if !strings.Contains(out.String(), `created Admin "root"`) {
		t.Fatalf("user create output = %q", out.String())
	}

	if err := run(ctx, args, io.Discard); err == nil {
		t.Fatalf("creating the same user twice should fail")
	}

	store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(dbPath), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()

	user, err := store.GetUserByLogin(ctx, "ROOT@example.com")
	if err != nil {
		t.Fatalf("GetUserByLogin: %v", err)
	}
	if user.Role != "Admin" {
		t.Fatalf("role = %q, want Admin", user.Role)
	}
}

func TestCreateUserRejectsInvalidInput(t *testing.T) {
	setTestEnv(t, memory.DSN)

	err := run(context.Background(), []string{"user", "create", "x", "not-an-email", "--password", "pw"}, io.Discard)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, field := range []string{"username", "email", "password"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error %q does not mention %s", err, field)
		}
	}
}

func TestRemindRunsOnePass(t *testing.T) {
	setTestEnv(t, memory.DSN)

	var out bytes.Buffer
	if err := run(context.Background(), []string{"remind"}, &out); err != nil {
		t.Fatalf("remind: %v", err)
	}
	if !strings.Contains(out.String(), "0 appointment, 0 task, 0 failed") {
		t.Fatalf("remind output = %q", out.String())
	}
}

func TestRunRequiresSecret(t *testing.T) {
	setTestEnv(t, memory.DSN)
	t.Setenv("SCHEDULER_JWT_SECRET", "")

	err := run(context.Background(), []string{"migrate"}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "SCHEDULER_JWT_SECRET") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestOpenStoreSelectsBackend(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	st, err := openStore(ctx, memory.DSN, logger)
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	if _, ok := st.(*memory.Storage); !ok {
		t.Fatalf("memory DSN opened %T", st)
	}

	st, err = openStore(ctx, filepath.Join(t.TempDir(), "data.db"), logger)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*sqlite.Store); !ok {
		t.Fatalf("file DSN opened %T", st)
	}
	if err := st.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
