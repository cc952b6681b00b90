package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/smart-scheduler/internal/persistence/sqlite"
	"github.com/example/smart-scheduler/internal/persistence/sqlite/migration"
)

// NewSQLiteStore opens a migrated store in a temporary file that is closed
// when the test finishes.
func NewSQLiteStore(tb testing.TB) *sqlite.Store {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")
	store, err := sqlite.Open(context.Background(), migration.TempFileTestSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })
	return store
}
