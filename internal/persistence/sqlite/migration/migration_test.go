package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestScanOrdersByVersion(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"0002_add_index.sql": {Data: []byte("CREATE INDEX idx_things_name ON things (name);")},
		"0001_create.sql":    {Data: []byte("-- things\nCREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT);")},
		"README.md":          {Data: []byte("ignored")},
	}

	migrations, err := Scan(files)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Fatalf("unexpected order: %d, %d", migrations[0].Version, migrations[1].Version)
	}
	if migrations[1].Description != "add index" {
		t.Fatalf("unexpected description %q", migrations[1].Description)
	}
	if migrations[0].Checksum == "" || migrations[0].Checksum == migrations[1].Checksum {
		t.Fatalf("expected distinct checksums")
	}
}

func TestScanRejectsBadFiles(t *testing.T) {
	t.Parallel()

	cases := map[string]fstest.MapFS{
		"bad name": {"create_things.sql": {Data: []byte("SELECT 1;")}},
		"zero":     {"0000_zero.sql": {Data: []byte("SELECT 1;")}},
		"empty":    {"0001_empty.sql": {Data: []byte("  \n")}},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := Scan(files); !errors.Is(err, ErrInvalidMigrationFile) {
				t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
			}
		})
	}

	dup := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql":  {Data: []byte("SELECT 2;")},
	}
	if _, err := Scan(dup); !errors.Is(err, ErrDuplicateVersion) {
		t.Fatalf("expected ErrDuplicateVersion, got %v", err)
	}
}

func TestSplitStatementsDropsComments(t *testing.T) {
	t.Parallel()

	got := splitStatements("-- header\nCREATE TABLE a (id INTEGER);\n\n-- trailing\n;CREATE TABLE b (id INTEGER);")
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (id INTEGER)" {
		t.Fatalf("unexpected first statement %q", got[0])
	}
}

func TestManagerAppliesEmbeddedSchemaOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := Open(ctx, TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "schema.db")))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	manager := NewManager(db, Files, nil)
	if err := manager.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate returned error: %v", err)
	}
	if err := manager.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate returned error: %v", err)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != 1 || len(status.Pending) != 0 || len(status.Applied) != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	for _, table := range []string{"users", "appointments", "tasks", "notification_preferences"} {
		var name string
		if err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestManagerRollsBackFailedMigration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := Open(ctx, TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "broken.db")))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	files := fstest.MapFS{
		"0001_partial.sql": {Data: []byte("CREATE TABLE partial (id INTEGER);\nINSERT INTO missing_table VALUES (1);")},
	}
	err = NewManager(db, files, nil).Migrate(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'partial'`).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected partial table to be rolled back")
	}
}

func TestManagerDetectsEditedMigration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := Open(ctx, TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "edited.db")))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	original := fstest.MapFS{"0001_things.sql": {Data: []byte("CREATE TABLE things (id INTEGER);")}}
	if err := NewManager(db, original, nil).Migrate(ctx); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	edited := fstest.MapFS{"0001_things.sql": {Data: []byte("CREATE TABLE things (id INTEGER, name TEXT);")}}
	if err := NewManager(db, edited, nil).Migrate(ctx); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultSQLiteConfig("data/app.db").Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	bad := DefaultSQLiteConfig("data/app.db")
	bad.JournalMode = "SIDEWAYS"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected journal mode error")
	}
	if err := DefaultSQLiteConfig(" ").Validate(); err == nil {
		t.Fatalf("expected empty DSN error")
	}
}
