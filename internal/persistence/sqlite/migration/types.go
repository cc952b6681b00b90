package migration

import (
	"embed"
	"io/fs"
	"time"
)

//go:embed sql/*.sql
var embedded embed.FS

// Files holds the schema migrations shipped with the binary.
var Files fs.FS = mustSub(embedded, "sql")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Migration is a single versioned schema change.
type Migration struct {
	Version     int
	Description string
	SQL         string
	FileName    string
	Checksum    string
}

// AppliedMigration is a row of the schema_migrations ledger.
type AppliedMigration struct {
	Version       int
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the ledger against the available files.
type Status struct {
	CurrentVersion int
	Applied        []AppliedMigration
	Pending        []Migration
}
