// Package migration applies versioned SQL schema changes to the SQLite store.
//
// Migration files follow the naming convention {version}_{description}.sql
// (for example "0001_init.sql") and are read from an fs.FS, normally the
// embedded Files set compiled into the binary. Applied versions are tracked
// in a schema_migrations table together with the file checksum, so a file
// that changes after being applied is reported instead of silently skipped.
//
// Example usage:
//
//	manager := migration.NewManager(db, migration.Files, logger)
//	if err := manager.Migrate(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
