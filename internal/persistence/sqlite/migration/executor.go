package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const createLedgerSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version           INTEGER PRIMARY KEY,
	description       TEXT    NOT NULL,
	applied_at        TEXT    NOT NULL,
	checksum          TEXT    NOT NULL,
	execution_time_ms INTEGER NOT NULL
)`

// executor runs migrations against a database and maintains the ledger.
type executor struct {
	db  *sql.DB
	now func() time.Time
}

func (e *executor) initLedger(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, createLedgerSQL); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

// apply executes the migration and records it in a single transaction, so a
// failing statement leaves neither schema changes nor a ledger row behind.
func (e *executor) apply(ctx context.Context, m Migration) (elapsed time.Duration, err error) {
	statements := splitStatements(m.SQL)
	if len(statements) == 0 {
		return 0, newMigrationError(m.Version, m.FileName, "parse SQL",
			fmt.Errorf("%w: no statements", ErrInvalidMigrationFile))
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, newMigrationError(m.Version, m.FileName, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	started := e.now()
	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return 0, newMigrationError(m.Version, m.FileName, fmt.Sprintf("execute statement %d", i+1),
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
	}
	elapsed = e.now().Sub(started)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?, ?)`,
		m.Version, m.Description, e.now().UTC().Format(time.RFC3339), m.Checksum, elapsed.Milliseconds())
	if err != nil {
		return 0, newMigrationError(m.Version, m.FileName, "record migration", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, newMigrationError(m.Version, m.FileName, "commit transaction", err)
	}
	return elapsed, nil
}

func (e *executor) applied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT version, applied_at, execution_time_ms, checksum FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	var out []AppliedMigration
	for rows.Next() {
		var (
			rec       AppliedMigration
			appliedAt string
			ms        int64
		)
		if err := rows.Scan(&rec.Version, &appliedAt, &ms, &rec.Checksum); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		rec.AppliedAt, err = time.Parse(time.RFC3339, appliedAt)
		if err != nil {
			return nil, fmt.Errorf("parse applied_at for version %d: %w", rec.Version, err)
		}
		rec.ExecutionTime = time.Duration(ms) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("iterate schema_migrations: %w", err)
	}
	return out, nil
}
