package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager applies pending migrations from a file set.
type Manager struct {
	files  fs.FS
	exec   *executor
	logger *slog.Logger
}

// NewManager builds a Manager. A nil logger falls back to slog.Default.
func NewManager(db *sql.DB, files fs.FS, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		files:  files,
		exec:   &executor{db: db, now: time.Now},
		logger: logger.With(slog.String("component", "migration")),
	}
}

// Migrate applies every pending migration in version order. Applied
// migrations whose file content changed are reported as ErrChecksumMismatch
// before anything new runs.
func (m *Manager) Migrate(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if len(status.Pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date", slog.Int("version", status.CurrentVersion))
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations",
		slog.Int("from_version", status.CurrentVersion),
		slog.Int("pending", len(status.Pending)))

	for _, mig := range status.Pending {
		elapsed, err := m.exec.apply(ctx, mig)
		if err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				slog.Int("version", mig.Version),
				slog.String("file", mig.FileName),
				slog.Any("error", err))
			return err
		}
		m.logger.InfoContext(ctx, "migration applied",
			slog.Int("version", mig.Version),
			slog.String("description", mig.Description),
			slog.Duration("elapsed", elapsed))
	}
	return nil
}

// Status compares the ledger with the available files.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.exec.initLedger(ctx); err != nil {
		return Status{}, err
	}
	available, err := Scan(m.files)
	if err != nil {
		return Status{}, err
	}
	applied, err := m.exec.applied(ctx)
	if err != nil {
		return Status{}, err
	}

	byVersion := make(map[int]AppliedMigration, len(applied))
	status := Status{Applied: applied}
	for _, rec := range applied {
		byVersion[rec.Version] = rec
		if rec.Version > status.CurrentVersion {
			status.CurrentVersion = rec.Version
		}
	}

	for _, mig := range available {
		rec, ok := byVersion[mig.Version]
		if !ok {
			status.Pending = append(status.Pending, mig)
			continue
		}
		if rec.Checksum != mig.Checksum {
			return Status{}, newMigrationError(mig.Version, mig.FileName, "verify checksum",
				fmt.Errorf("%w: ledger has %s, file has %s", ErrChecksumMismatch, rec.Checksum, mig.Checksum))
		}
	}
	return status, nil
}
