// Package sqlite implements the persistence repositories on an embedded
// SQLite database, with the schema managed by the migration subpackage.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/smart-scheduler/internal/persistence"
	"github.com/example/smart-scheduler/internal/persistence/sqlite/migration"
)

// Store bundles every SQLite repository over a single connection pool.
type Store struct {
	*UserRepository
	*AppointmentRepository
	*TaskRepository
	*PreferenceRepository

	pool *ConnectionPool
}

var (
	_ persistence.UserRepository        = (*Store)(nil)
	_ persistence.AppointmentRepository = (*Store)(nil)
	_ persistence.TaskRepository        = (*Store)(nil)
	_ persistence.PreferenceRepository  = (*Store)(nil)
)

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := migration.NewManager(pool.DB(), migration.Files, logger).Migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("migrate %s: %w", config.DSN, err)
	}
	return &Store{
		UserRepository:        NewUserRepository(pool),
		AppointmentRepository: NewAppointmentRepository(pool),
		TaskRepository:        NewTaskRepository(pool),
		PreferenceRepository:  NewPreferenceRepository(pool),
		pool:                  pool,
	}, nil
}

// Pool exposes the underlying connection pool.
func (s *Store) Pool() *ConnectionPool {
	return s.pool
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
