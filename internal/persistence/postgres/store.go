// Package postgres implements the persistence repositories on PostgreSQL
// using a pgx connection pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/smart-scheduler/internal/persistence"
)

//go:embed schema.sql
var schemaSQL string

// PostgreSQL SQLSTATE codes mapped to persistence errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
)

// Store implements every persistence repository over one pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ persistence.UserRepository        = (*Store)(nil)
	_ persistence.AppointmentRepository = (*Store)(nil)
	_ persistence.TaskRepository        = (*Store)(nil)
	_ persistence.PreferenceRepository  = (*Store)(nil)
)

// Open connects to dsn, verifies the connection and creates the schema when
// it does not exist yet.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool, logger: logger.With(slog.String("component", "postgres"))}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the idempotent schema.
func (s *Store) Migrate(ctx context.Context) error {
	started := time.Now()
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	s.logger.InfoContext(ctx, "postgres schema ready", slog.Duration("elapsed", time.Since(started)))
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", persistence.ErrDuplicate, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", persistence.ErrForeignKeyViolation, pgErr.ConstraintName)
		case codeCheckViolation, codeNotNullViolation:
			return fmt.Errorf("%w: %s", persistence.ErrConstraintViolation, pgErr.ConstraintName)
		}
	}
	return err
}

func requireAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// conditions accumulates AND-ed predicates with $n placeholders.
type conditions struct {
	preds []string
	args  []any
}

func (c *conditions) add(pred string, arg any) {
	c.args = append(c.args, arg)
	c.preds = append(c.preds, strings.ReplaceAll(pred, "?", "$"+strconv.Itoa(len(c.args))))
}

func (c *conditions) where() string {
	if len(c.preds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.preds, " AND ")
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
