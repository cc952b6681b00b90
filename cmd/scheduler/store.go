package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/persistence"
	"github.com/example/smart-scheduler/internal/persistence/memory"
	"github.com/example/smart-scheduler/internal/persistence/postgres"
	"github.com/example/smart-scheduler/internal/persistence/sqlite"
	"github.com/example/smart-scheduler/internal/persistence/sqlite/migration"
)

type store interface {
	persistence.UserRepository
	persistence.AppointmentRepository
	persistence.TaskRepository
	persistence.PreferenceRepository
	Ping(ctx context.Context) error
	Close() error
}

// openStore picks the backend from the DSN: "memory:" keeps everything in
// process, postgres:// and postgresql:// URLs use PostgreSQL and anything else
// is a SQLite path or DSN. Schemas are brought up to date on open.
func openStore(ctx context.Context, dsn string, logger *slog.Logger) (store, error) {
	switch {
	case dsn == memory.DSN:
		logger.WarnContext(ctx, "using the in-memory store, data is lost on exit")
		return memory.New(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		st, err := postgres.Open(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		st, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(dsn), logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

type services struct {
	appointments  *application.AppointmentService
	tasks         *application.TaskService
	notifications *application.NotificationService
	auth          *application.AuthService
}

func newServices(st store, tokens application.TokenIssuer, now func() time.Time, logger *slog.Logger) services {
	return services{
		appointments:  application.NewAppointmentServiceWithLogger(st, now, logger),
		tasks:         application.NewTaskServiceWithLogger(st, now, logger),
		notifications: application.NewNotificationServiceWithLogger(st, now, logger),
		auth:          application.NewAuthServiceWithLogger(st, tokens, application.HashPassword, application.VerifyPassword, now, logger),
	}
}
