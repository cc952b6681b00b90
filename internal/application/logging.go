package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/smart-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.OrDefault(ctx, base)

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// logFailure records a failed operation. Caller-correctable errors are logged at
// WARN, anything else at ERROR.
func logFailure(ctx context.Context, logger *slog.Logger, msg string, err error) {
	level := slog.LevelError
	if IsExpected(err) {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, msg, "error", err, "error_kind", ErrorKind(err))
}

// IsExpected reports whether err is one of the recoverable, caller-facing
// conditions rather than a system failure.
func IsExpected(err error) bool {
	switch ErrorKind(err) {
	case "", "unexpected":
		return false
	default:
		return true
	}
}

// ErrorKind maps sentinel and typed errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
