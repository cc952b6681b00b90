package http

import (
	"context"
	"log/slog"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := logging.OrDefault(ctx, fallback)

	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

func logServiceError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	level := slog.LevelError
	if application.IsExpected(err) {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, msg, "error", err, "error_kind", application.ErrorKind(err))
}
