// Package notify renders reminder messages and hands them to a mail transport.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/smart-scheduler/internal/logging"
)

// Message is a single outbound HTML email.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher sends reminders for appointments and tasks. Implementations may
// fail per call; callers decide whether to continue.
type Dispatcher interface {
	SendAppointmentReminder(ctx context.Context, email, username, title string, start time.Time) error
	SendTaskReminder(ctx context.Context, email, username, title string, due *time.Time) error
}

// ConsoleMailer writes messages to the log instead of sending them. It is used
// when outbound email is disabled.
type ConsoleMailer struct {
	logger *slog.Logger
}

// NewConsoleMailer returns a ConsoleMailer logging through logger.
func NewConsoleMailer(logger *slog.Logger) *ConsoleMailer {
	return &ConsoleMailer{logger: logger}
}

// Send logs msg at INFO.
func (m *ConsoleMailer) Send(ctx context.Context, msg Message) error {
	logging.OrDefault(ctx, m.logger).InfoContext(ctx, "email (console mode)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.HTMLBody,
	)
	return nil
}
