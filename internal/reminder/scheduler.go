// Package reminder finds appointments and tasks entering each user's reminder
// window and dispatches one notification per item.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/logging"
	"github.com/example/smart-scheduler/internal/notify"
)

// DefaultTolerance is the half-width of the reminder window around the lead time.
const DefaultTolerance = 5 * time.Minute

// RecipientSource lists users opted into a reminder kind.
type RecipientSource interface {
	ListReminderRecipients(ctx context.Context, kind application.ReminderKind) ([]application.ReminderRecipient, error)
}

// AppointmentSource lists an owner's Scheduled appointments starting in [from, to].
type AppointmentSource interface {
	ListStartingBetween(ctx context.Context, ownerID int64, from, to time.Time) ([]application.Appointment, error)
}

// TaskSource lists an owner's incomplete tasks due in [from, to].
type TaskSource interface {
	ListDueBetween(ctx context.Context, ownerID int64, from, to time.Time) ([]application.Task, error)
}

// Deps wires a Scheduler.
type Deps struct {
	Recipients   RecipientSource
	Appointments AppointmentSource
	Tasks        TaskSource
	Dispatcher   notify.Dispatcher
	Now          func() time.Time
	// Tolerance defaults to DefaultTolerance.
	Tolerance time.Duration
	Logger    *slog.Logger
}

// PassReport summarises one pass.
type PassReport struct {
	At               time.Time
	AppointmentsSent int
	TasksSent        int
	Failures         int
}

// Scheduler runs reminder passes. It holds no state between passes, so an item
// sitting exactly on a boundary shared by two consecutive windows may be
// reminded twice.
type Scheduler struct {
	recipients   RecipientSource
	appointments AppointmentSource
	tasks        TaskSource
	dispatcher   notify.Dispatcher
	now          func() time.Time
	tolerance    time.Duration
	logger       *slog.Logger
}

// NewScheduler validates deps and returns a Scheduler.
func NewScheduler(deps Deps) (*Scheduler, error) {
	if deps.Recipients == nil || deps.Appointments == nil || deps.Tasks == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("reminder: recipients, appointments, tasks and dispatcher are required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Tolerance <= 0 {
		deps.Tolerance = DefaultTolerance
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Scheduler{
		recipients:   deps.Recipients,
		appointments: deps.Appointments,
		tasks:        deps.Tasks,
		dispatcher:   deps.Dispatcher,
		now:          deps.Now,
		tolerance:    deps.Tolerance,
		logger:       deps.Logger,
	}, nil
}

// Window returns the inclusive reminder window for a lead time at now.
func (s *Scheduler) Window(now time.Time, lead time.Duration) (from, to time.Time) {
	target := now.Add(lead)
	return target.Add(-s.tolerance), target.Add(s.tolerance)
}

// RunPass sweeps appointments and then tasks. Failures for one user or item
// are logged and counted; only cancellation of ctx ends the pass early.
func (s *Scheduler) RunPass(ctx context.Context) (PassReport, error) {
	report := PassReport{At: s.now().UTC()}
	logger := logging.OrDefault(ctx, s.logger).With("component", "reminder", "pass_at", report.At)

	if err := s.sweepAppointments(ctx, logger, &report); err != nil {
		return report, err
	}
	if err := s.sweepTasks(ctx, logger, &report); err != nil {
		return report, err
	}

	level := slog.LevelInfo
	if report.Failures > 0 {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "reminder pass finished",
		"appointments_sent", report.AppointmentsSent,
		"tasks_sent", report.TasksSent,
		"failures", report.Failures,
	)
	return report, nil
}

func (s *Scheduler) sweepAppointments(ctx context.Context, logger *slog.Logger, report *PassReport) error {
	recipients, err := s.recipients.ListReminderRecipients(ctx, application.ReminderAppointments)
	if err != nil {
		report.Failures++
		logger.ErrorContext(ctx, "failed to list appointment reminder recipients", "error", err)
		return ctx.Err()
	}

	for _, r := range recipients {
		if err := ctx.Err(); err != nil {
			return err
		}
		from, to := s.Window(report.At, r.LeadTime)
		userLogger := logger.With("user_id", r.UserID)

		appointments, err := s.appointments.ListStartingBetween(ctx, r.UserID, from, to)
		if err != nil {
			report.Failures++
			userLogger.ErrorContext(ctx, "failed to list due appointments", "error", err)
			continue
		}
		for _, a := range appointments {
			if err := s.dispatcher.SendAppointmentReminder(ctx, r.Email, r.Username, a.Title, a.Start); err != nil {
				report.Failures++
				userLogger.ErrorContext(ctx, "failed to send appointment reminder", "appointment_id", a.ID, "error", err)
				continue
			}
			report.AppointmentsSent++
			userLogger.InfoContext(ctx, "appointment reminder sent", "appointment_id", a.ID)
		}
	}
	return nil
}

func (s *Scheduler) sweepTasks(ctx context.Context, logger *slog.Logger, report *PassReport) error {
	recipients, err := s.recipients.ListReminderRecipients(ctx, application.ReminderTasks)
	if err != nil {
		report.Failures++
		logger.ErrorContext(ctx, "failed to list task reminder recipients", "error", err)
		return ctx.Err()
	}

	for _, r := range recipients {
		if err := ctx.Err(); err != nil {
			return err
		}
		from, to := s.Window(report.At, r.LeadTime)
		userLogger := logger.With("user_id", r.UserID)

		tasks, err := s.tasks.ListDueBetween(ctx, r.UserID, from, to)
		if err != nil {
			report.Failures++
			userLogger.ErrorContext(ctx, "failed to list due tasks", "error", err)
			continue
		}
		for _, t := range tasks {
			if t.IsCompleted || t.DueDate == nil {
				continue
			}
			if err := s.dispatcher.SendTaskReminder(ctx, r.Email, r.Username, t.Title, t.DueDate); err != nil {
				report.Failures++
				userLogger.ErrorContext(ctx, "failed to send task reminder", "task_id", t.ID, "error", err)
				continue
			}
			report.TasksSent++
			userLogger.InfoContext(ctx, "task reminder sent", "task_id", t.ID)
		}
	}
	return nil
}
