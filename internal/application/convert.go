package application

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/smart-scheduler/internal/persistence"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
	maxLocationLength    = 200
)

func appointmentFromRecord(rec persistence.Appointment) Appointment {
	return Appointment{
		ID:          rec.ID,
		OwnerID:     rec.UserID,
		Title:       rec.Title,
		Description: rec.Description,
		Start:       rec.Start,
		End:         rec.End,
		Location:    rec.Location,
		Status:      AppointmentStatus(rec.Status),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func appointmentToRecord(a Appointment) persistence.Appointment {
	return persistence.Appointment{
		ID:          a.ID,
		UserID:      a.OwnerID,
		Title:       a.Title,
		Description: a.Description,
		Start:       a.Start,
		End:         a.End,
		Location:    a.Location,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func appointmentsFromRecords(recs []persistence.Appointment) []Appointment {
	out := make([]Appointment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, appointmentFromRecord(rec))
	}
	return out
}

func taskFromRecord(rec persistence.Task) Task {
	return Task{
		ID:          rec.ID,
		OwnerID:     rec.UserID,
		Title:       rec.Title,
		Description: rec.Description,
		DueDate:     rec.DueDate,
		Priority:    TaskPriority(rec.Priority),
		Status:      TaskStatus(rec.Status),
		IsCompleted: rec.IsCompleted,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func taskToRecord(t Task) persistence.Task {
	return persistence.Task{
		ID:          t.ID,
		UserID:      t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		IsCompleted: t.IsCompleted,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func tasksFromRecords(recs []persistence.Task) []Task {
	out := make([]Task, 0, len(recs))
	for _, rec := range recs {
		out = append(out, taskFromRecord(rec))
	}
	return out
}

func preferencesFromRecord(rec persistence.NotificationPreferences) NotificationPreferences {
	return NotificationPreferences{
		UserID:               rec.UserID,
		EmailNotifications:   rec.EmailNotifications,
		PushNotifications:    rec.PushNotifications,
		AppointmentReminders: rec.AppointmentReminders,
		TaskReminders:        rec.TaskReminders,
		ReminderTimeMinutes:  rec.ReminderTimeMinutes,
		PushSubscription:     rec.PushSubscription,
		CreatedAt:            rec.CreatedAt,
		UpdatedAt:            rec.UpdatedAt,
	}
}

func preferencesToRecord(p NotificationPreferences) persistence.NotificationPreferences {
	return persistence.NotificationPreferences{
		UserID:               p.UserID,
		EmailNotifications:   p.EmailNotifications,
		PushNotifications:    p.PushNotifications,
		AppointmentReminders: p.AppointmentReminders,
		TaskReminders:        p.TaskReminders,
		ReminderTimeMinutes:  p.ReminderTimeMinutes,
		PushSubscription:     p.PushSubscription,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func userFromRecord(rec persistence.User) User {
	return User{
		ID:        rec.ID,
		Username:  rec.Username,
		Email:     rec.Email,
		Role:      Role(rec.Role),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// mapRepoError converts storage errors into application errors.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return NewValidationError("userId", "referenced user does not exist")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return &ValidationError{FieldErrors: map[string]string{"record": "rejected by storage constraint"}}
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validateTitle(vErr *ValidationError, title string) {
	trimmed := strings.TrimSpace(title)
	switch {
	case trimmed == "":
		vErr.add("title", "title is required")
	case utf8.RuneCountInString(trimmed) > maxTitleLength:
		vErr.add("title", "title must be at most 200 characters")
	}
}

func validateOptionalLength(vErr *ValidationError, field string, value *string, limit int) {
	if value == nil {
		return
	}
	if utf8.RuneCountInString(strings.TrimSpace(*value)) > limit {
		vErr.add(field, field+" is too long")
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
