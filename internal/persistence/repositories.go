package persistence

import (
	"context"
	"time"
)

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	// GetUserByLogin matches either the username or the email, case-insensitively.
	GetUserByLogin(ctx context.Context, login string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
}

// AppointmentFilter narrows appointment queries. Zero values disable a clause.
type AppointmentFilter struct {
	UserID        int64
	Status        string
	ExcludeStatus string
	ExcludeID     int64
	// StartFrom and StartTo bound start_time inclusively.
	StartFrom *time.Time
	StartTo   *time.Time
	// EndTo bounds end_time inclusively.
	EndTo *time.Time
	// OverlapStart and OverlapEnd select rows intersecting [OverlapStart, OverlapEnd).
	OverlapStart *time.Time
	OverlapEnd   *time.Time
}

// AppointmentRepository stores appointments.
type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, appointment Appointment) (Appointment, error)
	GetAppointment(ctx context.Context, id int64) (Appointment, error)
	UpdateAppointment(ctx context.Context, appointment Appointment) (Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error
	// ListAppointments returns matches ordered by start time, then id.
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error)
}

// TaskFilter narrows task queries. Zero values disable a clause.
type TaskFilter struct {
	UserID    int64
	Status    string
	Priority  string
	Completed *bool
	// DueBefore bounds due_date exclusively and implies a non-null due date.
	DueBefore *time.Time
	// DueFrom and DueTo bound due_date inclusively and imply a non-null due date.
	DueFrom *time.Time
	DueTo   *time.Time
}

// TaskRepository stores tasks.
type TaskRepository interface {
	CreateTask(ctx context.Context, task Task) (Task, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	UpdateTask(ctx context.Context, task Task) (Task, error)
	DeleteTask(ctx context.Context, id int64) error
	// ListTasks returns matches ordered by due date (undated last), then id.
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
}

// PreferenceRepository stores notification preferences.
type PreferenceRepository interface {
	// EnsurePreferences inserts defaults when the user has no row yet and
	// returns the stored row either way.
	EnsurePreferences(ctx context.Context, defaults NotificationPreferences) (NotificationPreferences, error)
	UpsertPreferences(ctx context.Context, prefs NotificationPreferences) (NotificationPreferences, error)
	ListReminderRecipients(ctx context.Context, kind ReminderKind) ([]ReminderRecipient, error)
}
