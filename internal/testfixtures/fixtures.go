package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/persistence"
)

var (
	userCounter        uint64
	appointmentCounter uint64
	taskCounter        uint64
)

// Monday morning, so that fixtures built from it stay on working hours.
var referenceTime = time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// FastArgon2idParams keeps password hashing cheap in tests.
var FastArgon2idParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

// HashPassword hashes with FastArgon2idParams. Hashes verify with
// application.VerifyPassword like production ones.
func HashPassword(password string) (string, error) {
	return application.CreatePasswordHash(password, FastArgon2idParams)
}

// DefaultPassword is the plaintext behind every seeded user's hash.
const DefaultPassword = "secret-password"

// ----------------------------- User fixtures -----------------------------

// UserOption configures a generated user record.
type UserOption func(*persistence.User)

// NewUser returns a deterministic user record. The password hash is left
// empty; SeedUser fills it in from DefaultPassword.
func NewUser(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	user := persistence.User{
		Username:  fmt.Sprintf("user%03d", idx),
		Email:     fmt.Sprintf("user%03d@example.com", idx),
		Role:      string(application.RoleUser),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUsername overrides the generated username and derives the email from it.
func WithUsername(name string) UserOption {
	return func(u *persistence.User) {
		u.Username = name
		u.Email = name + "@example.com"
	}
}

// WithEmail overrides the generated email address.
func WithEmail(email string) UserOption {
	return func(u *persistence.User) {
		u.Email = email
	}
}

// WithAdminRole marks the user as an administrator.
func WithAdminRole() UserOption {
	return func(u *persistence.User) {
		u.Role = string(application.RoleAdmin)
	}
}

// SeedUser stores a user whose password is DefaultPassword.
func SeedUser(tb testing.TB, repo persistence.UserRepository, opts ...UserOption) persistence.User {
	tb.Helper()
	user := NewUser(opts...)
	if user.PasswordHash == "" {
		hash, err := HashPassword(DefaultPassword)
		if err != nil {
			tb.Fatalf("hash password: %v", err)
		}
		user.PasswordHash = hash
	}
	stored, err := repo.CreateUser(context.Background(), user)
	if err != nil {
		tb.Fatalf("seed user %s: %v", user.Username, err)
	}
	return stored
}

// -------------------------- Appointment fixtures --------------------------

// AppointmentOption configures a generated appointment record.
type AppointmentOption func(*persistence.Appointment)

// NewAppointment returns a one-hour Scheduled appointment for userID. Each
// call starts a day after the previous one so defaults never overlap.
func NewAppointment(userID int64, opts ...AppointmentOption) persistence.Appointment {
	idx := atomic.AddUint64(&appointmentCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * 24 * time.Hour)
	appointment := persistence.Appointment{
		UserID:    userID,
		Title:     fmt.Sprintf("Appointment %03d", idx),
		Start:     start,
		End:       start.Add(time.Hour),
		Status:    string(application.AppointmentScheduled),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&appointment)
	}
	return appointment
}

// WithAppointmentTitle overrides the generated title.
func WithAppointmentTitle(title string) AppointmentOption {
	return func(a *persistence.Appointment) {
		a.Title = title
	}
}

// WithWindow sets the start and end of the appointment.
func WithWindow(start, end time.Time) AppointmentOption {
	return func(a *persistence.Appointment) {
		a.Start = start
		a.End = end
	}
}

// WithAppointmentStatus overrides the Scheduled default.
func WithAppointmentStatus(status application.AppointmentStatus) AppointmentOption {
	return func(a *persistence.Appointment) {
		a.Status = string(status)
	}
}

// WithLocation sets the optional location.
func WithLocation(location string) AppointmentOption {
	return func(a *persistence.Appointment) {
		a.Location = &location
	}
}

// SeedAppointment stores an appointment directly, bypassing validation.
func SeedAppointment(tb testing.TB, repo persistence.AppointmentRepository, userID int64, opts ...AppointmentOption) persistence.Appointment {
	tb.Helper()
	stored, err := repo.CreateAppointment(context.Background(), NewAppointment(userID, opts...))
	if err != nil {
		tb.Fatalf("seed appointment: %v", err)
	}
	return stored
}

// ------------------------------ Task fixtures ------------------------------

// TaskOption configures a generated task record.
type TaskOption func(*persistence.Task)

// NewTask returns a Pending, Medium priority task without a due date.
func NewTask(userID int64, opts ...TaskOption) persistence.Task {
	idx := atomic.AddUint64(&taskCounter, 1)
	task := persistence.Task{
		UserID:    userID,
		Title:     fmt.Sprintf("Task %03d", idx),
		Priority:  string(application.PriorityMedium),
		Status:    string(application.TaskPending),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&task)
	}
	return task
}

// WithTaskTitle overrides the generated title.
func WithTaskTitle(title string) TaskOption {
	return func(t *persistence.Task) {
		t.Title = title
	}
}

// WithDueDate sets the due date.
func WithDueDate(due time.Time) TaskOption {
	return func(t *persistence.Task) {
		t.DueDate = &due
	}
}

// WithPriority overrides the Medium default.
func WithPriority(priority application.TaskPriority) TaskOption {
	return func(t *persistence.Task) {
		t.Priority = string(priority)
	}
}

// Completed marks the task as completed.
func Completed() TaskOption {
	return func(t *persistence.Task) {
		t.Status = string(application.TaskCompleted)
		t.IsCompleted = true
	}
}

// SeedTask stores a task directly, bypassing validation such as the
// future-due-date rule.
func SeedTask(tb testing.TB, repo persistence.TaskRepository, userID int64, opts ...TaskOption) persistence.Task {
	tb.Helper()
	stored, err := repo.CreateTask(context.Background(), NewTask(userID, opts...))
	if err != nil {
		tb.Fatalf("seed task: %v", err)
	}
	return stored
}

// --------------------------- Preference fixtures ---------------------------

// PreferenceOption configures a generated preferences record.
type PreferenceOption func(*persistence.NotificationPreferences)

// WithLeadMinutes sets the reminder lead time.
func WithLeadMinutes(minutes int) PreferenceOption {
	return func(p *persistence.NotificationPreferences) {
		p.ReminderTimeMinutes = minutes
	}
}

// WithoutEmail disables email notifications.
func WithoutEmail() PreferenceOption {
	return func(p *persistence.NotificationPreferences) {
		p.EmailNotifications = false
	}
}

// WithoutTaskReminders disables task reminders.
func WithoutTaskReminders() PreferenceOption {
	return func(p *persistence.NotificationPreferences) {
		p.TaskReminders = false
	}
}

// WithoutAppointmentReminders disables appointment reminders.
func WithoutAppointmentReminders() PreferenceOption {
	return func(p *persistence.NotificationPreferences) {
		p.AppointmentReminders = false
	}
}

// SeedPreferences stores preferences for userID starting from the
// application defaults.
func SeedPreferences(tb testing.TB, repo persistence.PreferenceRepository, userID int64, opts ...PreferenceOption) persistence.NotificationPreferences {
	tb.Helper()
	prefs := persistence.NotificationPreferences{
		UserID:               userID,
		EmailNotifications:   true,
		AppointmentReminders: true,
		TaskReminders:        true,
		ReminderTimeMinutes:  application.DefaultReminderMinutes,
		CreatedAt:            referenceTime,
		UpdatedAt:            referenceTime,
	}
	for _, opt := range opts {
		opt(&prefs)
	}
	stored, err := repo.UpsertPreferences(context.Background(), prefs)
	if err != nil {
		tb.Fatalf("seed preferences: %v", err)
	}
	return stored
}
