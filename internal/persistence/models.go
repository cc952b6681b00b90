package persistence

import "time"

// User is an account row.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Appointment is a calendar entry owned by a single user.
type Appointment struct {
	ID          int64
	UserID      int64
	Title       string
	Description *string
	Start       time.Time
	End         time.Time
	Location    *string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Task is a to-do item owned by a single user.
type Task struct {
	ID          int64
	UserID      int64
	Title       string
	Description *string
	DueDate     *time.Time
	Priority    string
	Status      string
	IsCompleted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NotificationPreferences is the single preferences row kept per user.
type NotificationPreferences struct {
	UserID               int64
	EmailNotifications   bool
	PushNotifications    bool
	AppointmentReminders bool
	TaskReminders        bool
	ReminderTimeMinutes  int
	PushSubscription     *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ReminderKind selects which reminder flag a recipient query honours.
type ReminderKind string

const (
	ReminderKindAppointment ReminderKind = "appointment"
	ReminderKindTask        ReminderKind = "task"
)

// ReminderRecipient joins a user with the lead time from their preferences.
type ReminderRecipient struct {
	UserID              int64
	Username            string
	Email               string
	ReminderTimeMinutes int
}
