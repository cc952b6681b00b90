package application

import (
	"fmt"
	"strings"
	"time"
)

// Role is the authorization level of an account.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// ParseRole accepts a role name case-insensitively.
func ParseRole(value string) (Role, error) {
	for _, r := range []Role{RoleUser, RoleAdmin} {
		if strings.EqualFold(strings.TrimSpace(value), string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", value)
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the principal carries the administrator role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "Scheduled"
	AppointmentApproved  AppointmentStatus = "Approved"
	AppointmentCompleted AppointmentStatus = "Completed"
	AppointmentCancelled AppointmentStatus = "Cancelled"
)

// AppointmentStatuses lists every valid appointment status.
var AppointmentStatuses = []AppointmentStatus{AppointmentScheduled, AppointmentApproved, AppointmentCompleted, AppointmentCancelled}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	for _, known := range AppointmentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseAppointmentStatus accepts a status name case-insensitively.
func ParseAppointmentStatus(value string) (AppointmentStatus, error) {
	for _, known := range AppointmentStatuses {
		if strings.EqualFold(strings.TrimSpace(value), string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown appointment status %q", value)
}

// TaskStatus is the progress state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "Pending"
	TaskInProgress TaskStatus = "InProgress"
	TaskCompleted  TaskStatus = "Completed"
)

// TaskStatuses lists every valid task status.
var TaskStatuses = []TaskStatus{TaskPending, TaskInProgress, TaskCompleted}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseTaskStatus accepts a status name case-insensitively.
func ParseTaskStatus(value string) (TaskStatus, error) {
	for _, known := range TaskStatuses {
		if strings.EqualFold(strings.TrimSpace(value), string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown task status %q", value)
}

// TaskPriority ranks tasks.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

// TaskPriorities lists every valid priority.
var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	for _, known := range TaskPriorities {
		if p == known {
			return true
		}
	}
	return false
}

// ParseTaskPriority accepts a priority name case-insensitively.
func ParseTaskPriority(value string) (TaskPriority, error) {
	for _, known := range TaskPriorities {
		if strings.EqualFold(strings.TrimSpace(value), string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown task priority %q", value)
}

// Appointment is a time-boxed calendar entry owned by one user.
type Appointment struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description *string
	Start       time.Time
	End         time.Time
	Location    *string
	Status      AppointmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AppointmentInput captures caller provided appointment fields.
type AppointmentInput struct {
	Title       string
	Description *string
	Start       time.Time
	End         time.Time
	Location    *string
}

// AppointmentUpdate is a full edit by the owner. An empty Status keeps the stored one.
type AppointmentUpdate struct {
	AppointmentInput
	Status AppointmentStatus
}

// Task is a to-do item owned by one user.
type Task struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description *string
	DueDate     *time.Time
	Priority    TaskPriority
	Status      TaskStatus
	IsCompleted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Overdue reports whether the task is incomplete and past its due date at now.
func (t Task) Overdue(now time.Time) bool {
	return !t.IsCompleted && t.DueDate != nil && t.DueDate.Before(now)
}

// TaskInput captures caller provided task fields.
type TaskInput struct {
	Title       string
	Description *string
	DueDate     *time.Time
	Priority    TaskPriority
}

// TaskUpdate is a full edit by the owner. When Status is empty the stored status
// is kept, unless IsCompleted asks for completion.
type TaskUpdate struct {
	TaskInput
	Status      TaskStatus
	IsCompleted bool
}

// NotificationPreferences controls which reminders a user receives and when.
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

// PreferencesInput captures caller provided preference fields.
type PreferencesInput struct {
	EmailNotifications   bool
	PushNotifications    bool
	AppointmentReminders bool
	TaskReminders        bool
	ReminderTimeMinutes  int
}

// ReminderKind selects appointment or task reminder recipients.
type ReminderKind string

const (
	ReminderAppointments ReminderKind = "appointment"
	ReminderTasks        ReminderKind = "task"
)

// ReminderRecipient is a user who opted into a reminder kind, with their lead time.
type ReminderRecipient struct {
	UserID   int64
	Username string
	Email    string
	LeadTime time.Duration
}

// User is an account exposed by the application services. It never carries the password hash.
type User struct {
	ID        int64
	Username  string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegisterInput captures the fields of a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// ProfileInput captures profile edits. An empty NewPassword keeps the current one.
type ProfileInput struct {
	Username    string
	Email       string
	NewPassword string
}

// LoginResult is returned after successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}
