// Package memory implements the persistence repositories on in-process maps.
// It backs unit tests and the "memory:" database DSN.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/example/smart-scheduler/internal/persistence"
)

// DSN selects the in-memory store.
const DSN = "memory:"

// Storage holds every entity behind one lock.
type Storage struct {
	mu           sync.RWMutex
	nextID       int64
	users        map[int64]persistence.User
	appointments map[int64]persistence.Appointment
	tasks        map[int64]persistence.Task
	preferences  map[int64]persistence.NotificationPreferences
}

var (
	_ persistence.UserRepository        = (*Storage)(nil)
	_ persistence.AppointmentRepository = (*Storage)(nil)
	_ persistence.TaskRepository        = (*Storage)(nil)
	_ persistence.PreferenceRepository  = (*Storage)(nil)
)

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		users:        make(map[int64]persistence.User),
		appointments: make(map[int64]persistence.Appointment),
		tasks:        make(map[int64]persistence.Task),
		preferences:  make(map[int64]persistence.NotificationPreferences),
	}
}

// Ping always succeeds.
func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

func (s *Storage) allocateIDLocked() int64 {
	s.nextID++
	return s.nextID
}

// --- UserRepository implementation ---

// CreateUser stores a new user and assigns its ID.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userConflictLocked(user) {
		return persistence.User{}, persistence.ErrDuplicate
	}
	user.ID = s.allocateIDLocked()
	s.users[user.ID] = user
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(ctx context.Context, id int64) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByLogin retrieves a user by username or email, ignoring case.
func (s *Storage) GetUserByLogin(ctx context.Context, login string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Username, login) || strings.EqualFold(user.Email, login) {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// UpdateUser replaces an existing user.
func (s *Storage) UpdateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	if s.userConflictLocked(user) {
		return persistence.User{}, persistence.ErrDuplicate
	}
	s.users[user.ID] = user
	return user, nil
}

// UsernameTaken reports whether another user already has username.
func (s *Storage) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, user := range s.users {
		if id != excludeID && strings.EqualFold(user.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

// EmailTaken reports whether another user already has email.
func (s *Storage) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, user := range s.users {
		if id != excludeID && strings.EqualFold(user.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Storage) userConflictLocked(candidate persistence.User) bool {
	for id, user := range s.users {
		if id == candidate.ID {
			continue
		}
		if strings.EqualFold(user.Username, candidate.Username) || strings.EqualFold(user.Email, candidate.Email) {
			return true
		}
	}
	return false
}

// --- AppointmentRepository implementation ---

// CreateAppointment stores a new appointment and assigns its ID.
func (s *Storage) CreateAppointment(ctx context.Context, appointment persistence.Appointment) (persistence.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[appointment.UserID]; !ok {
		return persistence.Appointment{}, persistence.ErrForeignKeyViolation
	}
	appointment.ID = s.allocateIDLocked()
	s.appointments[appointment.ID] = cloneAppointment(appointment)
	return cloneAppointment(appointment), nil
}

// GetAppointment retrieves an appointment by ID.
func (s *Storage) GetAppointment(ctx context.Context, id int64) (persistence.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appointment, ok := s.appointments[id]
	if !ok {
		return persistence.Appointment{}, persistence.ErrNotFound
	}
	return cloneAppointment(appointment), nil
}

// UpdateAppointment replaces an existing appointment.
func (s *Storage) UpdateAppointment(ctx context.Context, appointment persistence.Appointment) (persistence.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appointments[appointment.ID]; !ok {
		return persistence.Appointment{}, persistence.ErrNotFound
	}
	s.appointments[appointment.ID] = cloneAppointment(appointment)
	return cloneAppointment(appointment), nil
}

// DeleteAppointment removes an appointment by ID.
func (s *Storage) DeleteAppointment(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appointments[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.appointments, id)
	return nil
}

// ListAppointments returns appointments matching filter ordered by start, then ID.
func (s *Storage) ListAppointments(ctx context.Context, filter persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Appointment, 0)
	for _, appointment := range s.appointments {
		if matchesAppointmentFilter(appointment, filter) {
			out = append(out, cloneAppointment(appointment))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

// --- TaskRepository implementation ---

// CreateTask stores a new task and assigns its ID.
func (s *Storage) CreateTask(ctx context.Context, task persistence.Task) (persistence.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[task.UserID]; !ok {
		return persistence.Task{}, persistence.ErrForeignKeyViolation
	}
	task.ID = s.allocateIDLocked()
	s.tasks[task.ID] = cloneTask(task)
	return cloneTask(task), nil
}

// GetTask retrieves a task by ID.
func (s *Storage) GetTask(ctx context.Context, id int64) (persistence.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return persistence.Task{}, persistence.ErrNotFound
	}
	return cloneTask(task), nil
}

// UpdateTask replaces an existing task.
func (s *Storage) UpdateTask(ctx context.Context, task persistence.Task) (persistence.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return persistence.Task{}, persistence.ErrNotFound
	}
	s.tasks[task.ID] = cloneTask(task)
	return cloneTask(task), nil
}

// DeleteTask removes a task by ID.
func (s *Storage) DeleteTask(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// ListTasks returns tasks matching filter ordered by due date with undated tasks last.
func (s *Storage) ListTasks(ctx context.Context, filter persistence.TaskFilter) ([]persistence.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Task, 0)
	for _, task := range s.tasks {
		if matchesTaskFilter(task, filter) {
			out = append(out, cloneTask(task))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a == nil && b == nil:
			return out[i].ID < out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return out[i].ID < out[j].ID
		default:
			return a.Before(*b)
		}
	})
	return out, nil
}

// --- PreferenceRepository implementation ---

// EnsurePreferences inserts defaults when the user has no preferences yet.
func (s *Storage) EnsurePreferences(ctx context.Context, defaults persistence.NotificationPreferences) (persistence.NotificationPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.preferences[defaults.UserID]; ok {
		return clonePreferences(existing), nil
	}
	if _, ok := s.users[defaults.UserID]; !ok {
		return persistence.NotificationPreferences{}, persistence.ErrForeignKeyViolation
	}
	s.preferences[defaults.UserID] = clonePreferences(defaults)
	return clonePreferences(defaults), nil
}

// UpsertPreferences stores prefs, keeping the original creation time.
func (s *Storage) UpsertPreferences(ctx context.Context, prefs persistence.NotificationPreferences) (persistence.NotificationPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[prefs.UserID]; !ok {
		return persistence.NotificationPreferences{}, persistence.ErrForeignKeyViolation
	}
	if existing, ok := s.preferences[prefs.UserID]; ok {
		prefs.CreatedAt = existing.CreatedAt
	}
	s.preferences[prefs.UserID] = clonePreferences(prefs)
	return clonePreferences(prefs), nil
}

// ListReminderRecipients returns users with email and the given reminder kind
// enabled, ordered by user ID.
func (s *Storage) ListReminderRecipients(ctx context.Context, kind persistence.ReminderKind) ([]persistence.ReminderRecipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.ReminderRecipient, 0)
	for userID, prefs := range s.preferences {
		if !prefs.EmailNotifications {
			continue
		}
		if kind == persistence.ReminderKindAppointment && !prefs.AppointmentReminders {
			continue
		}
		if kind == persistence.ReminderKindTask && !prefs.TaskReminders {
			continue
		}
		user, ok := s.users[userID]
		if !ok {
			continue
		}
		out = append(out, persistence.ReminderRecipient{
			UserID:              userID,
			Username:            user.Username,
			Email:               user.Email,
			ReminderTimeMinutes: prefs.ReminderTimeMinutes,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func matchesAppointmentFilter(a persistence.Appointment, f persistence.AppointmentFilter) bool {
	switch {
	case f.UserID != 0 && a.UserID != f.UserID:
		return false
	case f.Status != "" && a.Status != f.Status:
		return false
	case f.ExcludeStatus != "" && a.Status == f.ExcludeStatus:
		return false
	case f.ExcludeID != 0 && a.ID == f.ExcludeID:
		return false
	case f.StartFrom != nil && a.Start.Before(*f.StartFrom):
		return false
	case f.StartTo != nil && a.Start.After(*f.StartTo):
		return false
	case f.EndTo != nil && a.End.After(*f.EndTo):
		return false
	case f.OverlapStart != nil && !a.End.After(*f.OverlapStart):
		return false
	case f.OverlapEnd != nil && !a.Start.Before(*f.OverlapEnd):
		return false
	}
	return true
}

func matchesTaskFilter(t persistence.Task, f persistence.TaskFilter) bool {
	switch {
	case f.UserID != 0 && t.UserID != f.UserID:
		return false
	case f.Status != "" && t.Status != f.Status:
		return false
	case f.Priority != "" && t.Priority != f.Priority:
		return false
	case f.Completed != nil && t.IsCompleted != *f.Completed:
		return false
	}
	if f.DueBefore == nil && f.DueFrom == nil && f.DueTo == nil {
		return true
	}
	if t.DueDate == nil {
		return false
	}
	due := *t.DueDate
	switch {
	case f.DueBefore != nil && !due.Before(*f.DueBefore):
		return false
	case f.DueFrom != nil && due.Before(*f.DueFrom):
		return false
	case f.DueTo != nil && due.After(*f.DueTo):
		return false
	}
	return true
}

func cloneAppointment(a persistence.Appointment) persistence.Appointment {
	a.Description = cloneString(a.Description)
	a.Location = cloneString(a.Location)
	return a
}

func cloneTask(t persistence.Task) persistence.Task {
	t.Description = cloneString(t.Description)
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}

func clonePreferences(p persistence.NotificationPreferences) persistence.NotificationPreferences {
	p.PushSubscription = cloneString(p.PushSubscription)
	return p
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
