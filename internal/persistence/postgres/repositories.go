package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/example/smart-scheduler/internal/persistence"
)

const (
	userColumns        = `id, username, email, password_hash, role, created_at, updated_at`
	appointmentColumns = `id, user_id, title, description, start_time, end_time, location, status, created_at, updated_at`
	taskColumns        = `id, user_id, title, description, due_date, priority, status, is_completed, created_at, updated_at`
	preferenceColumns  = `user_id, email_notifications, push_notifications, appointment_reminders, task_reminders,
		reminder_time_minutes, push_subscription, created_at, updated_at`
)

// CreateUser inserts a new user and returns it with its assigned ID.
func (s *Store) CreateUser(ctx context.Context, u persistence.User) (persistence.User, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		u.Username, u.Email, u.PasswordHash, u.Role, utc(u.CreatedAt), utc(u.UpdatedAt)).Scan(&u.ID)
	if err != nil {
		return persistence.User{}, fmt.Errorf("insert user: %w", mapError(err))
	}
	return u, nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (persistence.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserByLogin retrieves a user by username or email, ignoring case.
func (s *Store) GetUserByLogin(ctx context.Context, login string) (persistence.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE lower(username) = lower($1) OR lower(email) = lower($1)
		ORDER BY id LIMIT 1`, login))
}

// UpdateUser replaces the mutable columns of an existing user.
func (s *Store) UpdateUser(ctx context.Context, u persistence.User) (persistence.User, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET username = $1, email = $2, password_hash = $3, role = $4, updated_at = $5
		WHERE id = $6`,
		u.Username, u.Email, u.PasswordHash, u.Role, utc(u.UpdatedAt), u.ID)
	if err != nil {
		return persistence.User{}, fmt.Errorf("update user %d: %w", u.ID, mapError(err))
	}
	if err := requireAffected(tag); err != nil {
		return persistence.User{}, err
	}
	return u, nil
}

// UsernameTaken reports whether another user already has username.
func (s *Store) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = lower($1) AND id <> $2)`, username, excludeID)
}

// EmailTaken reports whether another user already has email.
func (s *Store) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) AND id <> $2)`, email, excludeID)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, mapError(err)
	}
	return found, nil
}

func scanUser(row pgx.Row) (persistence.User, error) {
	var u persistence.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return persistence.User{}, mapError(err)
	}
	u.CreatedAt, u.UpdatedAt = utc(u.CreatedAt), utc(u.UpdatedAt)
	return u, nil
}

// CreateAppointment inserts an appointment and returns it with its assigned ID.
func (s *Store) CreateAppointment(ctx context.Context, a persistence.Appointment) (persistence.Appointment, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO appointments (user_id, title, description, start_time, end_time, location, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		a.UserID, a.Title, a.Description, utc(a.Start), utc(a.End), a.Location, a.Status,
		utc(a.CreatedAt), utc(a.UpdatedAt)).Scan(&a.ID)
	if err != nil {
		return persistence.Appointment{}, fmt.Errorf("insert appointment: %w", mapError(err))
	}
	return a, nil
}

// GetAppointment retrieves an appointment by ID.
func (s *Store) GetAppointment(ctx context.Context, id int64) (persistence.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return persistence.Appointment{}, mapError(err)
	}
	return a, nil
}

// UpdateAppointment replaces the mutable columns of an appointment.
func (s *Store) UpdateAppointment(ctx context.Context, a persistence.Appointment) (persistence.Appointment, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments
		SET title = $1, description = $2, start_time = $3, end_time = $4, location = $5, status = $6, updated_at = $7
		WHERE id = $8`,
		a.Title, a.Description, utc(a.Start), utc(a.End), a.Location, a.Status, utc(a.UpdatedAt), a.ID)
	if err != nil {
		return persistence.Appointment{}, fmt.Errorf("update appointment %d: %w", a.ID, mapError(err))
	}
	if err := requireAffected(tag); err != nil {
		return persistence.Appointment{}, err
	}
	return a, nil
}

// DeleteAppointment removes an appointment by ID.
func (s *Store) DeleteAppointment(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment %d: %w", id, mapError(err))
	}
	return requireAffected(tag)
}

// ListAppointments returns appointments matching filter ordered by start, then ID.
func (s *Store) ListAppointments(ctx context.Context, f persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	var c conditions
	if f.UserID != 0 {
		c.add("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		c.add("status = ?", f.Status)
	}
	if f.ExcludeStatus != "" {
		c.add("status <> ?", f.ExcludeStatus)
	}
	if f.ExcludeID != 0 {
		c.add("id <> ?", f.ExcludeID)
	}
	if f.StartFrom != nil {
		c.add("start_time >= ?", utc(*f.StartFrom))
	}
	if f.StartTo != nil {
		c.add("start_time <= ?", utc(*f.StartTo))
	}
	if f.EndTo != nil {
		c.add("end_time <= ?", utc(*f.EndTo))
	}
	if f.OverlapStart != nil {
		c.add("end_time > ?", utc(*f.OverlapStart))
	}
	if f.OverlapEnd != nil {
		c.add("start_time < ?", utc(*f.OverlapEnd))
	}

	rows, err := s.pool.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments`+c.where()+` ORDER BY start_time, id`, c.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]persistence.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, mapError(rows.Err())
}

func scanAppointment(row pgx.Row) (persistence.Appointment, error) {
	var a persistence.Appointment
	if err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.Description, &a.Start, &a.End, &a.Location, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return persistence.Appointment{}, err
	}
	a.Start, a.End = utc(a.Start), utc(a.End)
	a.CreatedAt, a.UpdatedAt = utc(a.CreatedAt), utc(a.UpdatedAt)
	return a, nil
}

// CreateTask inserts a task and returns it with its assigned ID.
func (s *Store) CreateTask(ctx context.Context, t persistence.Task) (persistence.Task, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (user_id, title, description, due_date, priority, status, is_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		t.UserID, t.Title, t.Description, utcPtr(t.DueDate), t.Priority, t.Status, t.IsCompleted,
		utc(t.CreatedAt), utc(t.UpdatedAt)).Scan(&t.ID)
	if err != nil {
		return persistence.Task{}, fmt.Errorf("insert task: %w", mapError(err))
	}
	return t, nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id int64) (persistence.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return persistence.Task{}, mapError(err)
	}
	return t, nil
}

// UpdateTask replaces the mutable columns of a task.
func (s *Store) UpdateTask(ctx context.Context, t persistence.Task) (persistence.Task, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, due_date = $3, priority = $4, status = $5, is_completed = $6, updated_at = $7
		WHERE id = $8`,
		t.Title, t.Description, utcPtr(t.DueDate), t.Priority, t.Status, t.IsCompleted, utc(t.UpdatedAt), t.ID)
	if err != nil {
		return persistence.Task{}, fmt.Errorf("update task %d: %w", t.ID, mapError(err))
	}
	if err := requireAffected(tag); err != nil {
		return persistence.Task{}, err
	}
	return t, nil
}

// DeleteTask removes a task by ID.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, mapError(err))
	}
	return requireAffected(tag)
}

// ListTasks returns tasks matching filter ordered by due date (undated last), then ID.
func (s *Store) ListTasks(ctx context.Context, f persistence.TaskFilter) ([]persistence.Task, error) {
	var c conditions
	if f.UserID != 0 {
		c.add("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		c.add("status = ?", f.Status)
	}
	if f.Priority != "" {
		c.add("priority = ?", f.Priority)
	}
	if f.Completed != nil {
		c.add("is_completed = ?", *f.Completed)
	}
	if f.DueBefore != nil {
		c.add("due_date < ?", utc(*f.DueBefore))
	}
	if f.DueFrom != nil {
		c.add("due_date >= ?", utc(*f.DueFrom))
	}
	if f.DueTo != nil {
		c.add("due_date <= ?", utc(*f.DueTo))
	}

	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks`+c.where()+` ORDER BY due_date ASC NULLS LAST, id`, c.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]persistence.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, mapError(rows.Err())
}

func scanTask(row pgx.Row) (persistence.Task, error) {
	var t persistence.Task
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Status, &t.IsCompleted, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return persistence.Task{}, err
	}
	t.DueDate = utcPtr(t.DueDate)
	t.CreatedAt, t.UpdatedAt = utc(t.CreatedAt), utc(t.UpdatedAt)
	return t, nil
}

// EnsurePreferences inserts defaults when the user has no row yet and returns
// the stored row either way.
func (s *Store) EnsurePreferences(ctx context.Context, d persistence.NotificationPreferences) (persistence.NotificationPreferences, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_preferences (`+preferenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO NOTHING`, preferenceArgs(d)...)
	if err != nil {
		return persistence.NotificationPreferences{}, fmt.Errorf("ensure preferences for user %d: %w", d.UserID, mapError(err))
	}
	return s.getPreferences(ctx, d.UserID)
}

// UpsertPreferences stores prefs, keeping the original creation time.
func (s *Store) UpsertPreferences(ctx context.Context, p persistence.NotificationPreferences) (persistence.NotificationPreferences, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_preferences (`+preferenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			email_notifications   = EXCLUDED.email_notifications,
			push_notifications    = EXCLUDED.push_notifications,
			appointment_reminders = EXCLUDED.appointment_reminders,
			task_reminders        = EXCLUDED.task_reminders,
			reminder_time_minutes = EXCLUDED.reminder_time_minutes,
			push_subscription     = EXCLUDED.push_subscription,
			updated_at            = EXCLUDED.updated_at`, preferenceArgs(p)...)
	if err != nil {
		return persistence.NotificationPreferences{}, fmt.Errorf("upsert preferences for user %d: %w", p.UserID, mapError(err))
	}
	return s.getPreferences(ctx, p.UserID)
}

func (s *Store) getPreferences(ctx context.Context, userID int64) (persistence.NotificationPreferences, error) {
	var p persistence.NotificationPreferences
	err := s.pool.QueryRow(ctx, `SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = $1`, userID).Scan(
		&p.UserID, &p.EmailNotifications, &p.PushNotifications, &p.AppointmentReminders, &p.TaskReminders,
		&p.ReminderTimeMinutes, &p.PushSubscription, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return persistence.NotificationPreferences{}, mapError(err)
	}
	p.CreatedAt, p.UpdatedAt = utc(p.CreatedAt), utc(p.UpdatedAt)
	return p, nil
}

// ListReminderRecipients returns users with email and the given reminder kind
// enabled, ordered by user ID.
func (s *Store) ListReminderRecipients(ctx context.Context, kind persistence.ReminderKind) ([]persistence.ReminderRecipient, error) {
	flag := "p.appointment_reminders"
	if kind == persistence.ReminderKindTask {
		flag = "p.task_reminders"
	}
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.username, u.email, p.reminder_time_minutes
		FROM notification_preferences p
		JOIN users u ON u.id = p.user_id
		WHERE p.email_notifications AND `+flag+`
		ORDER BY u.id`)
	if err != nil {
		return nil, mapError(err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (persistence.ReminderRecipient, error) {
		var rec persistence.ReminderRecipient
		err := row.Scan(&rec.UserID, &rec.Username, &rec.Email, &rec.ReminderTimeMinutes)
		return rec, err
	})
}

func preferenceArgs(p persistence.NotificationPreferences) []any {
	return []any{
		p.UserID, p.EmailNotifications, p.PushNotifications, p.AppointmentReminders, p.TaskReminders,
		p.ReminderTimeMinutes, p.PushSubscription, utc(p.CreatedAt), utc(p.UpdatedAt),
	}
}
