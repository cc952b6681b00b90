package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/smart-scheduler/internal/persistence"
)

const preferenceColumns = `user_id, email_notifications, push_notifications, appointment_reminders, task_reminders,
	reminder_time_minutes, push_subscription, created_at, updated_at`

// PreferenceRepository implements persistence.PreferenceRepository using SQLite.
type PreferenceRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewPreferenceRepository creates a new SQLite preference repository.
func NewPreferenceRepository(pool *ConnectionPool) *PreferenceRepository {
	return &PreferenceRepository{pool: pool, mapper: NewErrorMapper()}
}

// EnsurePreferences inserts defaults when the user has no row yet and returns
// the stored row either way.
func (r *PreferenceRepository) EnsurePreferences(ctx context.Context, defaults persistence.NotificationPreferences) (persistence.NotificationPreferences, error) {
	var stored persistence.NotificationPreferences
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO notification_preferences (`+preferenceColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO NOTHING`, preferenceArgs(defaults)...); err != nil {
			return err
		}
		var err error
		stored, err = scanPreferences(tx.QueryRowContext(ctx,
			`SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = ?`, defaults.UserID))
		return err
	})
	if err != nil {
		return persistence.NotificationPreferences{}, fmt.Errorf("ensure preferences for user %d: %w", defaults.UserID, err)
	}
	return stored, nil
}

// UpsertPreferences stores prefs, keeping the original creation time.
func (r *PreferenceRepository) UpsertPreferences(ctx context.Context, prefs persistence.NotificationPreferences) (persistence.NotificationPreferences, error) {
	var stored persistence.NotificationPreferences
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO notification_preferences (`+preferenceColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				email_notifications   = excluded.email_notifications,
				push_notifications    = excluded.push_notifications,
				appointment_reminders = excluded.appointment_reminders,
				task_reminders        = excluded.task_reminders,
				reminder_time_minutes = excluded.reminder_time_minutes,
				push_subscription     = excluded.push_subscription,
				updated_at            = excluded.updated_at`, preferenceArgs(prefs)...); err != nil {
			return err
		}
		var err error
		stored, err = scanPreferences(tx.QueryRowContext(ctx,
			`SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = ?`, prefs.UserID))
		return err
	})
	if err != nil {
		return persistence.NotificationPreferences{}, fmt.Errorf("upsert preferences for user %d: %w", prefs.UserID, err)
	}
	return stored, nil
}

// ListReminderRecipients returns users with email and the given reminder kind
// enabled, ordered by user ID.
func (r *PreferenceRepository) ListReminderRecipients(ctx context.Context, kind persistence.ReminderKind) ([]persistence.ReminderRecipient, error) {
	flag := "p.appointment_reminders"
	if kind == persistence.ReminderKindTask {
		flag = "p.task_reminders"
	}

	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT u.id, u.username, u.email, p.reminder_time_minutes
		FROM notification_preferences p
		JOIN users u ON u.id = p.user_id
		WHERE p.email_notifications = 1 AND `+flag+` = 1
		ORDER BY u.id`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	out := make([]persistence.ReminderRecipient, 0)
	for rows.Next() {
		var rec persistence.ReminderRecipient
		if err := rows.Scan(&rec.UserID, &rec.Username, &rec.Email, &rec.ReminderTimeMinutes); err != nil {
			return nil, r.mapper.MapError(err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return out, nil
}

func preferenceArgs(p persistence.NotificationPreferences) []any {
	return []any{
		p.UserID, p.EmailNotifications, p.PushNotifications, p.AppointmentReminders, p.TaskReminders,
		p.ReminderTimeMinutes, nullString(p.PushSubscription), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	}
}

func scanPreferences(row scanner) (persistence.NotificationPreferences, error) {
	var (
		p                persistence.NotificationPreferences
		subscription     sql.NullString
		created, updated string
	)
	if err := row.Scan(&p.UserID, &p.EmailNotifications, &p.PushNotifications, &p.AppointmentReminders,
		&p.TaskReminders, &p.ReminderTimeMinutes, &subscription, &created, &updated); err != nil {
		return persistence.NotificationPreferences{}, err
	}
	p.PushSubscription = stringPtr(subscription)

	var err error
	if p.CreatedAt, err = parseTime(created); err != nil {
		return persistence.NotificationPreferences{}, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return persistence.NotificationPreferences{}, err
	}
	return p, nil
}
