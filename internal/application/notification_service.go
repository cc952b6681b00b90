package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/persistence"
)

const (
	// DefaultReminderMinutes is the lead time given to users who never changed it.
	DefaultReminderMinutes = 30
	// MaxReminderMinutes caps the lead time at one week.
	MaxReminderMinutes = 7 * 24 * 60
)

// NotificationService manages per-user notification preferences.
type NotificationService struct {
	prefs  persistence.PreferenceRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewNotificationService wires dependencies for preference operations.
func NewNotificationService(prefs persistence.PreferenceRepository, now func() time.Time) *NotificationService {
	return NewNotificationServiceWithLogger(prefs, now, nil)
}

// NewNotificationServiceWithLogger wires dependencies with a specified logger.
func NewNotificationServiceWithLogger(prefs persistence.PreferenceRepository, now func() time.Time, logger *slog.Logger) *NotificationService {
	if now == nil {
		now = time.Now
	}
	return &NotificationService{prefs: prefs, now: now, logger: defaultLogger(logger)}
}

func (s *NotificationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NotificationService", operation, attrs...)
}

func (s *NotificationService) ready() error {
	if s == nil {
		return fmt.Errorf("NotificationService is nil")
	}
	if s.prefs == nil {
		return fmt.Errorf("preference repository not configured")
	}
	return nil
}

// DefaultPreferences returns the preferences a user starts with.
func DefaultPreferences(userID int64, now time.Time) NotificationPreferences {
	return NotificationPreferences{
		UserID:               userID,
		EmailNotifications:   true,
		PushNotifications:    true,
		AppointmentReminders: true,
		TaskReminders:        true,
		ReminderTimeMinutes:  DefaultReminderMinutes,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// GetPreferences returns the user's preferences, creating the defaults on first access.
func (s *NotificationService) GetPreferences(ctx context.Context, userID int64) (prefs NotificationPreferences, err error) {
	if err = s.ready(); err != nil {
		return
	}

	var rec persistence.NotificationPreferences
	rec, err = s.prefs.EnsurePreferences(ctx, preferencesToRecord(DefaultPreferences(userID, s.now().UTC())))
	if err != nil {
		err = mapRepoError(err)
		logFailure(ctx, s.loggerWith(ctx, "GetPreferences", "user_id", userID), "failed to load preferences", err)
		return
	}
	prefs = preferencesFromRecord(rec)
	return
}

// UpdatePreferences replaces the user's flags and lead time. A stored push
// subscription is kept.
func (s *NotificationService) UpdatePreferences(ctx context.Context, userID int64, input PreferencesInput) (prefs NotificationPreferences, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdatePreferences", "user_id", userID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update preferences", err)
			return
		}
		logger.With("reminder_minutes", prefs.ReminderTimeMinutes).InfoContext(ctx, "preferences updated")
	}()

	if input.ReminderTimeMinutes < 0 || input.ReminderTimeMinutes > MaxReminderMinutes {
		err = NewValidationError("reminderTimeMinutes", fmt.Sprintf("reminder time must be between 0 and %d minutes", MaxReminderMinutes))
		return
	}

	if prefs, err = s.GetPreferences(ctx, userID); err != nil {
		return
	}
	prefs.EmailNotifications = input.EmailNotifications
	prefs.PushNotifications = input.PushNotifications
	prefs.AppointmentReminders = input.AppointmentReminders
	prefs.TaskReminders = input.TaskReminders
	prefs.ReminderTimeMinutes = input.ReminderTimeMinutes
	prefs.UpdatedAt = s.now().UTC()

	prefs, err = s.upsert(ctx, prefs)
	return
}

// SavePushSubscription stores the browser push subscription payload verbatim.
func (s *NotificationService) SavePushSubscription(ctx context.Context, userID int64, payload string) (prefs NotificationPreferences, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "SavePushSubscription", "user_id", userID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to save push subscription", err)
			return
		}
		logger.InfoContext(ctx, "push subscription saved")
	}()

	trimmed := strings.TrimSpace(payload)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		err = NewValidationError("subscription", "subscription must be a JSON document")
		return
	}

	if prefs, err = s.GetPreferences(ctx, userID); err != nil {
		return
	}
	prefs.PushSubscription = &trimmed
	prefs.UpdatedAt = s.now().UTC()

	prefs, err = s.upsert(ctx, prefs)
	return
}

// ListReminderRecipients returns users with email notifications and the given
// reminder kind enabled.
func (s *NotificationService) ListReminderRecipients(ctx context.Context, kind ReminderKind) ([]ReminderRecipient, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var repoKind persistence.ReminderKind
	switch kind {
	case ReminderAppointments:
		repoKind = persistence.ReminderKindAppointment
	case ReminderTasks:
		repoKind = persistence.ReminderKindTask
	default:
		return nil, fmt.Errorf("unknown reminder kind %q", kind)
	}

	recs, err := s.prefs.ListReminderRecipients(ctx, repoKind)
	if err != nil {
		err = mapRepoError(err)
		logFailure(ctx, s.loggerWith(ctx, "ListReminderRecipients", "kind", kind), "failed to list reminder recipients", err)
		return nil, err
	}

	out := make([]ReminderRecipient, 0, len(recs))
	for _, rec := range recs {
		out = append(out, ReminderRecipient{
			UserID:   rec.UserID,
			Username: rec.Username,
			Email:    rec.Email,
			LeadTime: time.Duration(rec.ReminderTimeMinutes) * time.Minute,
		})
	}
	return out, nil
}

func (s *NotificationService) upsert(ctx context.Context, prefs NotificationPreferences) (NotificationPreferences, error) {
	rec, err := s.prefs.UpsertPreferences(ctx, preferencesToRecord(prefs))
	if err != nil {
		return NotificationPreferences{}, mapRepoError(err)
	}
	return preferencesFromRecord(rec), nil
}
