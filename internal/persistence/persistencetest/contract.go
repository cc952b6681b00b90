// Package persistencetest holds behaviour checks shared by every repository
// implementation.
package persistencetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/smart-scheduler/internal/persistence"
)

// Store is the full set of repositories a backend provides.
type Store interface {
	persistence.UserRepository
	persistence.AppointmentRepository
	persistence.TaskRepository
	persistence.PreferenceRepository
}

// Factory returns an empty store for a single subtest.
type Factory func(t *testing.T) Store

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Run exercises the repository contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("appointments", func(t *testing.T) { testAppointments(t, newStore(t)) })
	t.Run("tasks", func(t *testing.T) { testTasks(t, newStore(t)) })
	t.Run("preferences", func(t *testing.T) { testPreferences(t, newStore(t)) })
}

// SeedUser stores a user whose username and email derive from name.
func SeedUser(t *testing.T, repo persistence.UserRepository, name string) persistence.User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), persistence.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		Role:         "User",
		CreatedAt:    base,
		UpdatedAt:    base,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", name, err)
	}
	return user
}

func testUsers(t *testing.T, store Store) {
	ctx := context.Background()
	alice := SeedUser(t, store, "alice")
	if alice.ID == 0 {
		t.Fatalf("expected an assigned id")
	}

	byEmail, err := store.GetUserByLogin(ctx, "ALICE@example.com")
	if err != nil || byEmail.ID != alice.ID {
		t.Fatalf("GetUserByLogin(email) = %#v, %v", byEmail, err)
	}
	byName, err := store.GetUserByLogin(ctx, "alice")
	if err != nil || byName.ID != alice.ID {
		t.Fatalf("GetUserByLogin(username) = %#v, %v", byName, err)
	}
	if _, err := store.GetUserByLogin(ctx, "nobody"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = store.CreateUser(ctx, persistence.User{Username: "alice", Email: "other@example.com", PasswordHash: "x", Role: "User", CreatedAt: base, UpdatedAt: base})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused username, got %v", err)
	}

	taken, err := store.UsernameTaken(ctx, "alice", 0)
	if err != nil || !taken {
		t.Fatalf("expected username to be taken, got %v, %v", taken, err)
	}
	taken, err = store.EmailTaken(ctx, "alice@example.com", alice.ID)
	if err != nil || taken {
		t.Fatalf("expected own email to be ignored, got %v, %v", taken, err)
	}

	alice.Username = "alice2"
	updated, err := store.UpdateUser(ctx, alice)
	if err != nil || updated.Username != "alice2" {
		t.Fatalf("UpdateUser = %#v, %v", updated, err)
	}
	if _, err := store.GetUser(ctx, 9999); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testAppointments(t *testing.T, store Store) {
	ctx := context.Background()
	owner := SeedUser(t, store, "owner")
	other := SeedUser(t, store, "other")

	mk := func(userID int64, title string, startHour, endHour int, status string) persistence.Appointment {
		t.Helper()
		rec, err := store.CreateAppointment(ctx, persistence.Appointment{
			UserID:    userID,
			Title:     title,
			Start:     base.Add(time.Duration(startHour) * time.Hour),
			End:       base.Add(time.Duration(endHour) * time.Hour),
			Status:    status,
			CreatedAt: base,
			UpdatedAt: base,
		})
		if err != nil {
			t.Fatalf("CreateAppointment(%s) failed: %v", title, err)
		}
		return rec
	}

	late := mk(owner.ID, "late", 14, 15, "Scheduled")
	early := mk(owner.ID, "early", 10, 11, "Scheduled")
	cancelled := mk(owner.ID, "cancelled", 10, 12, "Cancelled")
	mk(other.ID, "foreign", 10, 11, "Scheduled")

	all, err := store.ListAppointments(ctx, persistence.AppointmentFilter{UserID: owner.ID})
	if err != nil {
		t.Fatalf("ListAppointments failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != early.ID || all[1].ID != cancelled.ID || all[2].ID != late.ID {
		t.Fatalf("expected owner appointments ordered by start, got %#v", all)
	}

	from, to := base.Add(10*time.Hour+30*time.Minute), base.Add(11*time.Hour+30*time.Minute)
	overlapping, err := store.ListAppointments(ctx, persistence.AppointmentFilter{
		UserID:        owner.ID,
		ExcludeStatus: "Cancelled",
		OverlapStart:  &from,
		OverlapEnd:    &to,
	})
	if err != nil {
		t.Fatalf("overlap query failed: %v", err)
	}
	if len(overlapping) != 1 || overlapping[0].ID != early.ID {
		t.Fatalf("expected only the early appointment to overlap, got %#v", overlapping)
	}

	touchStart, touchEnd := base.Add(11*time.Hour), base.Add(12*time.Hour)
	touching, err := store.ListAppointments(ctx, persistence.AppointmentFilter{
		UserID:        owner.ID,
		ExcludeStatus: "Cancelled",
		OverlapStart:  &touchStart,
		OverlapEnd:    &touchEnd,
	})
	if err != nil || len(touching) != 0 {
		t.Fatalf("touching ranges must not overlap, got %#v, %v", touching, err)
	}

	windowFrom, windowTo := base.Add(14*time.Hour), base.Add(14*time.Hour)
	starting, err := store.ListAppointments(ctx, persistence.AppointmentFilter{
		UserID:    owner.ID,
		Status:    "Scheduled",
		StartFrom: &windowFrom,
		StartTo:   &windowTo,
	})
	if err != nil || len(starting) != 1 || starting[0].ID != late.ID {
		t.Fatalf("expected inclusive start bounds to match late, got %#v, %v", starting, err)
	}

	rangeFrom, rangeTo := base.Add(9*time.Hour), base.Add(12*time.Hour)
	contained, err := store.ListAppointments(ctx, persistence.AppointmentFilter{UserID: owner.ID, StartFrom: &rangeFrom, EndTo: &rangeTo})
	if err != nil || len(contained) != 2 {
		t.Fatalf("expected two appointments inside the range, got %#v, %v", contained, err)
	}

	desc := "moved"
	early.Description = &desc
	early.Status = "Approved"
	if _, err := store.UpdateAppointment(ctx, early); err != nil {
		t.Fatalf("UpdateAppointment failed: %v", err)
	}
	fetched, err := store.GetAppointment(ctx, early.ID)
	if err != nil || fetched.Status != "Approved" || fetched.Description == nil || *fetched.Description != "moved" {
		t.Fatalf("unexpected appointment after update: %#v, %v", fetched, err)
	}
	if !fetched.Start.Equal(early.Start) || !fetched.End.Equal(early.End) {
		t.Fatalf("expected times to round-trip, got %v-%v", fetched.Start, fetched.End)
	}

	if err := store.DeleteAppointment(ctx, early.ID); err != nil {
		t.Fatalf("DeleteAppointment failed: %v", err)
	}
	if _, err := store.GetAppointment(ctx, early.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteAppointment(ctx, early.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	_, err = store.CreateAppointment(ctx, persistence.Appointment{UserID: 4242, Title: "orphan", Start: base, End: base.Add(time.Hour), Status: "Scheduled", CreatedAt: base, UpdatedAt: base})
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}
}

func testTasks(t *testing.T, store Store) {
	ctx := context.Background()
	owner := SeedUser(t, store, "tasker")

	due := func(hours int) *time.Time {
		v := base.Add(time.Duration(hours) * time.Hour)
		return &v
	}
	mk := func(title string, dueDate *time.Time, priority, status string, completed bool) persistence.Task {
		t.Helper()
		rec, err := store.CreateTask(ctx, persistence.Task{
			UserID:      owner.ID,
			Title:       title,
			DueDate:     dueDate,
			Priority:    priority,
			Status:      status,
			IsCompleted: completed,
			CreatedAt:   base,
			UpdatedAt:   base,
		})
		if err != nil {
			t.Fatalf("CreateTask(%s) failed: %v", title, err)
		}
		return rec
	}

	undated := mk("undated", nil, "Low", "Pending", false)
	later := mk("later", due(48), "High", "Pending", false)
	sooner := mk("sooner", due(2), "Medium", "InProgress", false)
	done := mk("done", due(1), "Medium", "Completed", true)

	all, err := store.ListTasks(ctx, persistence.TaskFilter{UserID: owner.ID})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	wantOrder := []int64{done.ID, sooner.ID, later.ID, undated.ID}
	if len(all) != len(wantOrder) {
		t.Fatalf("expected %d tasks, got %d", len(wantOrder), len(all))
	}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Fatalf("position %d: expected task %d, got %d", i, id, all[i].ID)
		}
	}

	incomplete := false
	before := base.Add(24 * time.Hour)
	overdue, err := store.ListTasks(ctx, persistence.TaskFilter{UserID: owner.ID, Completed: &incomplete, DueBefore: &before})
	if err != nil || len(overdue) != 1 || overdue[0].ID != sooner.ID {
		t.Fatalf("expected only the incomplete dated task before the cut-off, got %#v, %v", overdue, err)
	}

	from, to := base.Add(2*time.Hour), base.Add(48*time.Hour)
	window, err := store.ListTasks(ctx, persistence.TaskFilter{UserID: owner.ID, Completed: &incomplete, DueFrom: &from, DueTo: &to})
	if err != nil || len(window) != 2 {
		t.Fatalf("expected inclusive due bounds to match two tasks, got %#v, %v", window, err)
	}

	high, err := store.ListTasks(ctx, persistence.TaskFilter{UserID: owner.ID, Priority: "High"})
	if err != nil || len(high) != 1 || high[0].ID != later.ID {
		t.Fatalf("priority filter returned %#v, %v", high, err)
	}

	undated.Status = "Completed"
	undated.IsCompleted = true
	if _, err := store.UpdateTask(ctx, undated); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	fetched, err := store.GetTask(ctx, undated.ID)
	if err != nil || !fetched.IsCompleted || fetched.DueDate != nil {
		t.Fatalf("unexpected task after update: %#v, %v", fetched, err)
	}

	if err := store.DeleteTask(ctx, later.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := store.GetTask(ctx, later.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func testPreferences(t *testing.T, store Store) {
	ctx := context.Background()
	emailOnly := SeedUser(t, store, "emailonly")
	muted := SeedUser(t, store, "muted")
	SeedUser(t, store, "never-visited")

	defaults := func(userID int64) persistence.NotificationPreferences {
		return persistence.NotificationPreferences{
			UserID:               userID,
			EmailNotifications:   true,
			PushNotifications:    true,
			AppointmentReminders: true,
			TaskReminders:        true,
			ReminderTimeMinutes:  30,
			CreatedAt:            base,
			UpdatedAt:            base,
		}
	}

	first, err := store.EnsurePreferences(ctx, defaults(emailOnly.ID))
	if err != nil || first.ReminderTimeMinutes != 30 {
		t.Fatalf("EnsurePreferences = %#v, %v", first, err)
	}

	changed := first
	changed.TaskReminders = false
	changed.ReminderTimeMinutes = 15
	changed.UpdatedAt = base.Add(time.Hour)
	if _, err := store.UpsertPreferences(ctx, changed); err != nil {
		t.Fatalf("UpsertPreferences failed: %v", err)
	}

	again, err := store.EnsurePreferences(ctx, defaults(emailOnly.ID))
	if err != nil || again.ReminderTimeMinutes != 15 || again.TaskReminders {
		t.Fatalf("EnsurePreferences must not overwrite stored values, got %#v, %v", again, err)
	}

	mutedPrefs := defaults(muted.ID)
	mutedPrefs.EmailNotifications = false
	sub := `{"endpoint":"https://push.example.com/1"}`
	mutedPrefs.PushSubscription = &sub
	if _, err := store.UpsertPreferences(ctx, mutedPrefs); err != nil {
		t.Fatalf("UpsertPreferences(insert) failed: %v", err)
	}
	stored, err := store.EnsurePreferences(ctx, defaults(muted.ID))
	if err != nil || stored.PushSubscription == nil || *stored.PushSubscription != sub {
		t.Fatalf("expected push subscription to persist, got %#v, %v", stored, err)
	}

	appointmentRecipients, err := store.ListReminderRecipients(ctx, persistence.ReminderKindAppointment)
	if err != nil {
		t.Fatalf("ListReminderRecipients failed: %v", err)
	}
	if len(appointmentRecipients) != 1 || appointmentRecipients[0].UserID != emailOnly.ID {
		t.Fatalf("expected only emailonly to receive appointment reminders, got %#v", appointmentRecipients)
	}
	if appointmentRecipients[0].Email != "emailonly@example.com" || appointmentRecipients[0].ReminderTimeMinutes != 15 {
		t.Fatalf("unexpected recipient %#v", appointmentRecipients[0])
	}

	taskRecipients, err := store.ListReminderRecipients(ctx, persistence.ReminderKindTask)
	if err != nil || len(taskRecipients) != 0 {
		t.Fatalf("expected no task recipients, got %#v, %v", taskRecipients, err)
	}
}
