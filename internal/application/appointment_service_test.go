package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/smart-scheduler/internal/persistence"
	"github.com/example/smart-scheduler/internal/persistence/memory"
)

var fixedNow = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func at(hour, minute int) time.Time {
	return time.Date(2025, 1, 1, hour, minute, 0, 0, time.UTC)
}

func seedUsers(t *testing.T, store *memory.Storage, names ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		user, err := store.CreateUser(context.Background(), persistence.User{
			Username:     name,
			Email:        name + "@example.com",
			PasswordHash: "hash",
			Role:         string(RoleUser),
		})
		if err != nil {
			t.Fatalf("seed user %s: %v", name, err)
		}
		ids = append(ids, user.ID)
	}
	return ids
}

type appointmentRepoStub struct {
	persistence.AppointmentRepository
	listErr error
	getErr  error
}

func (r *appointmentRepoStub) ListAppointments(ctx context.Context, filter persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	return nil, r.listErr
}

func (r *appointmentRepoStub) GetAppointment(ctx context.Context, id int64) (persistence.Appointment, error) {
	return persistence.Appointment{}, r.getErr
}

func TestAppointmentService_Create(t *testing.T) {
	t.Parallel()

	t.Run("rejects an overlap for the same owner only", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		ids := seedUsers(t, store, "owner1", "owner2")
		svc := NewAppointmentService(store, fixedClock)
		ctx := context.Background()

		existing, err := svc.Create(ctx, ids[0], AppointmentInput{Title: "Standup", Start: at(10, 0), End: at(11, 0)})
		if err != nil {
			t.Fatalf("seed appointment: %v", err)
		}
		if existing.Status != AppointmentScheduled || !existing.CreatedAt.Equal(fixedNow) {
			t.Fatalf("expected Scheduled appointment stamped with the clock, got %#v", existing)
		}

		_, err = svc.Create(ctx, ids[0], AppointmentInput{Title: "Clash", Start: at(10, 30), End: at(11, 30)})
		var cErr *ConflictError
		if !errors.As(err, &cErr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if len(cErr.Conflicts) != 1 || cErr.Conflicts[0].ID != existing.ID {
			t.Fatalf("expected the existing appointment as the only conflict, got %#v", cErr.Conflicts)
		}

		if _, err := svc.Create(ctx, ids[1], AppointmentInput{Title: "Clash", Start: at(10, 30), End: at(11, 30)}); err != nil {
			t.Fatalf("expected other owner to succeed, got %v", err)
		}
	})

	t.Run("touching endpoints do not conflict", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		ids := seedUsers(t, store, "owner")
		svc := NewAppointmentService(store, fixedClock)
		ctx := context.Background()

		if _, err := svc.Create(ctx, ids[0], AppointmentInput{Title: "A", Start: at(10, 0), End: at(11, 0)}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if _, err := svc.Create(ctx, ids[0], AppointmentInput{Title: "B", Start: at(11, 0), End: at(12, 0)}); err != nil {
			t.Fatalf("expected back-to-back appointment to succeed, got %v", err)
		}
		if _, err := svc.Create(ctx, ids[0], AppointmentInput{Title: "C", Start: at(9, 0), End: at(10, 0)}); err != nil {
			t.Fatalf("expected appointment ending at the next start to succeed, got %v", err)
		}
	})

	t.Run("cancelled appointments never block", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		ids := seedUsers(t, store, "owner")
		svc := NewAppointmentService(store, fixedClock)
		ctx := context.Background()

		first, err := svc.Create(ctx, ids[0], AppointmentInput{Title: "A", Start: at(10, 0), End: at(11, 0)})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		if _, err := svc.SetStatus(ctx, Principal{UserID: 99, Role: RoleAdmin}, first.ID, AppointmentCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if _, err := svc.Create(ctx, ids[0], AppointmentInput{Title: "B", Start: at(10, 0), End: at(11, 0)}); err != nil {
			t.Fatalf("expected cancelled slot to be free, got %v", err)
		}
	})

	t.Run("rejects end not after start", func(t *testing.T) {
		t.Parallel()
		svc := NewAppointmentService(memory.New(), fixedClock)

		for _, end := range []time.Time{at(10, 0), at(9, 0)} {
			_, err := svc.Create(context.Background(), 1, AppointmentInput{Title: "Bad", Start: at(10, 0), End: end})
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError for end %v, got %v", end, err)
			}
			if _, ok := vErr.FieldErrors["end"]; !ok {
				t.Fatalf("expected end field error, got %v", vErr.FieldErrors)
			}
		}
	})

	t.Run("validates field limits", func(t *testing.T) {
		t.Parallel()
		svc := NewAppointmentService(memory.New(), fixedClock)
		long := string(make([]rune, 201))
		_, err := svc.Create(context.Background(), 1, AppointmentInput{Title: "  ", Location: &long, Start: at(10, 0), End: at(11, 0)})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"title", "location"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s field error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("allows start times in the past", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		ids := seedUsers(t, store, "owner")
		svc := NewAppointmentService(store, fixedClock)

		past := fixedNow.Add(-72 * time.Hour)
		if _, err := svc.Create(context.Background(), ids[0], AppointmentInput{Title: "Backfill", Start: past, End: past.Add(time.Hour)}); err != nil {
			t.Fatalf("expected backfilled appointment to succeed, got %v", err)
		}
	})

	t.Run("surfaces storage failures", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("database is locked")
		svc := NewAppointmentService(&appointmentRepoStub{listErr: boom}, fixedClock)

		_, err := svc.Create(context.Background(), 1, AppointmentInput{Title: "A", Start: at(10, 0), End: at(11, 0)})
		if !errors.Is(err, boom) {
			t.Fatalf("expected storage error, got %v", err)
		}
	})
}

func TestAppointmentService_Update(t *testing.T) {
	t.Parallel()

	newFixture := func(t *testing.T) (*AppointmentService, []int64, Appointment) {
		t.Helper()
		store := memory.New()
		ids := seedUsers(t, store, "owner", "intruder")
		svc := NewAppointmentService(store, fixedClock)
		appt, err := svc.Create(context.Background(), ids[0], AppointmentInput{Title: "Review", Start: at(10, 0), End: at(11, 0)})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		return svc, ids, appt
	}

	t.Run("does not conflict with itself", func(t *testing.T) {
		t.Parallel()
		svc, ids, appt := newFixture(t)

		updated, err := svc.Update(context.Background(), appt.ID, ids[0], AppointmentUpdate{
			AppointmentInput: AppointmentInput{Title: "Review", Start: at(11, 0), End: at(12, 0)},
		})
		if err != nil {
			t.Fatalf("expected move to succeed, got %v", err)
		}
		if !updated.Start.Equal(at(11, 0)) || updated.Status != AppointmentScheduled {
			t.Fatalf("unexpected appointment after update: %#v", updated)
		}

		if _, err := svc.Update(context.Background(), appt.ID, ids[0], AppointmentUpdate{
			AppointmentInput: AppointmentInput{Title: "Review", Start: at(11, 30), End: at(12, 30)},
			Status:           AppointmentApproved,
		}); err != nil {
			t.Fatalf("expected overlap with its own previous range to succeed, got %v", err)
		}
	})

	t.Run("rejects overlap with another appointment", func(t *testing.T) {
		t.Parallel()
		svc, ids, appt := newFixture(t)
		if _, err := svc.Create(context.Background(), ids[0], AppointmentInput{Title: "Lunch", Start: at(12, 0), End: at(13, 0)}); err != nil {
			t.Fatalf("seed: %v", err)
		}

		_, err := svc.Update(context.Background(), appt.ID, ids[0], AppointmentUpdate{
			AppointmentInput: AppointmentInput{Title: "Review", Start: at(11, 30), End: at(12, 30)},
		})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("enforces ownership", func(t *testing.T) {
		t.Parallel()
		svc, ids, appt := newFixture(t)

		_, err := svc.Update(context.Background(), appt.ID, ids[1], AppointmentUpdate{
			AppointmentInput: AppointmentInput{Title: "Hijack", Start: at(10, 0), End: at(11, 0)},
		})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if err := svc.Delete(context.Background(), appt.ID, ids[1]); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden on delete, got %v", err)
		}
	})

	t.Run("reports missing appointments", func(t *testing.T) {
		t.Parallel()
		svc, ids, _ := newFixture(t)

		_, err := svc.Update(context.Background(), 777, ids[0], AppointmentUpdate{
			AppointmentInput: AppointmentInput{Title: "Ghost", Start: at(10, 0), End: at(11, 0)},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		t.Parallel()
		svc, ids, appt := newFixture(t)

		_, err := svc.Update(context.Background(), appt.ID, ids[0], AppointmentUpdate{
			AppointmentInput: AppointmentInput{Title: "Review", Start: at(10, 0), End: at(11, 0)},
			Status:           AppointmentStatus("Postponed"),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["status"] == "" {
			t.Fatalf("expected status validation error, got %v", err)
		}
	})
}

func TestAppointmentService_Delete(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ids := seedUsers(t, store, "owner")
	svc := NewAppointmentService(store, fixedClock)
	ctx := context.Background()

	appt, err := svc.Create(ctx, ids[0], AppointmentInput{Title: "Temp", Start: at(10, 0), End: at(11, 0)})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.Delete(ctx, appt.ID, ids[0]); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := svc.Get(ctx, appt.ID, ids[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, appt.ID, ids[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeated delete, got %v", err)
	}
}

func TestAppointmentService_SetStatus(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ids := seedUsers(t, store, "owner")
	svc := NewAppointmentService(store, fixedClock)
	ctx := context.Background()
	admin := Principal{UserID: 1000, Role: RoleAdmin}

	a, err := svc.Create(ctx, ids[0], AppointmentInput{Title: "A", Start: at(10, 0), End: at(11, 0)})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.SetStatus(ctx, Principal{UserID: ids[0], Role: RoleUser}, a.ID, AppointmentApproved); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin, got %v", err)
	}

	// Completed and Cancelled remain settable by an administrator.
	for _, status := range []AppointmentStatus{AppointmentCancelled, AppointmentScheduled, AppointmentCompleted, AppointmentApproved} {
		updated, err := svc.SetStatus(ctx, admin, a.ID, status)
		if err != nil {
			t.Fatalf("SetStatus(%s) returned error: %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("expected status %s, got %s", status, updated.Status)
		}
	}

	if _, err := svc.SetStatus(ctx, admin, 4040, AppointmentApproved); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppointmentService_ListConflicts(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ids := seedUsers(t, store, "owner")
	svc := NewAppointmentService(store, fixedClock)
	ctx := context.Background()

	a, err := svc.Create(ctx, ids[0], AppointmentInput{Title: "A", Start: at(10, 0), End: at(11, 0)})
	if err != nil {
		t.Fatalf("seed a: %v", err)
	}
	b, err := svc.Create(ctx, ids[0], AppointmentInput{Title: "B", Start: at(11, 0), End: at(12, 0)})
	if err != nil {
		t.Fatalf("seed b: %v", err)
	}

	conflicts, err := svc.ListConflicts(ctx, ids[0], at(10, 30), at(11, 30), 0)
	if err != nil {
		t.Fatalf("ListConflicts returned error: %v", err)
	}
	if len(conflicts) != 2 || conflicts[0].ID != a.ID || conflicts[1].ID != b.ID {
		t.Fatalf("expected both appointments in start order, got %#v", conflicts)
	}

	conflicts, err = svc.ListConflicts(ctx, ids[0], at(10, 30), at(11, 30), a.ID)
	if err != nil || len(conflicts) != 1 || conflicts[0].ID != b.ID {
		t.Fatalf("expected excluded id to be skipped, got %#v, %v", conflicts, err)
	}

	has, err := svc.HasConflict(ctx, ids[0], at(12, 0), at(13, 0), 0)
	if err != nil || has {
		t.Fatalf("expected no conflict after the last appointment, got %v, %v", has, err)
	}

	if _, err := svc.ListConflicts(ctx, ids[0], at(12, 0), at(11, 0), 0); err == nil {
		t.Fatalf("expected inverted range to be rejected")
	}
}

func TestAppointmentService_Listings(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ids := seedUsers(t, store, "owner", "other")
	svc := NewAppointmentService(store, fixedClock)
	ctx := context.Background()

	late, err := svc.Create(ctx, ids[0], AppointmentInput{Title: "Late", Start: at(15, 0), End: at(16, 0)})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	early, err := svc.Create(ctx, ids[0], AppointmentInput{Title: "Early", Start: at(9, 0), End: at(10, 0)})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Create(ctx, ids[1], AppointmentInput{Title: "Foreign", Start: at(9, 0), End: at(10, 0)}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	mine, err := svc.ListByOwner(ctx, ids[0])
	if err != nil || len(mine) != 2 || mine[0].ID != early.ID || mine[1].ID != late.ID {
		t.Fatalf("expected own appointments ordered by start, got %#v, %v", mine, err)
	}

	ranged, err := svc.ListByDateRange(ctx, ids[0], at(8, 0), at(12, 0))
	if err != nil || len(ranged) != 1 || ranged[0].ID != early.ID {
		t.Fatalf("expected only the early appointment in range, got %#v, %v", ranged, err)
	}

	scheduled, err := svc.ListByStatus(ctx, ids[0], AppointmentScheduled)
	if err != nil || len(scheduled) != 2 {
		t.Fatalf("expected two scheduled appointments, got %#v, %v", scheduled, err)
	}

	if _, err := svc.ListAll(ctx, Principal{UserID: ids[0], Role: RoleUser}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin ListAll, got %v", err)
	}
	all, err := svc.ListAll(ctx, Principal{UserID: 1, Role: RoleAdmin})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected every appointment for admin, got %#v, %v", all, err)
	}

	if _, err := svc.Get(ctx, late.ID, ids[1]); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign Get, got %v", err)
	}
}
