package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/smart-scheduler/internal/persistence"
	"github.com/example/smart-scheduler/internal/persistence/memory"
)

func timePtr(t time.Time) *time.Time { return &t }

// seedTask writes a task straight to storage so tests can place due dates in the past.
func seedTask(t *testing.T, store *memory.Storage, ownerID int64, title string, due *time.Time, status TaskStatus) Task {
	t.Helper()
	rec, err := store.CreateTask(context.Background(), persistence.Task{
		UserID:      ownerID,
		Title:       title,
		DueDate:     due,
		Priority:    string(PriorityMedium),
		Status:      string(status),
		IsCompleted: status == TaskCompleted,
	})
	if err != nil {
		t.Fatalf("seed task %s: %v", title, err)
	}
	return taskFromRecord(rec)
}

func TestTaskService_Create(t *testing.T) {
	t.Parallel()

	t.Run("stores a pending task with default priority", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		ids := seedUsers(t, store, "owner")
		svc := NewTaskService(store, fixedClock)

		task, err := svc.Create(context.Background(), ids[0], TaskInput{Title: " Write report ", DueDate: timePtr(fixedNow.Add(time.Hour))})
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		if task.Status != TaskPending || task.IsCompleted || task.Priority != PriorityMedium || task.Title != "Write report" {
			t.Fatalf("unexpected task %#v", task)
		}
	})

	t.Run("rejects a due date in the past", func(t *testing.T) {
		t.Parallel()
		svc := NewTaskService(memory.New(), fixedClock)

		_, err := svc.Create(context.Background(), 1, TaskInput{Title: "Late", DueDate: timePtr(fixedNow.Add(-time.Minute))})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["dueDate"] == "" {
			t.Fatalf("expected dueDate validation error, got %v", err)
		}
	})

	t.Run("rejects unknown priority", func(t *testing.T) {
		t.Parallel()
		svc := NewTaskService(memory.New(), fixedClock)

		_, err := svc.Create(context.Background(), 1, TaskInput{Title: "Odd", Priority: TaskPriority("Urgent")})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["priority"] == "" {
			t.Fatalf("expected priority validation error, got %v", err)
		}
	})
}

func TestTaskService_Update(t *testing.T) {
	t.Parallel()

	t.Run("completed status forces the completion flag", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		ids := seedUsers(t, store, "owner")
		svc := NewTaskService(store, fixedClock)
		task := seedTask(t, store, ids[0], "Report", nil, TaskPending)

		updated, err := svc.Update(context.Background(), task.ID, ids[0], TaskUpdate{
			TaskInput:   TaskInput{Title: "Report", Priority: PriorityHigh},
			Status:      TaskCompleted,
			IsCompleted: false,
		})
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if updated.Status != TaskCompleted || !updated.IsCompleted {
			t.Fatalf("expected Completed with flag set, got %#v", updated)
		}
	})

	t.Run("non-completed status clears the flag", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		ids := seedUsers(t, store, "owner")
		svc := NewTaskService(store, fixedClock)
		task := seedTask(t, store, ids[0], "Report", nil, TaskCompleted)

		updated, err := svc.Update(context.Background(), task.ID, ids[0], TaskUpdate{
			TaskInput:   TaskInput{Title: "Report"},
			Status:      TaskInProgress,
			IsCompleted: true,
		})
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if updated.Status != TaskInProgress || updated.IsCompleted {
			t.Fatalf("expected InProgress without flag, got %#v", updated)
		}
	})

	t.Run("empty status follows the completion flag", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		ids := seedUsers(t, store, "owner")
		svc := NewTaskService(store, fixedClock)
		task := seedTask(t, store, ids[0], "Report", nil, TaskInProgress)

		updated, err := svc.Update(context.Background(), task.ID, ids[0], TaskUpdate{TaskInput: TaskInput{Title: "Report"}, IsCompleted: true})
		if err != nil || updated.Status != TaskCompleted || !updated.IsCompleted {
			t.Fatalf("expected completion via flag, got %#v, %v", updated, err)
		}

		reopened, err := svc.Update(context.Background(), task.ID, ids[0], TaskUpdate{TaskInput: TaskInput{Title: "Report"}})
		if err != nil || reopened.Status != TaskPending || reopened.IsCompleted {
			t.Fatalf("expected reopened task, got %#v, %v", reopened, err)
		}
	})

	t.Run("overdue tasks stay editable", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		ids := seedUsers(t, store, "owner")
		svc := NewTaskService(store, fixedClock)
		past := fixedNow.Add(-72 * time.Hour)
		task := seedTask(t, store, ids[0], "Old", &past, TaskPending)

		if _, err := svc.Update(context.Background(), task.ID, ids[0], TaskUpdate{
			TaskInput: TaskInput{Title: "Old but renamed", DueDate: &past},
			Status:    TaskPending,
		}); err != nil {
			t.Fatalf("expected edit of overdue task to succeed, got %v", err)
		}
	})

	t.Run("enforces ownership", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		ids := seedUsers(t, store, "owner", "intruder")
		svc := NewTaskService(store, fixedClock)
		task := seedTask(t, store, ids[0], "Mine", nil, TaskPending)

		_, err := svc.Update(context.Background(), task.ID, ids[1], TaskUpdate{TaskInput: TaskInput{Title: "Theirs"}, Status: TaskPending})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if _, err := svc.MarkComplete(context.Background(), task.ID, ids[1]); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden on MarkComplete, got %v", err)
		}
		if err := svc.Delete(context.Background(), task.ID, ids[1]); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden on Delete, got %v", err)
		}
	})
}

func TestTaskService_MarkCompleteIsIdempotent(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ids := seedUsers(t, store, "owner")
	svc := NewTaskService(store, fixedClock)
	task := seedTask(t, store, ids[0], "Chores", nil, TaskInProgress)

	for i := 0; i < 2; i++ {
		done, err := svc.MarkComplete(context.Background(), task.ID, ids[0])
		if err != nil {
			t.Fatalf("call %d: MarkComplete returned error: %v", i+1, err)
		}
		if done.Status != TaskCompleted || !done.IsCompleted {
			t.Fatalf("call %d: expected Completed with flag, got %#v", i+1, done)
		}
	}
}

func TestTaskService_ListOverdue(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ids := seedUsers(t, store, "owner", "other")
	svc := NewTaskService(store, fixedClock)
	ctx := context.Background()

	threeDaysAgo := fixedNow.Add(-72 * time.Hour)
	overdue := seedTask(t, store, ids[0], "Overdue", &threeDaysAgo, TaskPending)
	seedTask(t, store, ids[0], "Done", &threeDaysAgo, TaskCompleted)
	seedTask(t, store, ids[0], "Undated", nil, TaskPending)
	seedTask(t, store, ids[0], "Future", timePtr(fixedNow.Add(time.Hour)), TaskPending)
	seedTask(t, store, ids[1], "Foreign", &threeDaysAgo, TaskPending)

	got, err := svc.ListOverdue(ctx, ids[0])
	if err != nil {
		t.Fatalf("ListOverdue returned error: %v", err)
	}
	if len(got) != 1 || got[0].ID != overdue.ID {
		t.Fatalf("expected only the overdue task, got %#v", got)
	}
	for _, task := range got {
		if task.IsCompleted || task.DueDate == nil {
			t.Fatalf("overdue listing returned %#v", task)
		}
	}

	if _, err := svc.MarkComplete(ctx, overdue.ID, ids[0]); err != nil {
		t.Fatalf("MarkComplete returned error: %v", err)
	}
	got, err = svc.ListOverdue(ctx, ids[0])
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no overdue tasks after completion, got %#v, %v", got, err)
	}
}

func TestTaskService_SetStatus(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ids := seedUsers(t, store, "owner")
	svc := NewTaskService(store, fixedClock)
	admin := Principal{UserID: 500, Role: RoleAdmin}
	task := seedTask(t, store, ids[0], "Audit", nil, TaskPending)

	if _, err := svc.SetStatus(context.Background(), Principal{UserID: ids[0], Role: RoleUser}, task.ID, TaskCompleted); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	done, err := svc.SetStatus(context.Background(), admin, task.ID, TaskCompleted)
	if err != nil || !done.IsCompleted {
		t.Fatalf("expected completion flag after admin Completed, got %#v, %v", done, err)
	}
	reopened, err := svc.SetStatus(context.Background(), admin, task.ID, TaskInProgress)
	if err != nil || reopened.IsCompleted {
		t.Fatalf("expected flag cleared after admin InProgress, got %#v, %v", reopened, err)
	}
}

func TestTaskService_Listings(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ids := seedUsers(t, store, "owner")
	svc := NewTaskService(store, fixedClock)
	ctx := context.Background()

	high, err := svc.Create(ctx, ids[0], TaskInput{Title: "High", Priority: PriorityHigh, DueDate: timePtr(fixedNow.Add(2 * time.Hour))})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	low, err := svc.Create(ctx, ids[0], TaskInput{Title: "Low", Priority: PriorityLow, DueDate: timePtr(fixedNow.Add(time.Hour))})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	all, err := svc.ListByOwner(ctx, ids[0])
	if err != nil || len(all) != 2 || all[0].ID != low.ID {
		t.Fatalf("expected tasks ordered by due date, got %#v, %v", all, err)
	}

	byPriority, err := svc.ListByPriority(ctx, ids[0], PriorityHigh)
	if err != nil || len(byPriority) != 1 || byPriority[0].ID != high.ID {
		t.Fatalf("unexpected priority listing %#v, %v", byPriority, err)
	}

	byStatus, err := svc.ListByStatus(ctx, ids[0], TaskPending)
	if err != nil || len(byStatus) != 2 {
		t.Fatalf("unexpected status listing %#v, %v", byStatus, err)
	}

	due, err := svc.ListDueBetween(ctx, ids[0], fixedNow, fixedNow.Add(90*time.Minute))
	if err != nil || len(due) != 1 || due[0].ID != low.ID {
		t.Fatalf("unexpected due window listing %#v, %v", due, err)
	}

	if _, err := svc.ListByStatus(ctx, ids[0], TaskStatus("Blocked")); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}
