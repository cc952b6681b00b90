package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/persistence"
)

// TaskService owns the task lifecycle and keeps Status and IsCompleted in step.
type TaskService struct {
	tasks  persistence.TaskRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewTaskService wires dependencies for task operations.
func NewTaskService(tasks persistence.TaskRepository, now func() time.Time) *TaskService {
	return NewTaskServiceWithLogger(tasks, now, nil)
}

// NewTaskServiceWithLogger wires dependencies with a specified logger.
func NewTaskServiceWithLogger(tasks persistence.TaskRepository, now func() time.Time, logger *slog.Logger) *TaskService {
	if now == nil {
		now = time.Now
	}
	return &TaskService{tasks: tasks, now: now, logger: defaultLogger(logger)}
}

func (s *TaskService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TaskService", operation, attrs...)
}

func (s *TaskService) ready() error {
	if s == nil {
		return fmt.Errorf("TaskService is nil")
	}
	if s.tasks == nil {
		return fmt.Errorf("task repository not configured")
	}
	return nil
}

// Create stores a new Pending task. A due date in the past is rejected.
func (s *TaskService) Create(ctx context.Context, ownerID int64, input TaskInput) (task Task, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Create", "owner_id", ownerID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create task", err)
			return
		}
		logger.With("task_id", task.ID).InfoContext(ctx, "task created")
	}()

	now := s.now().UTC()
	vErr := validateTaskInput(&input)
	if input.DueDate != nil && input.DueDate.Before(now) {
		vErr.add("dueDate", "due date cannot be in the past")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	task = Task{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(input.Title),
		Description: normalizeOptionalString(input.Description),
		DueDate:     utcPtr(input.DueDate),
		Priority:    input.Priority,
		Status:      TaskPending,
		IsCompleted: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var persisted persistence.Task
	if persisted, err = s.tasks.CreateTask(ctx, taskToRecord(task)); err != nil {
		err = mapRepoError(err)
		return
	}
	task = taskFromRecord(persisted)
	return
}

// Update overwrites every mutable field of a task owned by ownerID. The due date
// is not checked against the clock so overdue tasks stay editable.
func (s *TaskService) Update(ctx context.Context, id, ownerID int64, input TaskUpdate) (task Task, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Update", "owner_id", ownerID, "task_id", id)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update task", err)
			return
		}
		logger.With("status", task.Status).InfoContext(ctx, "task updated")
	}()

	var existing Task
	if existing, err = s.owned(ctx, id, ownerID); err != nil {
		return
	}

	vErr := validateTaskInput(&input.TaskInput)
	status := input.Status
	switch {
	case status == "" && input.IsCompleted:
		status = TaskCompleted
	case status == "" && existing.Status == TaskCompleted:
		// Clearing the completion flag reopens the task.
		status = TaskPending
	case status == "":
		status = existing.Status
	case !status.Valid():
		vErr.add("status", "status must be one of Pending, InProgress, Completed")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	task = existing
	task.Title = strings.TrimSpace(input.Title)
	task.Description = normalizeOptionalString(input.Description)
	task.DueDate = utcPtr(input.DueDate)
	task.Priority = input.Priority
	task.Status = status
	task.IsCompleted = status == TaskCompleted
	task.UpdatedAt = s.now().UTC()

	task, err = s.store(ctx, task)
	return
}

// MarkComplete moves a task to Completed. Calling it again is a no-op in effect.
func (s *TaskService) MarkComplete(ctx context.Context, id, ownerID int64) (task Task, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "MarkComplete", "owner_id", ownerID, "task_id", id)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to complete task", err)
			return
		}
		logger.InfoContext(ctx, "task completed")
	}()

	if task, err = s.owned(ctx, id, ownerID); err != nil {
		return
	}
	task.Status = TaskCompleted
	task.IsCompleted = true
	task.UpdatedAt = s.now().UTC()

	task, err = s.store(ctx, task)
	return
}

// Delete removes a task owned by ownerID.
func (s *TaskService) Delete(ctx context.Context, id, ownerID int64) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete", "owner_id", ownerID, "task_id", id)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to delete task", err)
			return
		}
		logger.InfoContext(ctx, "task deleted")
	}()

	if _, err = s.owned(ctx, id, ownerID); err != nil {
		return
	}
	err = mapRepoError(s.tasks.DeleteTask(ctx, id))
	return
}

// SetStatus lets an administrator set any status on any task.
func (s *TaskService) SetStatus(ctx context.Context, principal Principal, id int64, status TaskStatus) (task Task, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "SetStatus", "principal_id", principal.UserID, "task_id", id, "status", status)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to set task status", err)
			return
		}
		logger.InfoContext(ctx, "task status set")
	}()

	if !principal.IsAdmin() {
		err = ErrForbidden
		return
	}
	if !status.Valid() {
		err = NewValidationError("status", "status must be one of Pending, InProgress, Completed")
		return
	}

	var rec persistence.Task
	if rec, err = s.tasks.GetTask(ctx, id); err != nil {
		err = mapRepoError(err)
		return
	}

	task = taskFromRecord(rec)
	task.Status = status
	task.IsCompleted = status == TaskCompleted
	task.UpdatedAt = s.now().UTC()

	task, err = s.store(ctx, task)
	return
}

// ListOverdue returns the owner's incomplete tasks whose due date has passed.
func (s *TaskService) ListOverdue(ctx context.Context, ownerID int64) ([]Task, error) {
	now := s.now().UTC()
	incomplete := false
	tasks, err := s.list(ctx, "ListOverdue", persistence.TaskFilter{UserID: ownerID, Completed: &incomplete, DueBefore: &now})
	if err != nil {
		return nil, err
	}
	overdue := tasks[:0]
	for _, task := range tasks {
		if task.Overdue(now) {
			overdue = append(overdue, task)
		}
	}
	return overdue, nil
}

// Get returns one task owned by ownerID.
func (s *TaskService) Get(ctx context.Context, id, ownerID int64) (Task, error) {
	if err := s.ready(); err != nil {
		return Task{}, err
	}
	task, err := s.owned(ctx, id, ownerID)
	if err != nil {
		logFailure(ctx, s.loggerWith(ctx, "Get", "owner_id", ownerID, "task_id", id), "failed to get task", err)
	}
	return task, err
}

// ListByOwner returns the owner's tasks ordered by due date.
func (s *TaskService) ListByOwner(ctx context.Context, ownerID int64) ([]Task, error) {
	return s.list(ctx, "ListByOwner", persistence.TaskFilter{UserID: ownerID})
}

// ListByStatus returns the owner's tasks in the given status.
func (s *TaskService) ListByStatus(ctx context.Context, ownerID int64, status TaskStatus) ([]Task, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", "unknown task status")
	}
	return s.list(ctx, "ListByStatus", persistence.TaskFilter{UserID: ownerID, Status: string(status)})
}

// ListByPriority returns the owner's tasks with the given priority.
func (s *TaskService) ListByPriority(ctx context.Context, ownerID int64, priority TaskPriority) ([]Task, error) {
	if !priority.Valid() {
		return nil, NewValidationError("priority", "unknown task priority")
	}
	return s.list(ctx, "ListByPriority", persistence.TaskFilter{UserID: ownerID, Priority: string(priority)})
}

// ListAll returns every user's tasks. Administrators only.
func (s *TaskService) ListAll(ctx context.Context, principal Principal) ([]Task, error) {
	if !principal.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.list(ctx, "ListAll", persistence.TaskFilter{})
}

// ListDueBetween returns the owner's incomplete tasks whose due date lies in [from, to].
func (s *TaskService) ListDueBetween(ctx context.Context, ownerID int64, from, to time.Time) ([]Task, error) {
	from, to = from.UTC(), to.UTC()
	incomplete := false
	return s.list(ctx, "ListDueBetween", persistence.TaskFilter{UserID: ownerID, Completed: &incomplete, DueFrom: &from, DueTo: &to})
}

func (s *TaskService) list(ctx context.Context, operation string, filter persistence.TaskFilter) ([]Task, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	recs, err := s.tasks.ListTasks(ctx, filter)
	if err != nil {
		err = mapRepoError(err)
		logFailure(ctx, s.loggerWith(ctx, operation, "owner_id", filter.UserID), "failed to list tasks", err)
		return nil, err
	}
	return tasksFromRecords(recs), nil
}

func (s *TaskService) owned(ctx context.Context, id, ownerID int64) (Task, error) {
	rec, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return Task{}, mapRepoError(err)
	}
	if rec.UserID != ownerID {
		return Task{}, ErrForbidden
	}
	return taskFromRecord(rec), nil
}

func (s *TaskService) store(ctx context.Context, task Task) (Task, error) {
	rec, err := s.tasks.UpdateTask(ctx, taskToRecord(task))
	if err != nil {
		return Task{}, mapRepoError(err)
	}
	return taskFromRecord(rec), nil
}

// validateTaskInput checks field limits and defaults an empty priority to Medium.
func validateTaskInput(input *TaskInput) *ValidationError {
	vErr := &ValidationError{}
	validateTitle(vErr, input.Title)
	validateOptionalLength(vErr, "description", input.Description, maxDescriptionLength)
	if input.Priority == "" {
		input.Priority = PriorityMedium
	}
	if !input.Priority.Valid() {
		vErr.add("priority", "priority must be one of Low, Medium, High")
	}
	return vErr
}
