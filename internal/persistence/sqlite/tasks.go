package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/smart-scheduler/internal/persistence"
)

const taskColumns = `id, user_id, title, description, due_date, priority, status, is_completed, created_at, updated_at`

// TaskRepository implements persistence.TaskRepository using SQLite.
type TaskRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewTaskRepository creates a new SQLite task repository.
func NewTaskRepository(pool *ConnectionPool) *TaskRepository {
	return &TaskRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateTask inserts a task and returns it with its assigned ID.
func (r *TaskRepository) CreateTask(ctx context.Context, t persistence.Task) (persistence.Task, error) {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (user_id, title, description, due_date, priority, status, is_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Title, nullString(t.Description), formatTimePtr(t.DueDate), t.Priority, t.Status,
		t.IsCompleted, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return persistence.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if t.ID, err = result.LastInsertId(); err != nil {
		return persistence.Task{}, fmt.Errorf("read task id: %w", err)
	}
	return t, nil
}

// GetTask retrieves a task by ID.
func (r *TaskRepository) GetTask(ctx context.Context, id int64) (persistence.Task, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		return persistence.Task{}, r.mapper.MapError(err)
	}
	return t, nil
}

// UpdateTask replaces the mutable columns of a task.
func (r *TaskRepository) UpdateTask(ctx context.Context, t persistence.Task) (persistence.Task, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, due_date = ?, priority = ?, status = ?, is_completed = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, nullString(t.Description), formatTimePtr(t.DueDate), t.Priority, t.Status,
		t.IsCompleted, formatTime(t.UpdatedAt), t.ID)
	if err != nil {
		return persistence.Task{}, fmt.Errorf("update task %d: %w", t.ID, err)
	}
	if err := requireAffected(result); err != nil {
		return persistence.Task{}, err
	}
	return t, nil
}

// DeleteTask removes a task by ID.
func (r *TaskRepository) DeleteTask(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return requireAffected(result)
}

// ListTasks returns tasks matching filter ordered by due date (undated last), then ID.
func (r *TaskRepository) ListTasks(ctx context.Context, f persistence.TaskFilter) ([]persistence.Task, error) {
	var where whereClause
	if f.UserID != 0 {
		where.add("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		where.add("status = ?", f.Status)
	}
	if f.Priority != "" {
		where.add("priority = ?", f.Priority)
	}
	if f.Completed != nil {
		where.add("is_completed = ?", *f.Completed)
	}
	if f.DueBefore != nil {
		where.add("due_date IS NOT NULL AND due_date < ?", formatTime(*f.DueBefore))
	}
	if f.DueFrom != nil {
		where.add("due_date IS NOT NULL AND due_date >= ?", formatTime(*f.DueFrom))
	}
	if f.DueTo != nil {
		where.add("due_date IS NOT NULL AND due_date <= ?", formatTime(*f.DueTo))
	}

	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks`+where.String()+` ORDER BY due_date IS NULL, due_date, id`, where.args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
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
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return out, nil
}

func scanTask(row scanner) (persistence.Task, error) {
	var (
		t                persistence.Task
		description, due sql.NullString
		created, updated string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &description, &due, &t.Priority, &t.Status, &t.IsCompleted, &created, &updated); err != nil {
		return persistence.Task{}, err
	}
	t.Description = stringPtr(description)

	var err error
	if t.DueDate, err = parseNullTime(due); err != nil {
		return persistence.Task{}, err
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return persistence.Task{}, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return persistence.Task{}, err
	}
	return t, nil
}
