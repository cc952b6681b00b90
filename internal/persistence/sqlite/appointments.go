package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/smart-scheduler/internal/persistence"
)

const appointmentColumns = `id, user_id, title, description, start_time, end_time, location, status, created_at, updated_at`

// AppointmentRepository implements persistence.AppointmentRepository using SQLite.
type AppointmentRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewAppointmentRepository creates a new SQLite appointment repository.
func NewAppointmentRepository(pool *ConnectionPool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateAppointment inserts an appointment and returns it with its assigned ID.
func (r *AppointmentRepository) CreateAppointment(ctx context.Context, a persistence.Appointment) (persistence.Appointment, error) {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (user_id, title, description, start_time, end_time, location, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Title, nullString(a.Description), formatTime(a.Start), formatTime(a.End),
		nullString(a.Location), a.Status, formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return persistence.Appointment{}, fmt.Errorf("insert appointment: %w", err)
	}
	if a.ID, err = result.LastInsertId(); err != nil {
		return persistence.Appointment{}, fmt.Errorf("read appointment id: %w", err)
	}
	return a, nil
}

// GetAppointment retrieves an appointment by ID.
func (r *AppointmentRepository) GetAppointment(ctx context.Context, id int64) (persistence.Appointment, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	a, err := scanAppointment(row)
	if err != nil {
		return persistence.Appointment{}, r.mapper.MapError(err)
	}
	return a, nil
}

// UpdateAppointment replaces the mutable columns of an appointment.
func (r *AppointmentRepository) UpdateAppointment(ctx context.Context, a persistence.Appointment) (persistence.Appointment, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET title = ?, description = ?, start_time = ?, end_time = ?, location = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		a.Title, nullString(a.Description), formatTime(a.Start), formatTime(a.End),
		nullString(a.Location), a.Status, formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		return persistence.Appointment{}, fmt.Errorf("update appointment %d: %w", a.ID, err)
	}
	if err := requireAffected(result); err != nil {
		return persistence.Appointment{}, err
	}
	return a, nil
}

// DeleteAppointment removes an appointment by ID.
func (r *AppointmentRepository) DeleteAppointment(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete appointment %d: %w", id, err)
	}
	return requireAffected(result)
}

// ListAppointments returns appointments matching filter ordered by start, then ID.
func (r *AppointmentRepository) ListAppointments(ctx context.Context, f persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	var where whereClause
	if f.UserID != 0 {
		where.add("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		where.add("status = ?", f.Status)
	}
	if f.ExcludeStatus != "" {
		where.add("status <> ?", f.ExcludeStatus)
	}
	if f.ExcludeID != 0 {
		where.add("id <> ?", f.ExcludeID)
	}
	if f.StartFrom != nil {
		where.add("start_time >= ?", formatTime(*f.StartFrom))
	}
	if f.StartTo != nil {
		where.add("start_time <= ?", formatTime(*f.StartTo))
	}
	if f.EndTo != nil {
		where.add("end_time <= ?", formatTime(*f.EndTo))
	}
	if f.OverlapStart != nil {
		where.add("end_time > ?", formatTime(*f.OverlapStart))
	}
	if f.OverlapEnd != nil {
		where.add("start_time < ?", formatTime(*f.OverlapEnd))
	}

	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments`+where.String()+` ORDER BY start_time, id`, where.args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
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
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row scanner) (persistence.Appointment, error) {
	var (
		a                            persistence.Appointment
		description, location        sql.NullString
		start, end, created, updated string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Title, &description, &start, &end, &location, &a.Status, &created, &updated); err != nil {
		return persistence.Appointment{}, err
	}
	a.Description = stringPtr(description)
	a.Location = stringPtr(location)

	var err error
	for _, field := range []struct {
		dst *time.Time
		raw string
	}{{&a.Start, start}, {&a.End, end}, {&a.CreatedAt, created}, {&a.UpdatedAt, updated}} {
		if *field.dst, err = parseTime(field.raw); err != nil {
			return persistence.Appointment{}, err
		}
	}
	return a, nil
}
