package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/persistence"
	"github.com/example/smart-scheduler/internal/scheduler"
)

// AppointmentService owns the appointment lifecycle: validation, ownership,
// conflict detection and persistence.
type AppointmentService struct {
	appointments persistence.AppointmentRepository
	now          func() time.Time
	logger       *slog.Logger
}

// NewAppointmentService wires dependencies for appointment operations.
func NewAppointmentService(appointments persistence.AppointmentRepository, now func() time.Time) *AppointmentService {
	return NewAppointmentServiceWithLogger(appointments, now, nil)
}

// NewAppointmentServiceWithLogger wires dependencies with a specified logger.
func NewAppointmentServiceWithLogger(appointments persistence.AppointmentRepository, now func() time.Time, logger *slog.Logger) *AppointmentService {
	if now == nil {
		now = time.Now
	}
	return &AppointmentService{appointments: appointments, now: now, logger: defaultLogger(logger)}
}

func (s *AppointmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AppointmentService", operation, attrs...)
}

func (s *AppointmentService) ready() error {
	if s == nil {
		return fmt.Errorf("AppointmentService is nil")
	}
	if s.appointments == nil {
		return fmt.Errorf("appointment repository not configured")
	}
	return nil
}

// Create validates the input, rejects overlaps with the owner's active
// appointments and stores the appointment as Scheduled. Past start times are allowed.
func (s *AppointmentService) Create(ctx context.Context, ownerID int64, input AppointmentInput) (appointment Appointment, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Create", "owner_id", ownerID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create appointment", err)
			return
		}
		logger.With("appointment_id", appointment.ID).InfoContext(ctx, "appointment created")
	}()

	if vErr := validateAppointmentInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	start, end := input.Start.UTC(), input.End.UTC()
	if err = s.ensureNoConflict(ctx, ownerID, start, end, 0); err != nil {
		return
	}

	now := s.now().UTC()
	appointment = Appointment{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(input.Title),
		Description: normalizeOptionalString(input.Description),
		Start:       start,
		End:         end,
		Location:    normalizeOptionalString(input.Location),
		Status:      AppointmentScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var persisted persistence.Appointment
	persisted, err = s.appointments.CreateAppointment(ctx, appointmentToRecord(appointment))
	if err != nil {
		err = mapRepoError(err)
		return
	}
	appointment = appointmentFromRecord(persisted)
	return
}

// Update overwrites every mutable field of an appointment owned by ownerID.
// The appointment itself is excluded from conflict detection.
func (s *AppointmentService) Update(ctx context.Context, id, ownerID int64, input AppointmentUpdate) (appointment Appointment, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Update", "owner_id", ownerID, "appointment_id", id)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update appointment", err)
			return
		}
		logger.With("status", appointment.Status).InfoContext(ctx, "appointment updated")
	}()

	var existing Appointment
	if existing, err = s.owned(ctx, id, ownerID); err != nil {
		return
	}

	vErr := validateAppointmentInput(input.AppointmentInput)
	status := existing.Status
	if input.Status != "" {
		if !input.Status.Valid() {
			vErr.add("status", "status must be one of Scheduled, Approved, Completed, Cancelled")
		}
		status = input.Status
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	start, end := input.Start.UTC(), input.End.UTC()
	if err = s.ensureNoConflict(ctx, ownerID, start, end, id); err != nil {
		return
	}

	appointment = existing
	appointment.Title = strings.TrimSpace(input.Title)
	appointment.Description = normalizeOptionalString(input.Description)
	appointment.Start = start
	appointment.End = end
	appointment.Location = normalizeOptionalString(input.Location)
	appointment.Status = status
	appointment.UpdatedAt = s.now().UTC()

	var persisted persistence.Appointment
	persisted, err = s.appointments.UpdateAppointment(ctx, appointmentToRecord(appointment))
	if err != nil {
		err = mapRepoError(err)
		return
	}
	appointment = appointmentFromRecord(persisted)
	return
}

// Delete removes an appointment owned by ownerID.
func (s *AppointmentService) Delete(ctx context.Context, id, ownerID int64) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete", "owner_id", ownerID, "appointment_id", id)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to delete appointment", err)
			return
		}
		logger.InfoContext(ctx, "appointment deleted")
	}()

	if _, err = s.owned(ctx, id, ownerID); err != nil {
		return
	}
	err = mapRepoError(s.appointments.DeleteAppointment(ctx, id))
	return
}

// SetStatus lets an administrator move an appointment to any status. Ownership
// and conflict checks are skipped.
func (s *AppointmentService) SetStatus(ctx context.Context, principal Principal, id int64, status AppointmentStatus) (appointment Appointment, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "SetStatus", "principal_id", principal.UserID, "appointment_id", id, "status", status)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to set appointment status", err)
			return
		}
		logger.InfoContext(ctx, "appointment status set")
	}()

	if !principal.IsAdmin() {
		err = ErrForbidden
		return
	}
	if !status.Valid() {
		err = NewValidationError("status", "status must be one of Scheduled, Approved, Completed, Cancelled")
		return
	}

	var rec persistence.Appointment
	if rec, err = s.appointments.GetAppointment(ctx, id); err != nil {
		err = mapRepoError(err)
		return
	}

	appointment = appointmentFromRecord(rec)
	appointment.Status = status
	appointment.UpdatedAt = s.now().UTC()

	if rec, err = s.appointments.UpdateAppointment(ctx, appointmentToRecord(appointment)); err != nil {
		err = mapRepoError(err)
		return
	}
	appointment = appointmentFromRecord(rec)
	return
}

// ListConflicts returns the owner's active appointments overlapping [start, end),
// leaving out excludeID. It never writes.
func (s *AppointmentService) ListConflicts(ctx context.Context, ownerID int64, start, end time.Time, excludeID int64) ([]Appointment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if vErr := validateRange(start, end); vErr.HasErrors() {
		return nil, vErr
	}
	return s.findConflicts(ctx, ownerID, start.UTC(), end.UTC(), excludeID)
}

// HasConflict reports whether [start, end) overlaps any active appointment of the owner.
func (s *AppointmentService) HasConflict(ctx context.Context, ownerID int64, start, end time.Time, excludeID int64) (bool, error) {
	conflicts, err := s.ListConflicts(ctx, ownerID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// Get returns one appointment owned by ownerID.
func (s *AppointmentService) Get(ctx context.Context, id, ownerID int64) (Appointment, error) {
	if err := s.ready(); err != nil {
		return Appointment{}, err
	}
	appointment, err := s.owned(ctx, id, ownerID)
	if err != nil {
		logFailure(ctx, s.loggerWith(ctx, "Get", "owner_id", ownerID, "appointment_id", id), "failed to get appointment", err)
	}
	return appointment, err
}

// ListByOwner returns the owner's appointments ordered by start.
func (s *AppointmentService) ListByOwner(ctx context.Context, ownerID int64) ([]Appointment, error) {
	return s.list(ctx, "ListByOwner", persistence.AppointmentFilter{UserID: ownerID})
}

// ListByDateRange returns the owner's appointments that lie entirely within [from, to].
func (s *AppointmentService) ListByDateRange(ctx context.Context, ownerID int64, from, to time.Time) ([]Appointment, error) {
	if to.Before(from) {
		return nil, NewValidationError("endDate", "endDate must not be before startDate")
	}
	from, to = from.UTC(), to.UTC()
	return s.list(ctx, "ListByDateRange", persistence.AppointmentFilter{UserID: ownerID, StartFrom: &from, EndTo: &to})
}

// ListByStatus returns the owner's appointments in the given status.
func (s *AppointmentService) ListByStatus(ctx context.Context, ownerID int64, status AppointmentStatus) ([]Appointment, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", "unknown appointment status")
	}
	return s.list(ctx, "ListByStatus", persistence.AppointmentFilter{UserID: ownerID, Status: string(status)})
}

// ListAll returns every user's appointments. Administrators only.
func (s *AppointmentService) ListAll(ctx context.Context, principal Principal) ([]Appointment, error) {
	if !principal.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.list(ctx, "ListAll", persistence.AppointmentFilter{})
}

// ListStartingBetween returns the owner's Scheduled appointments whose start lies in [from, to].
func (s *AppointmentService) ListStartingBetween(ctx context.Context, ownerID int64, from, to time.Time) ([]Appointment, error) {
	from, to = from.UTC(), to.UTC()
	return s.list(ctx, "ListStartingBetween", persistence.AppointmentFilter{
		UserID:    ownerID,
		Status:    string(AppointmentScheduled),
		StartFrom: &from,
		StartTo:   &to,
	})
}

func (s *AppointmentService) list(ctx context.Context, operation string, filter persistence.AppointmentFilter) ([]Appointment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	recs, err := s.appointments.ListAppointments(ctx, filter)
	if err != nil {
		err = mapRepoError(err)
		logFailure(ctx, s.loggerWith(ctx, operation, "owner_id", filter.UserID), "failed to list appointments", err)
		return nil, err
	}
	return appointmentsFromRecords(recs), nil
}

func (s *AppointmentService) owned(ctx context.Context, id, ownerID int64) (Appointment, error) {
	rec, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		return Appointment{}, mapRepoError(err)
	}
	if rec.UserID != ownerID {
		return Appointment{}, ErrForbidden
	}
	return appointmentFromRecord(rec), nil
}

func (s *AppointmentService) ensureNoConflict(ctx context.Context, ownerID int64, start, end time.Time, excludeID int64) error {
	conflicts, err := s.findConflicts(ctx, ownerID, start, end, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

// findConflicts narrows candidates in storage and then applies the overlap
// predicate from the scheduler package to the result.
func (s *AppointmentService) findConflicts(ctx context.Context, ownerID int64, start, end time.Time, excludeID int64) ([]Appointment, error) {
	recs, err := s.appointments.ListAppointments(ctx, persistence.AppointmentFilter{
		UserID:        ownerID,
		ExcludeStatus: string(AppointmentCancelled),
		ExcludeID:     excludeID,
		OverlapStart:  &start,
		OverlapEnd:    &end,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	byID := make(map[int64]persistence.Appointment, len(recs))
	slots := make([]scheduler.Slot, 0, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
		slots = append(slots, scheduler.Slot{
			ID:        rec.ID,
			OwnerID:   rec.UserID,
			Start:     rec.Start,
			End:       rec.End,
			Cancelled: rec.Status == string(AppointmentCancelled),
		})
	}

	hits := scheduler.DetectConflicts(slots, scheduler.Candidate{OwnerID: ownerID, Start: start, End: end, ExcludeID: excludeID})
	conflicts := make([]Appointment, 0, len(hits))
	for _, hit := range hits {
		conflicts = append(conflicts, appointmentFromRecord(byID[hit.ID]))
	}
	return conflicts, nil
}

func validateAppointmentInput(input AppointmentInput) *ValidationError {
	vErr := &ValidationError{}
	validateTitle(vErr, input.Title)
	validateOptionalLength(vErr, "description", input.Description, maxDescriptionLength)
	validateOptionalLength(vErr, "location", input.Location, maxLocationLength)
	vErr.merge(validateRange(input.Start, input.End))
	return vErr
}

func validateRange(start, end time.Time) *ValidationError {
	vErr := &ValidationError{}
	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		vErr.add("end", "end must be after start")
	}
	return vErr
}
