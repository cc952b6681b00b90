package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/calendar"
)

// defaultFilterSpan is the range served by /appointments/filter when no endDate is given.
const defaultFilterSpan = 30 * 24 * time.Hour

type appointmentService interface {
	Create(ctx context.Context, ownerID int64, input application.AppointmentInput) (application.Appointment, error)
	Update(ctx context.Context, id, ownerID int64, input application.AppointmentUpdate) (application.Appointment, error)
	Delete(ctx context.Context, id, ownerID int64) error
	Get(ctx context.Context, id, ownerID int64) (application.Appointment, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]application.Appointment, error)
	ListByDateRange(ctx context.Context, ownerID int64, from, to time.Time) ([]application.Appointment, error)
	ListByStatus(ctx context.Context, ownerID int64, status application.AppointmentStatus) ([]application.Appointment, error)
	ListConflicts(ctx context.Context, ownerID int64, start, end time.Time, excludeID int64) ([]application.Appointment, error)
}

// AppointmentHandler serves the caller's appointments.
type AppointmentHandler struct {
	service   appointmentService
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

func NewAppointmentHandler(service appointmentService, now func() time.Time, logger *slog.Logger) *AppointmentHandler {
	if now == nil {
		now = time.Now
	}
	base := defaultLogger(logger)
	return &AppointmentHandler{service: service, now: now, responder: newResponder(base), logger: base}
}

func (h *AppointmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AppointmentHandler", operation, attrs...)
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListByOwner(r.Context(), principal.UserID)
	if err != nil {
		logServiceError(r.Context(), h.log(r.Context(), "List"), "failed to list appointments", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponses(items))
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	item, err := h.service.Get(r.Context(), id, principal.UserID)
	if err != nil {
		logServiceError(r.Context(), h.log(r.Context(), "Get", "appointment_id", id), "failed to get appointment", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newAppointmentResponse(item))
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}

	var req appointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode appointment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	item, err := h.service.Create(r.Context(), principal.UserID, req.toInput())
	if err != nil {
		logServiceError(r.Context(), logger, "failed to create appointment", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "appointment created", "appointment_id", item.ID)
	w.Header().Set("Location", fmt.Sprintf("/api/appointments/%d", item.ID))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, newAppointmentResponse(item))
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	var req updateAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode appointment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	update := application.AppointmentUpdate{AppointmentInput: req.toInput()}
	if strings.TrimSpace(req.Status) != "" {
		status, err := application.ParseAppointmentStatus(req.Status)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, application.NewValidationError("status", err.Error()))
			return
		}
		update.Status = status
	}

	logger := h.log(r.Context(), "Update", "appointment_id", id)
	item, err := h.service.Update(r.Context(), id, principal.UserID, update)
	if err != nil {
		logServiceError(r.Context(), logger, "failed to update appointment", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "appointment updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newAppointmentResponse(item))
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Delete", "appointment_id", id)
	if err := h.service.Delete(r.Context(), id, principal.UserID); err != nil {
		logServiceError(r.Context(), logger, "failed to delete appointment", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "appointment deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Conflicts reports the caller's active appointments overlapping ?start=&end=.
func (h *AppointmentHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	start, err := parseQueryTime(query.Get("start"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("start: %w", err))
		return
	}
	end, err := parseQueryTime(query.Get("end"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("end: %w", err))
		return
	}
	var excludeID int64
	if raw := strings.TrimSpace(query.Get("excludeId")); raw != "" {
		excludeID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || excludeID < 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("excludeId must be a non-negative integer"))
			return
		}
	}

	conflicts, err := h.service.ListConflicts(r.Context(), principal.UserID, start, end, excludeID)
	if err != nil {
		logServiceError(r.Context(), h.log(r.Context(), "Conflicts"), "failed to check conflicts", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictResponse{
		HasConflict: len(conflicts) > 0,
		Conflicts:   appointmentResponses(conflicts),
	})
}

// Filter lists appointments lying within ?startDate=&endDate=. Both default
// relative to today (UTC): startDate to today, endDate to thirty days later.
// A date-only endDate covers that whole day.
func (h *AppointmentHandler) Filter(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	from := h.now().UTC().Truncate(24 * time.Hour)
	if raw := strings.TrimSpace(query.Get("startDate")); raw != "" {
		parsed, err := parseQueryTime(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("startDate: %w", err))
			return
		}
		from = parsed
	}
	to := from.Add(defaultFilterSpan)
	if raw := strings.TrimSpace(query.Get("endDate")); raw != "" {
		parsed, err := parseQueryTime(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("endDate: %w", err))
			return
		}
		to = parsed
		if _, dateErr := time.Parse(time.DateOnly, raw); dateErr == nil {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
	}

	items, err := h.service.ListByDateRange(r.Context(), principal.UserID, from, to)
	if err != nil {
		logServiceError(r.Context(), h.log(r.Context(), "Filter"), "failed to filter appointments", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponses(items))
}

func (h *AppointmentHandler) ByStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	status, err := application.ParseAppointmentStatus(r.PathValue("status"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	items, err := h.service.ListByStatus(r.Context(), principal.UserID, status)
	if err != nil {
		logServiceError(r.Context(), h.log(r.Context(), "ByStatus", "status", status), "failed to list appointments by status", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponses(items))
}

// Calendar serves the caller's appointments as an iCalendar feed.
func (h *AppointmentHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Calendar")
	items, err := h.service.ListByOwner(r.Context(), principal.UserID)
	if err != nil {
		logServiceError(r.Context(), logger, "failed to load appointments for calendar", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	var buf bytes.Buffer
	if err := calendar.Write(&buf, "Smart Scheduler", items, h.now()); err != nil {
		logger.ErrorContext(r.Context(), "failed to render calendar", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="appointments.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.WarnContext(r.Context(), "failed to write calendar", "error", err)
	}
}

func (h *AppointmentHandler) begin(w http.ResponseWriter, r *http.Request) (application.Principal, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return application.Principal{}, false
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return application.Principal{}, false
	}
	return principal, true
}

type appointmentRequest struct {
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
	Location      *string   `json:"location"`
}

func (req appointmentRequest) toInput() application.AppointmentInput {
	return application.AppointmentInput{
		Title:       req.Title,
		Description: req.Description,
		Start:       req.StartDateTime,
		End:         req.EndDateTime,
		Location:    req.Location,
	}
}

type updateAppointmentRequest struct {
	appointmentRequest
	Status string `json:"status"`
}

type conflictResponse struct {
	HasConflict bool                  `json:"hasConflict"`
	Conflicts   []appointmentResponse `json:"conflicts"`
}
