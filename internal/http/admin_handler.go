package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/smart-scheduler/internal/application"
)

type adminAppointmentService interface {
	ListAll(ctx context.Context, principal application.Principal) ([]application.Appointment, error)
	SetStatus(ctx context.Context, principal application.Principal, id int64, status application.AppointmentStatus) (application.Appointment, error)
}

type adminTaskService interface {
	ListAll(ctx context.Context, principal application.Principal) ([]application.Task, error)
	SetStatus(ctx context.Context, principal application.Principal, id int64, status application.TaskStatus) (application.Task, error)
}

// AdminHandler exposes cross-user listings and status overrides. The router
// guards it with RequireAdmin and the services check the role again.
type AdminHandler struct {
	appointments adminAppointmentService
	tasks        adminTaskService
	responder    responder
	logger       *slog.Logger
}

func NewAdminHandler(appointments adminAppointmentService, tasks adminTaskService, logger *slog.Logger) *AdminHandler {
	base := defaultLogger(logger)
	return &AdminHandler{appointments: appointments, tasks: tasks, responder: newResponder(base), logger: base}
}

func (h *AdminHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AdminHandler", operation, attrs...)
}

func (h *AdminHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	items, err := h.appointments.ListAll(r.Context(), principal)
	if err != nil {
		logServiceError(r.Context(), h.log(r.Context(), "ListAppointments"), "failed to list all appointments", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponses(items))
}

func (h *AdminHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	items, err := h.tasks.ListAll(r.Context(), principal)
	if err != nil {
		logServiceError(r.Context(), h.log(r.Context(), "ListTasks"), "failed to list all tasks", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, taskResponses(items))
}

func (h *AdminHandler) SetAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "SetAppointmentStatus", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode status request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	status := application.AppointmentStatus(strings.TrimSpace(req.Status))
	if parsed, err := application.ParseAppointmentStatus(req.Status); err == nil {
		status = parsed
	}

	logger := h.log(r.Context(), "SetAppointmentStatus", "appointment_id", id)
	item, err := h.appointments.SetStatus(r.Context(), principal, id, status)
	if err != nil {
		logServiceError(r.Context(), logger, "failed to set appointment status", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "appointment status overridden", "status", item.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newAppointmentResponse(item))
}

func (h *AdminHandler) SetTaskStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "SetTaskStatus", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode status request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "SetTaskStatus", "task_id", id)
	task, err := h.tasks.SetStatus(r.Context(), principal, id, parseTaskStatusLenient(req.Status))
	if err != nil {
		logServiceError(r.Context(), logger, "failed to set task status", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "task status overridden", "status", task.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newTaskResponse(task))
}

func (h *AdminHandler) begin(w http.ResponseWriter, r *http.Request) (application.Principal, bool) {
	if h == nil || h.appointments == nil || h.tasks == nil {
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
