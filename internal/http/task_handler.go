package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/application"
)

type taskService interface {
	Create(ctx context.Context, ownerID int64, input application.TaskInput) (application.Task, error)
	Update(ctx context.Context, id, ownerID int64, input application.TaskUpdate) (application.Task, error)
	MarkComplete(ctx context.Context, id, ownerID int64) (application.Task, error)
	Delete(ctx context.Context, id, ownerID int64) error
	Get(ctx context.Context, id, ownerID int64) (application.Task, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]application.Task, error)
	ListOverdue(ctx context.Context, ownerID int64) ([]application.Task, error)
	ListByStatus(ctx context.Context, ownerID int64, status application.TaskStatus) ([]application.Task, error)
	ListByPriority(ctx context.Context, ownerID int64, priority application.TaskPriority) ([]application.Task, error)
}

// TaskHandler serves the caller's tasks.
type TaskHandler struct {
	service   taskService
	responder responder
	logger    *slog.Logger
}

func NewTaskHandler(service taskService, logger *slog.Logger) *TaskHandler {
	base := defaultLogger(logger)
	return &TaskHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TaskHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TaskHandler", operation, attrs...)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	h.writeList(w, r, "List")(h.service.ListByOwner(r.Context(), principal.UserID))
}

func (h *TaskHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	h.writeList(w, r, "Overdue")(h.service.ListOverdue(r.Context(), principal.UserID))
}

func (h *TaskHandler) ByStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	status, err := application.ParseTaskStatus(r.PathValue("status"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	h.writeList(w, r, "ByStatus")(h.service.ListByStatus(r.Context(), principal.UserID, status))
}

func (h *TaskHandler) ByPriority(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	priority, err := application.ParseTaskPriority(r.PathValue("priority"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	h.writeList(w, r, "ByPriority")(h.service.ListByPriority(r.Context(), principal.UserID, priority))
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	task, err := h.service.Get(r.Context(), id, principal.UserID)
	if err != nil {
		logServiceError(r.Context(), h.log(r.Context(), "Get", "task_id", id), "failed to get task", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newTaskResponse(task))
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}

	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode task request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	task, err := h.service.Create(r.Context(), principal.UserID, req.toInput())
	if err != nil {
		logServiceError(r.Context(), logger, "failed to create task", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "task created", "task_id", task.ID)
	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", task.ID))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, newTaskResponse(task))
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode task request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	update := application.TaskUpdate{
		TaskInput:   req.toInput(),
		Status:      parseTaskStatusLenient(req.Status),
		IsCompleted: req.IsCompleted,
	}

	logger := h.log(r.Context(), "Update", "task_id", id)
	task, err := h.service.Update(r.Context(), id, principal.UserID, update)
	if err != nil {
		logServiceError(r.Context(), logger, "failed to update task", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "task updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newTaskResponse(task))
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Complete", "task_id", id)
	task, err := h.service.MarkComplete(r.Context(), id, principal.UserID)
	if err != nil {
		logServiceError(r.Context(), logger, "failed to complete task", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "task completed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newTaskResponse(task))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Delete", "task_id", id)
	if err := h.service.Delete(r.Context(), id, principal.UserID); err != nil {
		logServiceError(r.Context(), logger, "failed to delete task", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "task deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *TaskHandler) writeList(w http.ResponseWriter, r *http.Request, operation string) func([]application.Task, error) {
	return func(items []application.Task, err error) {
		if err != nil {
			logServiceError(r.Context(), h.log(r.Context(), operation), "failed to list tasks", err)
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeJSON(r.Context(), w, http.StatusOK, taskResponses(items))
	}
}

func (h *TaskHandler) begin(w http.ResponseWriter, r *http.Request) (application.Principal, bool) {
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

// parseTaskStatusLenient normalises case and otherwise passes the raw value on
// so the service reports it as a field error.
func parseTaskStatusLenient(raw string) application.TaskStatus {
	raw = strings.TrimSpace(raw)
	if status, err := application.ParseTaskStatus(raw); err == nil {
		return status
	}
	return application.TaskStatus(raw)
}

func parseTaskPriorityLenient(raw string) application.TaskPriority {
	raw = strings.TrimSpace(raw)
	if priority, err := application.ParseTaskPriority(raw); err == nil {
		return priority
	}
	return application.TaskPriority(raw)
}

type taskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority"`
}

func (req taskRequest) toInput() application.TaskInput {
	return application.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    parseTaskPriorityLenient(req.Priority),
	}
}

type updateTaskRequest struct {
	taskRequest
	Status      string `json:"status"`
	IsCompleted bool   `json:"isCompleted"`
}
