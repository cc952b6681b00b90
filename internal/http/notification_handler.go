package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/example/smart-scheduler/internal/application"
)

type notificationService interface {
	GetPreferences(ctx context.Context, userID int64) (application.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, userID int64, input application.PreferencesInput) (application.NotificationPreferences, error)
	SavePushSubscription(ctx context.Context, userID int64, payload string) (application.NotificationPreferences, error)
}

// NotificationHandler serves reminder preferences and push subscriptions.
type NotificationHandler struct {
	service   notificationService
	responder responder
	logger    *slog.Logger
}

func NewNotificationHandler(service notificationService, logger *slog.Logger) *NotificationHandler {
	base := defaultLogger(logger)
	return &NotificationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *NotificationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "NotificationHandler", operation, attrs...)
}

func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	prefs, err := h.service.GetPreferences(r.Context(), principal.UserID)
	if err != nil {
		logServiceError(r.Context(), h.log(r.Context(), "GetPreferences"), "failed to load preferences", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newPreferencesResponse(prefs))
}

func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	var req preferencesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "UpdatePreferences", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode preferences request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdatePreferences")
	prefs, err := h.service.UpdatePreferences(r.Context(), principal.UserID, application.PreferencesInput{
		EmailNotifications:   req.EmailNotifications,
		PushNotifications:    req.PushNotifications,
		AppointmentReminders: req.AppointmentReminders,
		TaskReminders:        req.TaskReminders,
		ReminderTimeMinutes:  req.ReminderTimeMinutes,
	})
	if err != nil {
		logServiceError(r.Context(), logger, "failed to update preferences", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "preferences updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newPreferencesResponse(prefs))
}

// Subscribe stores the request body verbatim as the caller's push subscription.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.begin(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.log(r.Context(), "Subscribe", "error_kind", "bad_request").WarnContext(r.Context(), "failed to read subscription", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Subscribe")
	prefs, err := h.service.SavePushSubscription(r.Context(), principal.UserID, string(body))
	if err != nil {
		logServiceError(r.Context(), logger, "failed to save subscription", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "push subscription stored")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newPreferencesResponse(prefs))
}

func (h *NotificationHandler) begin(w http.ResponseWriter, r *http.Request) (application.Principal, bool) {
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

type preferencesRequest struct {
	EmailNotifications   bool `json:"emailNotifications"`
	PushNotifications    bool `json:"pushNotifications"`
	AppointmentReminders bool `json:"appointmentReminders"`
	TaskReminders        bool `json:"taskReminders"`
	ReminderTimeMinutes  int  `json:"reminderTimeMinutes"`
}
