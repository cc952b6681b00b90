package http

import (
	"context"
	"log/slog"
	"net/http"
)

// RouterConfig wires handlers into the API. Nil handlers leave their routes unregistered.
type RouterConfig struct {
	Auth          *AuthHandler
	Appointments  *AppointmentHandler
	Tasks         *TaskHandler
	Admin         *AdminHandler
	Notifications *NotificationHandler
	Authenticator Authenticator
	AuthLimiter   *RateLimiter
	// Health is probed by GET /healthz. Nil always reports healthy.
	Health     func(ctx context.Context) error
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	logger := defaultLogger(cfg.Logger)

	requireAuth := RequireAuth(cfg.Authenticator, logger)
	requireAdmin := RequireAdmin(logger)
	protected := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }
	adminOnly := func(h http.HandlerFunc) http.Handler { return requireAuth(requireAdmin(h)) }
	limited := func(h http.HandlerFunc) http.Handler {
		if cfg.AuthLimiter == nil {
			return h
		}
		return cfg.AuthLimiter.Middleware(h)
	}

	mux.HandleFunc("GET /healthz", healthHandler(cfg.Health, logger))

	if h := cfg.Auth; h != nil {
		mux.Handle("POST /api/auth/register", limited(h.Register))
		mux.Handle("POST /api/auth/login", limited(h.Login))
		mux.Handle("GET /api/auth/profile", protected(h.Profile))
		mux.Handle("PUT /api/auth/profile", protected(h.UpdateProfile))
	}

	if h := cfg.Appointments; h != nil {
		mux.Handle("GET /api/appointments", protected(h.List))
		mux.Handle("POST /api/appointments", protected(h.Create))
		mux.Handle("GET /api/appointments/conflicts", protected(h.Conflicts))
		mux.Handle("GET /api/appointments/filter", protected(h.Filter))
		mux.Handle("GET /api/appointments/status/{status}", protected(h.ByStatus))
		mux.Handle("GET /api/appointments/calendar.ics", protected(h.Calendar))
		mux.Handle("GET /api/appointments/{id}", protected(h.Get))
		mux.Handle("PUT /api/appointments/{id}", protected(h.Update))
		mux.Handle("DELETE /api/appointments/{id}", protected(h.Delete))
	}

	if h := cfg.Tasks; h != nil {
		mux.Handle("GET /api/tasks", protected(h.List))
		mux.Handle("POST /api/tasks", protected(h.Create))
		mux.Handle("GET /api/tasks/overdue", protected(h.Overdue))
		mux.Handle("GET /api/tasks/status/{status}", protected(h.ByStatus))
		mux.Handle("GET /api/tasks/priority/{priority}", protected(h.ByPriority))
		mux.Handle("GET /api/tasks/{id}", protected(h.Get))
		mux.Handle("PUT /api/tasks/{id}", protected(h.Update))
		mux.Handle("DELETE /api/tasks/{id}", protected(h.Delete))
		mux.Handle("PATCH /api/tasks/{id}/complete", protected(h.Complete))
	}

	if h := cfg.Admin; h != nil {
		mux.Handle("GET /api/admin/appointments", adminOnly(h.ListAppointments))
		mux.Handle("GET /api/admin/tasks", adminOnly(h.ListTasks))
		mux.Handle("PATCH /api/admin/appointments/{id}/status", adminOnly(h.SetAppointmentStatus))
		mux.Handle("PATCH /api/admin/tasks/{id}/status", adminOnly(h.SetTaskStatus))
	}

	if h := cfg.Notifications; h != nil {
		mux.Handle("GET /api/notifications/preferences", protected(h.GetPreferences))
		mux.Handle("PUT /api/notifications/preferences", protected(h.UpdatePreferences))
		mux.Handle("POST /api/notifications/subscribe", protected(h.Subscribe))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func healthHandler(check func(ctx context.Context) error, logger *slog.Logger) http.HandlerFunc {
	res := newResponder(logger)
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				res.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				handlerLogger(r.Context(), logger, "health", "check").ErrorContext(r.Context(), "health check failed", "error", err)
				return
			}
		}
		res.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

type healthResponse struct {
	Status string `json:"status"`
}
