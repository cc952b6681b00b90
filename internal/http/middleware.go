package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/smart-scheduler/internal/application"
	"github.com/example/smart-scheduler/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// Authenticator resolves a raw bearer token into the calling principal.
type Authenticator interface {
	Authenticate(raw string) (application.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved principal in the request context.
func RequireAuth(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	res := newResponder(logger)
	return func(next http.Handler) http.Handler {
		if authenticator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				res.writeError(r.Context(), w, http.StatusUnauthorized, errMissingToken)
				return
			}
			principal, err := authenticator.Authenticate(raw)
			if err != nil {
				handlerLogger(r.Context(), logger, "RequireAuth", "authenticate").
					WarnContext(r.Context(), "token rejected", "error", err)
				res.writeError(r.Context(), w, http.StatusUnauthorized, errInvalidToken)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			ctx = logging.ContextWithLogger(ctx, logging.OrDefault(ctx, logger).With("user_id", principal.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin only lets principals with the Admin role through. It must run
// after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	res := newResponder(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				res.writeError(r.Context(), w, http.StatusUnauthorized, errMissingToken)
				return
			}
			if !principal.IsAdmin() {
				res.writeError(r.Context(), w, http.StatusForbidden, errAdminOnly)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger tags each request with an id and logs its outcome.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	base := defaultLogger(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			reqLogger := base.With(
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx := logging.ContextWithLogger(r.Context(), reqLogger)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(recorder, r.WithContext(ctx))

			level := slog.LevelInfo
			switch {
			case recorder.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case recorder.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			reqLogger.Log(ctx, level, "request completed",
				"status", recorder.status,
				"duration", time.Since(start),
			)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.wroteHeader = true
	}
	return r.ResponseWriter.Write(b)
}
