package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/smart-scheduler/internal/application"
)

type authService interface {
	Register(ctx context.Context, input application.RegisterInput) (application.User, error)
	Login(ctx context.Context, login, password string) (application.LoginResult, error)
	Profile(ctx context.Context, userID int64) (application.User, error)
	UpdateProfile(ctx context.Context, userID int64, input application.ProfileInput) (application.User, error)
}

// AuthHandler serves registration, login and the caller's profile.
type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode register request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Register", "username", strings.TrimSpace(req.Username))

	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		h.responder.handleServiceError(r.Context(), w, application.NewValidationError("confirmPassword", "passwords do not match"))
		return
	}

	// Public registration always creates regular users.
	user, err := h.service.Register(r.Context(), application.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     application.RoleUser,
	})
	if err != nil {
		logServiceError(r.Context(), logger, "registration failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "user registered", "user_id", user.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, newUserResponse(user))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Login", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode login request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Login")

	result, err := h.service.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		logServiceError(r.Context(), logger, "login rejected", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "user authenticated", "user_id", result.User.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
		User:      newUserResponse(result.User),
	})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	user, err := h.service.Profile(r.Context(), principal.UserID)
	if err != nil {
		logServiceError(r.Context(), h.log(r.Context(), "Profile"), "failed to load profile", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newUserResponse(user))
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "UpdateProfile", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode profile request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if req.NewPassword != "" && req.NewPassword != req.ConfirmPassword {
		h.responder.handleServiceError(r.Context(), w, application.NewValidationError("confirmPassword", "passwords do not match"))
		return
	}

	logger := h.log(r.Context(), "UpdateProfile")
	user, err := h.service.UpdateProfile(r.Context(), principal.UserID, application.ProfileInput{
		Username:    req.Username,
		Email:       req.Email,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		logServiceError(r.Context(), logger, "profile update failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "profile updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newUserResponse(user))
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
	User      userResponse `json:"user"`
}

type updateProfileRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}
