package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/smart-scheduler/internal/persistence"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 6
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	IssueToken(user User, now time.Time) (token string, expiresAt time.Time, err error)
}

// AuthService handles registration, login and profile maintenance.
type AuthService struct {
	users          persistence.UserRepository
	tokens         TokenIssuer
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	now            func() time.Time
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(users persistence.UserRepository, tokens TokenIssuer, hash PasswordHasher, verify PasswordVerifier, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(users, tokens, hash, verify, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(users persistence.UserRepository, tokens TokenIssuer, hash PasswordHasher, verify PasswordVerifier, now func() time.Time, logger *slog.Logger) *AuthService {
	if hash == nil {
		hash = HashPassword
	}
	if verify == nil {
		verify = VerifyPassword
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:          users,
		tokens:         tokens,
		hashPassword:   hash,
		verifyPassword: verify,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

func (s *AuthService) ready() error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}
	return nil
}

// Register creates an account. An empty role registers a regular user.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (user User, err error) {
	if err = s.ready(); err != nil {
		return
	}

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	logger := s.loggerWith(ctx, "Register", "username", username)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "registration failed", err)
			return
		}
		logger.With("user_id", user.ID, "role", user.Role).InfoContext(ctx, "user registered")
	}()

	role := input.Role
	if role == "" {
		role = RoleUser
	}

	vErr := validateAccount(username, email)
	if utf8.RuneCountInString(input.Password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if role != RoleUser && role != RoleAdmin {
		vErr.add("role", "role must be User or Admin")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureUnique(ctx, username, email, 0); err != nil {
		return
	}

	var hash string
	if hash, err = s.hashPassword(input.Password); err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now().UTC()
	var rec persistence.User
	rec, err = s.users.CreateUser(ctx, persistence.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         string(role),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}
	user = userFromRecord(rec)
	return
}

// Login verifies a username or email with its password and issues a token.
func (s *AuthService) Login(ctx context.Context, login, password string) (result LoginResult, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if s.tokens == nil {
		err = fmt.Errorf("token issuer not configured")
		return
	}

	login = strings.TrimSpace(login)
	logger := s.loggerWith(ctx, "Login", "login", login)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "authentication failed", err)
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "authentication succeeded")
	}()

	if login == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	var rec persistence.User
	rec, err = s.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if verr := s.verifyPassword(rec.PasswordHash, password); verr != nil {
		err = ErrInvalidCredentials
		return
	}

	user := userFromRecord(rec)
	var token string
	var expiresAt time.Time
	if token, expiresAt, err = s.tokens.IssueToken(user, s.now()); err != nil {
		err = fmt.Errorf("issue token: %w", err)
		return
	}

	result = LoginResult{Token: token, ExpiresAt: expiresAt, User: user}
	return
}

// Profile returns the account of userID.
func (s *AuthService) Profile(ctx context.Context, userID int64) (User, error) {
	if err := s.ready(); err != nil {
		return User{}, err
	}
	rec, err := s.users.GetUser(ctx, userID)
	if err != nil {
		err = mapRepoError(err)
		logFailure(ctx, s.loggerWith(ctx, "Profile", "user_id", userID), "failed to load profile", err)
		return User{}, err
	}
	return userFromRecord(rec), nil
}

// UpdateProfile changes the username and email and, when given, the password.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, input ProfileInput) (user User, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile", "user_id", userID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update profile", err)
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	vErr := validateAccount(username, email)
	if input.NewPassword != "" && utf8.RuneCountInString(input.NewPassword) < minPasswordLength {
		vErr.add("newPassword", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var rec persistence.User
	if rec, err = s.users.GetUser(ctx, userID); err != nil {
		err = mapRepoError(err)
		return
	}

	if err = s.ensureUnique(ctx, username, email, userID); err != nil {
		return
	}

	rec.Username = username
	rec.Email = email
	if input.NewPassword != "" {
		if rec.PasswordHash, err = s.hashPassword(input.NewPassword); err != nil {
			err = fmt.Errorf("hash password: %w", err)
			return
		}
	}
	rec.UpdatedAt = s.now().UTC()

	if rec, err = s.users.UpdateUser(ctx, rec); err != nil {
		err = mapRepoError(err)
		return
	}
	user = userFromRecord(rec)
	return
}

func (s *AuthService) ensureUnique(ctx context.Context, username, email string, excludeID int64) error {
	taken, err := s.users.UsernameTaken(ctx, username, excludeID)
	if err != nil {
		return mapRepoError(err)
	}
	if taken {
		return fmt.Errorf("username %q: %w", username, ErrAlreadyExists)
	}

	taken, err = s.users.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return mapRepoError(err)
	}
	if taken {
		return fmt.Errorf("email %q: %w", email, ErrAlreadyExists)
	}
	return nil
}

func validateAccount(username, email string) *ValidationError {
	vErr := &ValidationError{}
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		vErr.add("username", fmt.Sprintf("username must be between %d and %d characters", minUsernameLength, maxUsernameLength))
	}
	if email == "" {
		vErr.add("email", "email is required")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		vErr.add("email", "email is not a valid address")
	}
	return vErr
}
