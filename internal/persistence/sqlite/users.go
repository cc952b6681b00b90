package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/smart-scheduler/internal/persistence"
)

const userColumns = `id, username, email, password_hash, role, created_at, updated_at`

// UserRepository implements persistence.UserRepository using SQLite.
// Username and email columns are declared COLLATE NOCASE, so equality and
// uniqueness ignore case without extra normalisation here.
type UserRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateUser inserts a new user and returns it with its assigned ID.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO users (username, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.Role,
		formatTime(user.CreatedAt), formatTime(user.UpdatedAt))
	if err != nil {
		return persistence.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return persistence.User{}, fmt.Errorf("read user id: %w", err)
	}
	user.ID = id
	return user, nil
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id int64) (persistence.User, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scan(row)
}

// GetUserByLogin retrieves a user by username or email.
func (r *UserRepository) GetUserByLogin(ctx context.Context, login string) (persistence.User, error) {
	row := r.pool.DB().QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? ORDER BY id LIMIT 1`, login, login)
	return r.scan(row)
}

// UpdateUser replaces the mutable columns of an existing user.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET username = ?, email = ?, password_hash = ?, role = ?, updated_at = ?
		WHERE id = ?`,
		user.Username, user.Email, user.PasswordHash, user.Role, formatTime(user.UpdatedAt), user.ID)
	if err != nil {
		return persistence.User{}, fmt.Errorf("update user %d: %w", user.ID, err)
	}
	if err := requireAffected(result); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

// UsernameTaken reports whether another user already has username.
func (r *UserRepository) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE username = ? AND id <> ? LIMIT 1`, username, excludeID)
}

// EmailTaken reports whether another user already has email.
func (r *UserRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE email = ? AND id <> ? LIMIT 1`, email, excludeID)
}

func (r *UserRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := r.pool.DB().QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return true, nil
}

func (r *UserRepository) scan(row *sql.Row) (persistence.User, error) {
	var (
		user             persistence.User
		created, updated string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &created, &updated); err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	var err error
	if user.CreatedAt, err = parseTime(created); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updated); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
