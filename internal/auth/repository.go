package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/tracknest/tracknest/internal/apperror"
)

// mysqlDuplicateEntry is the MySQL error number for a unique-key violation.
const mysqlDuplicateEntry = 1062

// UserRepository persists account rows.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	TouchLastLogin(ctx context.Context, id string) error
}

// RefreshTokenRepository persists session rows keyed by token hash.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*RefreshToken, error)
	DeleteByHash(ctx context.Context, hash string) error
	DeleteForUser(ctx context.Context, userID string) error
}

type mysqlUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a MySQL-backed user repository.
func NewUserRepository(db *sql.DB) UserRepository {
	return &mysqlUserRepository{db: db}
}

func (r *mysqlUserRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, username, password_hash) VALUES (?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return apperror.NewConflict("username already taken")
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *mysqlUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, username, password_hash, created_at, last_login_at
	          FROM users WHERE id = ?`

	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *mysqlUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT id, username, password_hash, created_at, last_login_at
	          FROM users WHERE username = ?`

	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *mysqlUserRepository) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("user not found")
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}

func (r *mysqlUserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	query := `UPDATE users SET password_hash = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, hash, id)
	if err != nil {
		return fmt.Errorf("updating password hash: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

func (r *mysqlUserRepository) TouchLastLogin(ctx context.Context, id string) error {
	query := `UPDATE users SET last_login_at = NOW() WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

type mysqlRefreshTokenRepository struct {
	db *sql.DB
}

// NewRefreshTokenRepository creates a MySQL-backed refresh token repository.
func NewRefreshTokenRepository(db *sql.DB) RefreshTokenRepository {
	return &mysqlRefreshTokenRepository{db: db}
}

func (r *mysqlRefreshTokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	query := `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, token.UserID, token.TokenHash, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("inserting refresh token: %w", err)
	}
	token.ID, _ = res.LastInsertId()
	return nil
}

func (r *mysqlRefreshTokenRepository) FindByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	query := `SELECT id, user_id, token_hash, expires_at, created_at
	          FROM refresh_tokens WHERE token_hash = ?`

	var t RefreshToken
	err := r.db.QueryRowContext(ctx, query, hash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("refresh token not found")
		}
		return nil, fmt.Errorf("scanning refresh token: %w", err)
	}
	return &t, nil
}

func (r *mysqlRefreshTokenRepository) DeleteByHash(ctx context.Context, hash string) error {
	query := `DELETE FROM refresh_tokens WHERE token_hash = ?`

	if _, err := r.db.ExecContext(ctx, query, hash); err != nil {
		return fmt.Errorf("deleting refresh token: %w", err)
	}
	return nil
}

func (r *mysqlRefreshTokenRepository) DeleteForUser(ctx context.Context, userID string) error {
	query := `DELETE FROM refresh_tokens WHERE user_id = ?`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("deleting refresh tokens for user: %w", err)
	}
	return nil
}
