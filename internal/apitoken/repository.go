package apitoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tracknest/tracknest/internal/apperror"
)

// Repository persists API token rows.
type Repository interface {
	Create(ctx context.Context, token *Token) error
	FindByHash(ctx context.Context, hash string) (*Token, error)
	FindByID(ctx context.Context, id string) (*Token, error)
	ListByUser(ctx context.Context, userID string) ([]*Token, error)
	Delete(ctx context.Context, id string) error
	TouchLastUsed(ctx context.Context, id string) error
}

type mysqlRepository struct {
	db *sql.DB
}

// NewRepository creates a MySQL-backed API token repository.
func NewRepository(db *sql.DB) Repository {
	return &mysqlRepository{db: db}
}

const tokenColumns = `id, user_id, name, token_hash, scopes, created_at, expires_at, last_used_at`

func (r *mysqlRepository) Create(ctx context.Context, token *Token) error {
	query := `INSERT INTO api_tokens (id, user_id, name, token_hash, scopes, expires_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.Name, token.TokenHash,
		joinScopes(token.Scopes), token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("inserting api token: %w", err)
	}
	return nil
}

func (r *mysqlRepository) FindByHash(ctx context.Context, hash string) (*Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM api_tokens WHERE token_hash = ?`

	return r.scanToken(r.db.QueryRowContext(ctx, query, hash))
}

func (r *mysqlRepository) FindByID(ctx context.Context, id string) (*Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM api_tokens WHERE id = ?`

	return r.scanToken(r.db.QueryRowContext(ctx, query, id))
}

func (r *mysqlRepository) scanToken(row *sql.Row) (*Token, error) {
	var t Token
	var scopes string
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &scopes,
		&t.CreatedAt, &t.ExpiresAt, &t.LastUsedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("token not found")
		}
		return nil, fmt.Errorf("scanning api token: %w", err)
	}
	t.Scopes = splitScopes(scopes)
	return &t, nil
}

func (r *mysqlRepository) ListByUser(ctx context.Context, userID string) ([]*Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM api_tokens
	          WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing api tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*Token
	for rows.Next() {
		var t Token
		var scopes string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &scopes,
			&t.CreatedAt, &t.ExpiresAt, &t.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning api token: %w", err)
		}
		t.Scopes = splitScopes(scopes)
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}

func (r *mysqlRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM api_tokens WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting api token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("token not found")
	}
	return nil
}

func (r *mysqlRepository) TouchLastUsed(ctx context.Context, id string) error {
	query := `UPDATE api_tokens SET last_used_at = NOW() WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("updating last used: %w", err)
	}
	return nil
}
