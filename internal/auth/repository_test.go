package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/tracknest/tracknest/internal/apperror"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, UserRepository, RefreshTokenRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return mock, NewUserRepository(db), NewRefreshTokenRepository(db)
}

func TestUserRepository_Create_DuplicateUsername(t *testing.T) {
	mock, users, _ := newMockDB(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-1", "alice", "hash").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := users.Create(context.Background(), &User{
		ID: "user-1", Username: "alice", PasswordHash: "hash",
	})
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("got %v, want conflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUserRepository_FindByUsername(t *testing.T) {
	mock, users, _ := newMockDB(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at", "last_login_at"}).
		AddRow("user-1", "alice", "hash", now, nil)
	mock.ExpectQuery("SELECT id, username, password_hash").
		WithArgs("alice").
		WillReturnRows(rows)

	user, err := users.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if user.ID != "user-1" || user.LastLoginAt != nil {
		t.Errorf("got %+v", user)
	}
}

func TestUserRepository_FindByUsername_NotFound(t *testing.T) {
	mock, users, _ := newMockDB(t)

	mock.ExpectQuery("SELECT id, username, password_hash").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at", "last_login_at"}))

	_, err := users.FindByUsername(context.Background(), "nobody")
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("got %v, want not_found", err)
	}
}

func TestRefreshTokenRepository_Create(t *testing.T) {
	mock, _, tokens := newMockDB(t)

	exp := time.Now().Add(24 * time.Hour)
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs("user-1", "somehash", exp).
		WillReturnResult(sqlmock.NewResult(7, 1))

	token := &RefreshToken{UserID: "user-1", TokenHash: "somehash", ExpiresAt: exp}
	if err := tokens.Create(context.Background(), token); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if token.ID != 7 {
		t.Errorf("got id %d, want 7", token.ID)
	}
}

func TestRefreshTokenRepository_FindByHash_NotFound(t *testing.T) {
	mock, _, tokens := newMockDB(t)

	mock.ExpectQuery("SELECT id, user_id, token_hash").
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at"}))

	_, err := tokens.FindByHash(context.Background(), "unknown")
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("got %v, want not_found", err)
	}
}
