package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tracknest/tracknest/internal/apperror"
)

// mockRefreshRepo implements RefreshTokenRepository with overridable
// function fields.
type mockRefreshRepo struct {
	createFn        func(ctx context.Context, token *RefreshToken) error
	findByHashFn    func(ctx context.Context, hash string) (*RefreshToken, error)
	deleteByHashFn  func(ctx context.Context, hash string) error
	deleteForUserFn func(ctx context.Context, userID string) error
}

func (m *mockRefreshRepo) Create(ctx context.Context, token *RefreshToken) error {
	if m.createFn != nil {
		return m.createFn(ctx, token)
	}
	return nil
}

func (m *mockRefreshRepo) FindByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	if m.findByHashFn != nil {
		return m.findByHashFn(ctx, hash)
	}
	return nil, apperror.NewNotFound("refresh token not found")
}

func (m *mockRefreshRepo) DeleteByHash(ctx context.Context, hash string) error {
	if m.deleteByHashFn != nil {
		return m.deleteByHashFn(ctx, hash)
	}
	return nil
}

func (m *mockRefreshRepo) DeleteForUser(ctx context.Context, userID string) error {
	if m.deleteForUserFn != nil {
		return m.deleteForUserFn(ctx, userID)
	}
	return nil
}

func newTestIssuer(repo RefreshTokenRepository) *Issuer {
	return NewIssuer([]byte("test-secret-key-32-bytes-long!!!"), time.Hour, 24*time.Hour, repo)
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	issuer := newTestIssuer(&mockRefreshRepo{})

	token, exp, err := issuer.IssueAccessToken("user-1")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Errorf("expiry too soon: %v", exp)
	}

	userID, err := issuer.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("got user %q, want user-1", userID)
	}
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret-key-32-bytes-long!!!"), -time.Minute, 24*time.Hour, &mockRefreshRepo{})

	token, _, err := issuer.IssueAccessToken("user-1")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	_, err = issuer.VerifyAccessToken(token)
	if !apperror.IsKind(err, apperror.KindInvalidOrExpired) {
		t.Errorf("got %v, want invalid_or_expired", err)
	}
}

func TestVerifyAccessToken_WrongSecret(t *testing.T) {
	issuer := newTestIssuer(&mockRefreshRepo{})
	other := NewIssuer([]byte("another-secret-key-32-bytes-long"), time.Hour, 24*time.Hour, &mockRefreshRepo{})

	token, _, err := other.IssueAccessToken("user-1")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	if _, err := issuer.VerifyAccessToken(token); !apperror.IsKind(err, apperror.KindInvalidOrExpired) {
		t.Errorf("got %v, want invalid_or_expired", err)
	}
}

func TestVerifyAccessToken_Garbage(t *testing.T) {
	issuer := newTestIssuer(&mockRefreshRepo{})

	if _, err := issuer.VerifyAccessToken("not-a-token"); !apperror.IsKind(err, apperror.KindInvalidOrExpired) {
		t.Errorf("got %v, want invalid_or_expired", err)
	}
}

func TestIssueSession_StoresHashedToken(t *testing.T) {
	var stored *RefreshToken
	repo := &mockRefreshRepo{
		createFn: func(ctx context.Context, token *RefreshToken) error {
			stored = token
			return nil
		},
	}
	issuer := newTestIssuer(repo)

	creds, err := issuer.IssueSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if stored == nil {
		t.Fatal("refresh token was not persisted")
	}
	if stored.TokenHash == creds.RefreshToken {
		t.Error("refresh token stored in plaintext")
	}
	if stored.TokenHash != HashToken(creds.RefreshToken) {
		t.Error("stored hash does not match issued token")
	}
}

func TestRefresh_DoesNotRotateToken(t *testing.T) {
	created := 0
	deleted := 0
	repo := &mockRefreshRepo{
		createFn: func(ctx context.Context, token *RefreshToken) error {
			created++
			return nil
		},
		deleteByHashFn: func(ctx context.Context, hash string) error {
			deleted++
			return nil
		},
		findByHashFn: func(ctx context.Context, hash string) (*RefreshToken, error) {
			return &RefreshToken{
				UserID:    "user-1",
				TokenHash: hash,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	issuer := newTestIssuer(repo)

	access, _, err := issuer.Refresh(context.Background(), "some-refresh-token")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if access == "" {
		t.Fatal("no access token returned")
	}

	// The same refresh token stays valid: no new row, no deletion.
	if created != 0 || deleted != 0 {
		t.Errorf("refresh mutated the store: created=%d deleted=%d", created, deleted)
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	issuer := newTestIssuer(&mockRefreshRepo{})

	_, _, err := issuer.Refresh(context.Background(), "unknown")
	if !apperror.IsKind(err, apperror.KindInvalidOrExpired) {
		t.Fatalf("got %v, want invalid_or_expired", err)
	}
	var appErr *apperror.AppError
	if ok := errors.As(err, &appErr); !ok || appErr.Code != 403 {
		t.Errorf("got status %v, want 403", err)
	}
}

func TestRefresh_ExpiredToken(t *testing.T) {
	repo := &mockRefreshRepo{
		findByHashFn: func(ctx context.Context, hash string) (*RefreshToken, error) {
			return &RefreshToken{
				UserID:    "user-1",
				TokenHash: hash,
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil
		},
	}
	issuer := newTestIssuer(repo)

	if _, _, err := issuer.Refresh(context.Background(), "expired"); !apperror.IsKind(err, apperror.KindInvalidOrExpired) {
		t.Errorf("got %v, want invalid_or_expired", err)
	}
}

func TestRevoke_Idempotent(t *testing.T) {
	repo := &mockRefreshRepo{
		deleteByHashFn: func(ctx context.Context, hash string) error {
			return nil // deleting a missing row is not an error
		},
	}
	issuer := newTestIssuer(repo)

	if err := issuer.Revoke(context.Background(), "never-issued"); err != nil {
		t.Errorf("Revoke of unknown token: %v", err)
	}
	if err := issuer.Revoke(context.Background(), "never-issued"); err != nil {
		t.Errorf("second Revoke: %v", err)
	}
}
