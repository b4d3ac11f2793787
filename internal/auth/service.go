package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tracknest/tracknest/internal/apperror"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
)

// Service implements account lifecycle: registration, password login,
// session refresh, logout and password changes. Credential minting is
// delegated to the Issuer.
type Service struct {
	users  UserRepository
	issuer *Issuer
}

// NewService creates the auth service.
func NewService(users UserRepository, issuer *Issuer) *Service {
	return &Service{users: users, issuer: issuer}
}

// Register creates an account and immediately issues a session, so a new
// user lands logged in. Username uniqueness is enforced by the database;
// a duplicate surfaces as a conflict error.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return nil, apperror.NewValidation(fmt.Sprintf(
			"username must be between %d and %d characters", minUsernameLen, maxUsernameLen))
	}
	if msg := validatePassword(input.Password); msg != "" {
		return nil, apperror.NewValidation(msg)
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if apperror.IsKind(err, apperror.KindConflict) {
			return nil, err
		}
		return nil, apperror.NewInternal(err)
	}

	creds, err := s.issuer.IssueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID)

	return &AuthResult{User: user, Credentials: creds}, nil
}

// Login authenticates a username/password pair and issues a session.
// Unknown username and wrong password return the same error, so the
// endpoint does not leak which usernames exist.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.NewInvalidOrExpired("invalid username or password")
		}
		return nil, apperror.NewInternal(err)
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return nil, apperror.NewInvalidOrExpired("invalid username or password")
	}

	creds, err := s.issuer.IssueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		// Bookkeeping only; the login itself succeeded.
		slog.Warn("failed to update last login", "user_id", user.ID, "error", err)
	}

	slog.Info("user logged in", "user_id", user.ID)

	return &AuthResult{User: user, Credentials: creds}, nil
}

// Logout revokes the presented refresh token. Missing or unknown tokens
// are a no-op so repeated logouts stay idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.issuer.Revoke(ctx, refreshToken)
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every refresh session of the user. Live access tokens keep
// working until their expiry; they are stateless by design.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if msg := validatePassword(newPassword); msg != "" {
		return apperror.NewValidation(msg)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return err
		}
		return apperror.NewInternal(err)
	}

	if !verifyPassword(currentPassword, user.PasswordHash) {
		return apperror.NewInvalidOrExpired("current password is incorrect")
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return apperror.NewInternal(err)
	}

	if err := s.issuer.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}

	slog.Info("password changed, all sessions revoked", "user_id", userID)
	return nil
}

// FindUserID resolves a username to its account id. Used by the sharing
// flow, where collaborators are named by username.
func (s *Service) FindUserID(ctx context.Context, username string) (string, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return "", err
		}
		return "", apperror.NewInternal(err)
	}
	return user.ID, nil
}

// GetUser returns the account row for the given id.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, err
		}
		return nil, apperror.NewInternal(err)
	}
	return user, nil
}
