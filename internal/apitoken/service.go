package apitoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tracknest/tracknest/internal/apperror"
	"github.com/tracknest/tracknest/internal/auth"
)

const (
	maxTokenNameLen = 100
	tokenByteLen    = 32
)

// Service manages persisted API tokens. All management operations are
// owner-scoped: a token id belonging to someone else reads as not found,
// never as forbidden, so ids do not leak across accounts.
type Service struct {
	repo Repository
}

// NewService creates the API token service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Statically assert the service satisfies the authenticator strategy.
var _ auth.APITokenAuthenticator = (*Service)(nil)

// CreateToken mints a token for the user and returns the plaintext once.
func (s *Service) CreateToken(ctx context.Context, userID string, req CreateTokenRequest) (*CreateTokenResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.NewValidation("token name is required")
	}
	if len(name) > maxTokenNameLen {
		return nil, apperror.NewValidation(fmt.Sprintf(
			"token name must be at most %d characters", maxTokenNameLen))
	}

	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	for _, scope := range scopes {
		if scope != ScopeRead && scope != ScopeWrite {
			return nil, apperror.NewValidation(fmt.Sprintf("unknown scope %q", scope))
		}
	}

	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return nil, apperror.NewValidation("expiry must be in the future")
	}

	raw := make([]byte, tokenByteLen)
	if _, err := rand.Read(raw); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("generating token: %w", err))
	}
	plaintext := TokenPrefix + hex.EncodeToString(raw)

	token := &Token{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		TokenHash: auth.HashToken(plaintext),
		Scopes:    scopes,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, apperror.NewInternal(err)
	}

	slog.Info("api token created",
		"user_id", userID, "token_id", token.ID, "name", name)

	return &CreateTokenResponse{Token: token, Plaintext: plaintext}, nil
}

// ListTokens returns all tokens of the user. Hashes never leave the
// repository layer's struct tags.
func (s *Service) ListTokens(ctx context.Context, userID string) ([]*Token, error) {
	tokens, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return tokens, nil
}

// RevokeToken deletes the token if it belongs to the user. A token owned
// by another user is reported as not found.
func (s *Service) RevokeToken(ctx context.Context, userID, tokenID string) error {
	token, err := s.repo.FindByID(ctx, tokenID)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return err
		}
		return apperror.NewInternal(err)
	}
	if token.UserID != userID {
		return apperror.NewNotFound("token not found")
	}

	if err := s.repo.Delete(ctx, tokenID); err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return err
		}
		return apperror.NewInternal(err)
	}

	slog.Info("api token revoked", "user_id", userID, "token_id", tokenID)
	return nil
}

// AuthenticateToken resolves a presented plaintext token to a principal.
// Revocation takes effect on the next request: every call hits the store.
func (s *Service) AuthenticateToken(ctx context.Context, raw string) (*auth.Principal, error) {
	if !strings.HasPrefix(raw, TokenPrefix) {
		return nil, apperror.NewInvalidOrExpired("invalid or expired token")
	}

	token, err := s.repo.FindByHash(ctx, auth.HashToken(raw))
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.NewInvalidOrExpired("invalid or expired token")
		}
		return nil, apperror.NewInternal(err)
	}
	if token.IsExpired() {
		return nil, apperror.NewInvalidOrExpired("invalid or expired token")
	}

	// Usage bookkeeping off the request path; a lost update is harmless.
	go func(id string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.TouchLastUsed(ctx, id); err != nil {
			slog.Warn("failed to update token last used", "token_id", id, "error", err)
		}
	}(token.ID)

	return &auth.Principal{
		UserID: token.UserID,
		Method: auth.MethodAPIToken,
		Scopes: token.Scopes,
	}, nil
}
