// Package apitoken implements persisted long-lived API tokens for
// automation clients: issuance, listing, revocation, and the
// authentication strategy the request authenticator delegates to.
package apitoken

import (
	"strings"
	"time"
)

// TokenPrefix marks plaintext API tokens so they are recognizable in
// configs and secret scanners without being guessable.
const TokenPrefix = "tnk_"

// Default scopes granted when a create request names none.
var defaultScopes = []string{ScopeRead, ScopeWrite}

// Known scopes.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
)

// Token is a persisted API token row. The plaintext is shown exactly once
// at creation; only its SHA-256 hash is stored.
type Token struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	TokenHash  string     `json:"-"`
	Scopes     []string   `json:"scopes"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// IsExpired reports whether the token is past its optional expiry.
// Tokens without an expiry never expire.
func (t *Token) IsExpired() bool {
	return t.ExpiresAt != nil && time.Now().After(*t.ExpiresAt)
}

// joinScopes serializes scopes for the CSV column.
func joinScopes(scopes []string) string {
	return strings.Join(scopes, ",")
}

// splitScopes parses the CSV column back into a slice.
func splitScopes(csv string) []string {
	if csv == "" {
		return nil
	}
	return strings.Split(csv, ",")
}

// CreateTokenRequest is the body of POST /users/:id/tokens.
type CreateTokenRequest struct {
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// CreateTokenResponse carries the one-time plaintext alongside the row.
type CreateTokenResponse struct {
	Token     *Token `json:"token"`
	Plaintext string `json:"plaintext"`
}
