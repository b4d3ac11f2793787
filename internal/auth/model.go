// Package auth implements credential issuance and per-request identity
// resolution: password accounts, signed access tokens, persisted refresh
// tokens, and the multi-strategy request authenticator.
package auth

import "time"

// AuthMethod identifies how a request proved its identity. Downstream
// handlers use it to vary policy (e.g., CSRF applies to cookie sessions
// only, scopes apply to API tokens only).
type AuthMethod string

const (
	// MethodCookieSession is an access token carried in the httpOnly
	// session cookie — a browser client.
	MethodCookieSession AuthMethod = "cookie_session"

	// MethodBearerAccessToken is an access token carried in the
	// Authorization header — a mobile or API client holding a session.
	MethodBearerAccessToken AuthMethod = "bearer_access_token"

	// MethodAPIToken is a persisted long-lived token — an automation
	// client. The only method that carries scopes.
	MethodAPIToken AuthMethod = "api_token"
)

// Principal is the resolved identity of an authenticated request. It is
// never persisted; the authenticator builds one per request.
type Principal struct {
	UserID string
	Method AuthMethod

	// Scopes is the capability set of an API token. Empty for cookie and
	// bearer sessions, which carry the full capabilities of the user.
	Scopes []string
}

// HasScope reports whether the principal may perform operations requiring
// the given scope. Cookie and bearer sessions are unscoped and always pass.
func (p *Principal) HasScope(scope string) bool {
	if p.Method != MethodAPIToken {
		return true
	}
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// User represents an account row.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never exposed in JSON.
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// RefreshToken is one active session row. A user may hold several
// concurrently (one per device). The plaintext value is never stored;
// TokenHash is SHA-256(plaintext).
type RefreshToken struct {
	ID        int64
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the row is past its expiry. Expired rows are
// not swept; they are rejected lazily at use time.
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// --- Request DTOs ---

// RegisterRequest is the body of POST /users/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /users/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /users/refresh-token for clients
// that do not use the refresh cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest is the body of POST /users/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// --- Service DTOs ---

// RegisterInput is the validated input for creating an account.
type RegisterInput struct {
	Username string
	Password string
}

// LoginInput is the validated input for password authentication.
type LoginInput struct {
	Username string
	Password string
}

// SessionCredentials is a freshly issued access/refresh pair.
type SessionCredentials struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User        *User
	Credentials *SessionCredentials
}
