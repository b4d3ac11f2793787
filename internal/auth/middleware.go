package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tracknest/tracknest/internal/apperror"
)

// AccessCookieName holds the signed access token for browser clients.
const AccessCookieName = "tracknest_access"

// RefreshCookieName holds the opaque refresh token, scoped to the /users
// path so it only travels on session endpoints.
const RefreshCookieName = "tracknest_refresh"

// principalContextKey is the echo context key the authenticator stores the
// resolved Principal under.
const principalContextKey = "auth.principal"

// APITokenAuthenticator verifies a persisted API token and resolves it to
// a principal. Implemented by the apitoken package; declared here so auth
// does not import it.
type APITokenAuthenticator interface {
	AuthenticateToken(ctx context.Context, raw string) (*Principal, error)
}

// Authenticator resolves request credentials into a Principal. Strategies
// are tried in a fixed order and resolution is terminal on the first
// SUCCESS: a credential one stage rejects falls through to the next.
type Authenticator struct {
	issuer    *Issuer
	apiTokens APITokenAuthenticator
}

// NewAuthenticator creates the request authenticator. apiTokens may be
// nil, disabling the API-token strategy.
func NewAuthenticator(issuer *Issuer, apiTokens APITokenAuthenticator) *Authenticator {
	return &Authenticator{issuer: issuer, apiTokens: apiTokens}
}

// Authenticate inspects the request credentials in order: access cookie,
// bearer access token, persisted API token. A stage that rejects its
// credential does not end resolution; the next stage still runs, so a
// stale session cookie cannot shadow a valid Authorization header. Only
// after every stage has passed does the outcome depend on whether
// anything was presented at all: rejected everywhere maps to
// invalid_or_expired, presented nowhere to authentication_required.
func (a *Authenticator) Authenticate(c echo.Context) (*Principal, error) {
	req := c.Request()
	presented := false

	// 1. Access token in the session cookie.
	if cookie, err := req.Cookie(AccessCookieName); err == nil && cookie.Value != "" {
		presented = true
		if userID, err := a.issuer.VerifyAccessToken(cookie.Value); err == nil {
			return &Principal{UserID: userID, Method: MethodCookieSession}, nil
		}
	}

	// 2. Bearer token in the Authorization header. The same value may be
	// an access token or an API token; access tokens are tried first
	// because they are verified without a database hit.
	if raw, ok := bearerToken(req.Header.Get(echo.HeaderAuthorization)); ok {
		presented = true
		if userID, err := a.issuer.VerifyAccessToken(raw); err == nil {
			return &Principal{UserID: userID, Method: MethodBearerAccessToken}, nil
		}

		// 3. Persisted API token.
		if a.apiTokens != nil {
			if principal, err := a.apiTokens.AuthenticateToken(req.Context(), raw); err == nil {
				return principal, nil
			}
		}
	}

	if presented {
		// A credential was presented and every stage rejected it.
		return nil, apperror.NewInvalidOrExpired("invalid or expired token")
	}
	return nil, apperror.NewAuthRequired()
}

// RequireAuth rejects requests without a valid credential and stores the
// resolved principal on the context for handlers downstream.
func (a *Authenticator) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, err := a.Authenticate(c)
			if err != nil {
				return err
			}

			c.Set(principalContextKey, principal)
			return next(c)
		}
	}
}

// RequireScope rejects API-token principals lacking the given scope.
// Must run after RequireAuth.
func RequireScope(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := GetPrincipal(c)
			if principal == nil {
				return apperror.NewAuthRequired()
			}
			if !principal.HasScope(scope) {
				slog.Warn("scope denied",
					"user_id", principal.UserID, "scope", scope)
				return apperror.NewAccessDenied("token lacks required scope")
			}
			return next(c)
		}
	}
}

// GetPrincipal returns the principal resolved by RequireAuth, or nil on
// routes that never passed through it.
func GetPrincipal(c echo.Context) *Principal {
	principal, _ := c.Get(principalContextKey).(*Principal)
	return principal
}

// bearerToken extracts the credential from an "Authorization: Bearer x"
// header. The scheme comparison is case-insensitive per RFC 9110.
func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		token := strings.TrimSpace(header[len(prefix):])
		return token, token != ""
	}
	return "", false
}
