package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tracknest/tracknest/internal/apperror"
	"github.com/tracknest/tracknest/internal/middleware"
)

// Handler exposes the session endpoints. Credentials travel both ways:
// cookies for browsers, a JSON body for mobile and API clients. Both are
// always set, so the handler does not need to sniff the client type.
type Handler struct {
	service       *Service
	csrfSecret    []byte
	secureCookies bool
}

// NewHandler creates the auth HTTP handler.
func NewHandler(service *Service, csrfSecret []byte, secureCookies bool) *Handler {
	return &Handler{service: service, csrfSecret: csrfSecret, secureCookies: secureCookies}
}

type sessionResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
	CSRFToken    string `json:"csrfToken"`
}

// Register handles POST /users/register.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	result, err := h.service.Register(c.Request().Context(), RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	csrf, err := h.establishSession(c, result.Credentials)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sessionResponse{
		User:         result.User,
		AccessToken:  result.Credentials.AccessToken,
		RefreshToken: result.Credentials.RefreshToken,
		ExpiresAt:    result.Credentials.AccessExpiresAt.Unix(),
		CSRFToken:    csrf,
	})
}

// Login handles POST /users/login.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	result, err := h.service.Login(c.Request().Context(), LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	csrf, err := h.establishSession(c, result.Credentials)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sessionResponse{
		User:         result.User,
		AccessToken:  result.Credentials.AccessToken,
		RefreshToken: result.Credentials.RefreshToken,
		ExpiresAt:    result.Credentials.AccessExpiresAt.Unix(),
		CSRFToken:    csrf,
	})
}

// Refresh handles POST /users/refresh-token. The refresh token comes from
// the refresh cookie or the JSON body; a rejected token is a 403, not a
// 401, so clients do not retry it.
func (h *Handler) Refresh(c echo.Context) error {
	raw := h.refreshTokenFromRequest(c)
	if raw == "" {
		return apperror.NewRefreshRejected()
	}

	access, exp, err := h.service.issuer.Refresh(c.Request().Context(), raw)
	if err != nil {
		return err
	}

	h.setAccessCookie(c, access, exp)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"accessToken": access,
		"expiresAt":   exp.Unix(),
	})
}

// Logout handles POST /users/logout: revoke the refresh token and clear
// both session cookies. Always succeeds.
func (h *Handler) Logout(c echo.Context) error {
	raw := h.refreshTokenFromRequest(c)
	if err := h.service.Logout(c.Request().Context(), raw); err != nil {
		return err
	}

	h.clearSessionCookies(c)

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// ChangePassword handles POST /users/change-password. Every session is
// revoked afterwards, so the client must log in again.
func (h *Handler) ChangePassword(c echo.Context) error {
	principal := GetPrincipal(c)
	if principal == nil {
		return apperror.NewAuthRequired()
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	err := h.service.ChangePassword(c.Request().Context(), principal.UserID,
		req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}

	h.clearSessionCookies(c)

	return c.JSON(http.StatusOK, map[string]string{"message": "password changed"})
}

// Me handles GET /users/me.
func (h *Handler) Me(c echo.Context) error {
	principal := GetPrincipal(c)
	if principal == nil {
		return apperror.NewAuthRequired()
	}

	user, err := h.service.GetUser(c.Request().Context(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// CSRFToken handles GET /csrf-token: issue a fresh double-submit pair for
// single-page apps that lost the in-memory half on reload.
func (h *Handler) CSRFToken(c echo.Context) error {
	token, err := middleware.IssueCSRFToken(c, h.csrfSecret)
	if err != nil {
		return apperror.NewInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"csrfToken": token})
}

// establishSession sets the session cookies and issues the CSRF pair.
func (h *Handler) establishSession(c echo.Context, creds *SessionCredentials) (string, error) {
	h.setAccessCookie(c, creds.AccessToken, creds.AccessExpiresAt)

	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    creds.RefreshToken,
		Path:     "/users",
		Expires:  creds.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})

	csrf, err := middleware.IssueCSRFToken(c, h.csrfSecret)
	if err != nil {
		return "", apperror.NewInternal(err)
	}
	return csrf, nil
}

func (h *Handler) setAccessCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     AccessCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearSessionCookies(c echo.Context) {
	for _, spec := range []struct{ name, path string }{
		{AccessCookieName, "/"},
		{RefreshCookieName, "/users"},
		{middleware.CSRFCookieName, "/"},
	} {
		c.SetCookie(&http.Cookie{
			Name:     spec.name,
			Value:    "",
			Path:     spec.path,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// refreshTokenFromRequest reads the refresh token from the cookie first,
// then the JSON body for cookieless clients.
func (h *Handler) refreshTokenFromRequest(c echo.Context) string {
	if cookie, err := c.Request().Cookie(RefreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req RefreshRequest
	if err := c.Bind(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}
