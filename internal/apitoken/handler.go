package apitoken

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tracknest/tracknest/internal/apperror"
	"github.com/tracknest/tracknest/internal/auth"
)

// Handler exposes the token management endpoints. Management is a
// session-holder privilege: these routes reject API-token principals, so
// a leaked token cannot mint or revoke tokens.
type Handler struct {
	service *Service
}

// NewHandler creates the API token HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /users/:id/tokens.
func (h *Handler) Create(c echo.Context) error {
	principal, err := h.sessionPrincipalForUser(c)
	if err != nil {
		return err
	}

	var req CreateTokenRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	resp, err := h.service.CreateToken(c.Request().Context(), principal.UserID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// List handles GET /users/:id/tokens.
func (h *Handler) List(c echo.Context) error {
	principal, err := h.sessionPrincipalForUser(c)
	if err != nil {
		return err
	}

	tokens, err := h.service.ListTokens(c.Request().Context(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tokens": tokens})
}

// Revoke handles DELETE /tokens/:id.
func (h *Handler) Revoke(c echo.Context) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperror.NewAuthRequired()
	}
	if principal.Method == auth.MethodAPIToken {
		return apperror.NewAccessDenied("api tokens cannot manage tokens")
	}

	if err := h.service.RevokeToken(c.Request().Context(), principal.UserID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// sessionPrincipalForUser enforces the two invariants of the /users/:id
// routes: the principal must be a session (not an API token) and must be
// the user named in the path.
func (h *Handler) sessionPrincipalForUser(c echo.Context) (*auth.Principal, error) {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return nil, apperror.NewAuthRequired()
	}
	if principal.Method == auth.MethodAPIToken {
		return nil, apperror.NewAccessDenied("api tokens cannot manage tokens")
	}
	if principal.UserID != c.Param("id") {
		return nil, apperror.NewAccessDenied("cannot manage another user's tokens")
	}
	return principal, nil
}
