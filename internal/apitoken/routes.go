package apitoken

import (
	"github.com/labstack/echo/v4"

	"github.com/tracknest/tracknest/internal/auth"
)

// RegisterRoutes mounts the token management endpoints.
func RegisterRoutes(e *echo.Echo, h *Handler, authn *auth.Authenticator) {
	e.POST("/users/:id/tokens", h.Create, authn.RequireAuth())
	e.GET("/users/:id/tokens", h.List, authn.RequireAuth())
	e.DELETE("/tokens/:id", h.Revoke, authn.RequireAuth())
}
