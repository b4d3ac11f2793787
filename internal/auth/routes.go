package auth

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the session endpoints. The credential endpoints
// (register, login, refresh) take no auth middleware; the rest require a
// principal.
func RegisterRoutes(e *echo.Echo, h *Handler, authn *Authenticator, limit echo.MiddlewareFunc) {
	users := e.Group("/users")

	users.POST("/register", h.Register, limit)
	users.POST("/login", h.Login, limit)
	users.POST("/refresh-token", h.Refresh, limit)
	users.POST("/logout", h.Logout, authn.RequireAuth())
	users.POST("/change-password", h.ChangePassword, authn.RequireAuth())
	users.GET("/me", h.Me, authn.RequireAuth())

	e.GET("/csrf-token", h.CSRFToken)
}
