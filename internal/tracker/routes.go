package tracker

import (
	"github.com/labstack/echo/v4"

	"github.com/tracknest/tracknest/internal/access"
	"github.com/tracknest/tracknest/internal/apitoken"
	"github.com/tracknest/tracknest/internal/auth"
)

// RegisterRoutes mounts the project hierarchy endpoints. Every route
// requires a principal; routes naming a resource also pass through the
// access guard, and mutations require the write scope.
func RegisterRoutes(e *echo.Echo, h *Handler, authn *auth.Authenticator, guard *access.Guard) {
	requireAuth := authn.RequireAuth()
	read := auth.RequireScope(apitoken.ScopeRead)
	write := auth.RequireScope(apitoken.ScopeWrite)

	projects := e.Group("/projects", requireAuth)
	projects.POST("", h.CreateProject, write)
	projects.GET("", h.ListProjects, read)
	projects.GET("/:id", h.GetProject, read, guard.RequireProject("id"))
	projects.PUT("/:id", h.UpdateProject, write, guard.RequireProject("id"))
	projects.DELETE("/:id", h.DeleteProject, write, guard.RequireProject("id"), access.RequireOwner())

	projects.POST("/:id/sections", h.CreateSection, write, guard.RequireProject("id"))
	projects.GET("/:id/sections", h.ListSections, read, guard.RequireProject("id"))

	projects.POST("/:id/share", h.ShareProject, write, guard.RequireProject("id"), access.RequireOwner())
	projects.GET("/:id/share", h.ListShares, read, guard.RequireProject("id"), access.RequireOwner())
	projects.DELETE("/:id/share/:userId", h.UnshareProject, write, guard.RequireProject("id"), access.RequireOwner())

	sections := e.Group("/sections", requireAuth)
	sections.PUT("/:id", h.UpdateSection, write, guard.RequireSection("id"))
	sections.DELETE("/:id", h.DeleteSection, write, guard.RequireSection("id"))
	sections.POST("/:id/tasks", h.CreateTask, write, guard.RequireSection("id"))
	sections.GET("/:id/tasks", h.ListTasks, read, guard.RequireSection("id"))

	tasks := e.Group("/tasks", requireAuth)
	tasks.PUT("/:id", h.UpdateTask, write, guard.RequireTask("id"))
	tasks.DELETE("/:id", h.DeleteTask, write, guard.RequireTask("id"))
}
