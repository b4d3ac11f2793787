package tracker

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tracknest/tracknest/internal/access"
	"github.com/tracknest/tracknest/internal/apperror"
	"github.com/tracknest/tracknest/internal/auth"
)

// Handler exposes the project hierarchy endpoints. Access control happens
// in the route middleware; handlers read the resolved decision where the
// project id is needed.
type Handler struct {
	service *Service
}

// NewHandler creates the tracker HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// --- Projects ---

// CreateProject handles POST /projects.
func (h *Handler) CreateProject(c echo.Context) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperror.NewAuthRequired()
	}

	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	p, err := h.service.CreateProject(c.Request().Context(), principal.UserID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

// ListProjects handles GET /projects.
func (h *Handler) ListProjects(c echo.Context) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperror.NewAuthRequired()
	}

	projects, err := h.service.ListProjects(c.Request().Context(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"projects": projects})
}

// GetProject handles GET /projects/:id.
func (h *Handler) GetProject(c echo.Context) error {
	p, err := h.service.GetProject(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// UpdateProject handles PUT /projects/:id.
func (h *Handler) UpdateProject(c echo.Context) error {
	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	p, err := h.service.UpdateProject(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// DeleteProject handles DELETE /projects/:id. Owner only.
func (h *Handler) DeleteProject(c echo.Context) error {
	if err := h.service.DeleteProject(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Sections ---

// CreateSection handles POST /projects/:id/sections.
func (h *Handler) CreateSection(c echo.Context) error {
	var req SectionRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	section, err := h.service.CreateSection(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, section)
}

// ListSections handles GET /projects/:id/sections.
func (h *Handler) ListSections(c echo.Context) error {
	sections, err := h.service.ListSections(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sections": sections})
}

// UpdateSection handles PUT /sections/:id.
func (h *Handler) UpdateSection(c echo.Context) error {
	var req SectionRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	section, err := h.service.UpdateSection(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, section)
}

// DeleteSection handles DELETE /sections/:id.
func (h *Handler) DeleteSection(c echo.Context) error {
	if err := h.service.DeleteSection(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Tasks ---

// CreateTask handles POST /sections/:id/tasks.
func (h *Handler) CreateTask(c echo.Context) error {
	var req TaskRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	task, err := h.service.CreateTask(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

// ListTasks handles GET /sections/:id/tasks.
func (h *Handler) ListTasks(c echo.Context) error {
	tasks, err := h.service.ListTasks(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// UpdateTask handles PUT /tasks/:id.
func (h *Handler) UpdateTask(c echo.Context) error {
	var req TaskRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	task, err := h.service.UpdateTask(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/:id.
func (h *Handler) DeleteTask(c echo.Context) error {
	if err := h.service.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Shares ---

// ShareProject handles POST /projects/:id/share. Owner only.
func (h *Handler) ShareProject(c echo.Context) error {
	decision := access.GetDecision(c)
	if decision == nil {
		return apperror.NewAuthRequired()
	}

	var req ShareRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	share, err := h.service.ShareProject(c.Request().Context(),
		c.Param("id"), decision.UserID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, share)
}

// ListShares handles GET /projects/:id/share. Owner only.
func (h *Handler) ListShares(c echo.Context) error {
	shares, err := h.service.ListShares(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"shares": shares})
}

// UnshareProject handles DELETE /projects/:id/share/:userId. Owner only.
func (h *Handler) UnshareProject(c echo.Context) error {
	err := h.service.UnshareProject(c.Request().Context(),
		c.Param("id"), c.Param("userId"))
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
