// Package app assembles the HTTP server: global middleware, the central
// error handler, and route registration for every feature package.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tracknest/tracknest/internal/apperror"
	"github.com/tracknest/tracknest/internal/auth"
	"github.com/tracknest/tracknest/internal/config"
	"github.com/tracknest/tracknest/internal/middleware"
)

// App holds the assembled server and its shared resources.
type App struct {
	echo *echo.Echo
	cfg  *config.Config
	db   *sql.DB
	rdb  *redis.Client
}

// New assembles the application: middleware stack, error handler, and all
// feature routes.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	a := &App{echo: e, cfg: cfg, db: db, rdb: rdb}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware installs the global chain. Order matters: recovery
// outermost so a panic anywhere still produces a response, then logging,
// then the security layers.
func (a *App) setupMiddleware() {
	secret := []byte(a.cfg.Auth.SecretKey)

	a.echo.Use(middleware.Recovery())
	a.echo.Use(middleware.RequestLogger())
	a.echo.Use(middleware.SecurityHeaders())
	a.echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   corsOrigins(a.cfg),
		AllowCredentials: true,
	}))
	a.echo.Use(middleware.CSRF(secret, auth.AccessCookieName))
}

func corsOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() {
		return []string{"http://localhost:3000", "http://localhost:5173"}
	}
	return nil
}

// Start begins serving on the configured port. Blocks until the server
// stops.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.cfg.Port)
	slog.Info("server starting", "addr", addr, "env", a.cfg.Env)

	if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes shared resources.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	if err := a.rdb.Close(); err != nil {
		slog.Warn("closing redis", "error", err)
	}
	if err := a.db.Close(); err != nil {
		slog.Warn("closing database", "error", err)
	}
	return nil
}

// Echo exposes the router, primarily for tests.
func (a *App) Echo() *echo.Echo {
	return a.echo
}

// errorHandler maps errors to JSON responses. AppErrors serialize
// themselves; echo's own HTTPErrors (404 on unknown route, 405) are
// translated; everything else is a masked 500.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			slog.Error("request failed",
				"kind", appErr.Kind,
				"path", c.Request().URL.Path,
				"error", appErr.Internal)
		}
		writeJSONError(c, appErr.Code, appErr)
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := http.StatusText(httpErr.Code)
		if s, ok := httpErr.Message.(string); ok {
			msg = s
		}
		kind := apperror.KindBadRequest
		if httpErr.Code == http.StatusNotFound {
			kind = apperror.KindNotFound
		}
		writeJSONError(c, httpErr.Code, &apperror.AppError{Kind: kind, Message: msg})
		return
	}

	slog.Error("unhandled error", "path", c.Request().URL.Path, "error", err)
	writeJSONError(c, http.StatusInternalServerError, apperror.NewInternal(nil))
}

func writeJSONError(c echo.Context, code int, body *apperror.AppError) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		slog.Error("writing error response", "error", err)
	}
}
