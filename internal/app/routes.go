package app

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tracknest/tracknest/internal/access"
	"github.com/tracknest/tracknest/internal/apitoken"
	"github.com/tracknest/tracknest/internal/auth"
	"github.com/tracknest/tracknest/internal/cache"
	"github.com/tracknest/tracknest/internal/middleware"
	"github.com/tracknest/tracknest/internal/tracker"
)

// setupRoutes constructs each feature package's stack and mounts its
// routes. Construction order follows the dependency direction: auth
// first, then the packages that consume principals.
func (a *App) setupRoutes() {
	secret := []byte(a.cfg.Auth.SecretKey)
	secureCookies := !a.cfg.IsDevelopment()

	// Credential endpoints get a tighter rate limit than the rest of the
	// API: they are the brute-force surface.
	credentialLimit := middleware.RateLimit(10, time.Minute)

	// auth
	userRepo := auth.NewUserRepository(a.db)
	refreshRepo := auth.NewRefreshTokenRepository(a.db)
	issuer := auth.NewIssuer(secret, a.cfg.Auth.AccessTokenTTL, a.cfg.Auth.RefreshTokenTTL, refreshRepo)
	authService := auth.NewService(userRepo, issuer)
	authHandler := auth.NewHandler(authService, secret, secureCookies)

	// apitoken
	tokenRepo := apitoken.NewRepository(a.db)
	tokenService := apitoken.NewService(tokenRepo)
	tokenHandler := apitoken.NewHandler(tokenService)

	authn := auth.NewAuthenticator(issuer, tokenService)

	// access
	accessRepo := access.NewRepository(a.db)
	guard := access.NewGuard(access.NewResolver(accessRepo))

	// tracker
	trackerRepo := tracker.NewRepository(a.db)
	trackerService := tracker.NewService(trackerRepo, authService, cache.NewRedis(a.rdb, "tracknest:"))
	trackerHandler := tracker.NewHandler(trackerService)

	auth.RegisterRoutes(a.echo, authHandler, authn, credentialLimit)
	apitoken.RegisterRoutes(a.echo, tokenHandler, authn)
	tracker.RegisterRoutes(a.echo, trackerHandler, authn, guard)

	a.echo.GET("/health", a.health)
}

// health reports liveness plus dependency reachability.
func (a *App) health(c echo.Context) error {
	ctx := c.Request().Context()

	status := http.StatusOK
	checks := map[string]string{"database": "ok", "redis": "ok"}

	if err := a.db.PingContext(ctx); err != nil {
		checks["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	}
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		checks["redis"] = "unreachable"
		status = http.StatusServiceUnavailable
	}

	return c.JSON(status, checks)
}
