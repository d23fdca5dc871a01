package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do/v2"

	"github.com/nfrund/gymhub/internal/app"
	"github.com/nfrund/gymhub/internal/handlers"
	appmw "github.com/nfrund/gymhub/internal/middleware"
	"github.com/nfrund/gymhub/internal/realtime"
	"github.com/nfrund/gymhub/internal/websocket"
)

// RegisterRoutes sets up the core routes and mounts the modules under /api.
func (s *Server) RegisterRoutes(ctx context.Context) error {
	registry, err := do.Invoke[*realtime.Registry](s.injector)
	if err != nil {
		return err
	}
	checks, err := do.Invoke[app.HealthChecks](s.injector)
	if err != nil {
		return err
	}
	metrics, err := do.Invoke[*prometheus.Registry](s.injector)
	if err != nil {
		return err
	}
	bridge, err := do.Invoke[*websocket.Bridge](s.injector)
	if err != nil {
		return err
	}

	health := handlers.NewHealthHandler(registry, s.Cfg.Version, checks)
	s.E.GET("/healthz", health.Get)
	s.E.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))

	// Browsers cannot set headers on a websocket handshake, so /ws also
	// accepts the bearer token as ?token=.
	s.E.GET("/ws", bridge.Handler(), appmw.Identity(appmw.IdentityConfig{
		JWTSecret:       s.Cfg.JWTSecret,
		AllowQueryToken: true,
	}))

	api := s.E.Group("/api",
		appmw.Identity(appmw.IdentityConfig{JWTSecret: s.Cfg.JWTSecret}),
		appmw.RateLimiter(s.Cfg.RateLimitPerMin),
	)
	api.POST("/session", createSession)
	api.GET("/me", me)

	return s.InitModules(ctx, api)
}

// createSession stores the bearer-authenticated caller in the cookie
// session so later requests and websocket handshakes can omit the token.
func createSession(c echo.Context) error {
	id, err := handlers.Caller(c)
	if err != nil {
		return err
	}
	if err := appmw.SaveIdentity(c, id); err != nil {
		return handlers.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func me(c echo.Context) error {
	id, err := handlers.Caller(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, id)
}
