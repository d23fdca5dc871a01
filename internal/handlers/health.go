package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/gymhub/internal/realtime"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// HealthHandler serves /healthz.
type HealthHandler struct {
	registry *realtime.Registry
	checks   map[string]HealthCheck
	version  string
}

// NewHealthHandler creates a health handler. checks are run on every request.
func NewHealthHandler(registry *realtime.Registry, version string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{registry: registry, checks: checks, version: version}
}

type healthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Checks   map[string]string `json:"checks,omitempty"`
	Realtime realtime.Stats    `json:"realtime"`
}

// Get returns 200 when every check passes and 503 otherwise.
func (h *HealthHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	res := healthResponse{Status: "ok", Version: h.version, Checks: map[string]string{}}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			res.Checks[name] = err.Error()
			res.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		res.Checks[name] = "ok"
	}
	if h.registry != nil {
		res.Realtime = h.registry.Stats()
	}
	return c.JSON(status, res)
}
