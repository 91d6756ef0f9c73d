package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable
type Pinger func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	checks map[string]Pinger
	log    *logrus.Entry
}

// NewHealthHandler creates a new HealthHandler. checks are keyed by dependency name.
func NewHealthHandler(checks map[string]Pinger, log *logrus.Entry) *HealthHandler {
	return &HealthHandler{checks: checks, log: log}
}

// RegisterHealthRoutes registers the probe routes
func (h *HealthHandler) RegisterHealthRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/ready", h.Readiness)
}

// Liveness answers as long as the process serves HTTP
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "devvault-api",
	})
}

// Readiness pings every dependency and answers 503 if any is down
func (h *HealthHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.log.WithError(err).WithField("dependency", name).Error("Readiness check failed")
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "up"
	}

	ready := "ready"
	if status != http.StatusOK {
		ready = "not ready"
	}
	return c.JSON(status, echo.Map{"status": ready, "dependencies": results})
}
