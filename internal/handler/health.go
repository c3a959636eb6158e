package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Check is one readiness probe.  Optional checks are reported but do not
// make the service unready.
type Check struct {
	Name     string
	Optional bool
	Probe    func(ctx context.Context) error
}

type HealthHandler struct {
	Checks []Check
}

func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{Checks: checks}
}

// Health is the liveness probe.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready runs every check with a short timeout.  It answers 503 when a
// required check fails.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.Checks))
	for _, chk := range h.Checks {
		if err := chk.Probe(ctx); err != nil {
			results[chk.Name] = err.Error()
			if !chk.Optional {
				status = http.StatusServiceUnavailable
			}
			continue
		}
		results[chk.Name] = "ok"
	}
	return c.JSON(status, echo.Map{"status": http.StatusText(status), "checks": results})
}
