package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports failed backing stores by name.
type Pinger interface {
	Ping(ctx context.Context) map[string]error
}

func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "gatherly-api",
	})
}

// ReadinessCheck answers 503 while any store fails its ping. A nil pinger
// is always ready.
func ReadinessCheck(p Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if p == nil {
			return c.JSON(http.StatusOK, map[string]any{"status": "ready"})
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		failed := p.Ping(ctx)
		if len(failed) == 0 {
			return c.JSON(http.StatusOK, map[string]any{"status": "ready"})
		}
		stores := make(map[string]string, len(failed))
		for name, err := range failed {
			stores[name] = err.Error()
		}
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"stores": stores,
		})
	}
}
