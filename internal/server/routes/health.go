package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/middleware"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports 200 when a schema is loaded and the graph store
// answers, 503 otherwise.
func HealthHandler(c echo.Context) error {
	app := middleware.GetApp(c)

	body := map[string]any{"status": "ok"}
	status := http.StatusOK

	if snap := app.Catalog.Describe(); snap != nil {
		body["catalog_version"] = snap.Version
	} else {
		body["catalog_version"] = nil
		body["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	if app.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()
		if err := app.Store.Ping(ctx); err != nil {
			body["store"] = "unreachable"
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			body["store"] = "ok"
		}
	}

	body["cache"] = app.Answers.CacheStats()
	return c.JSON(status, body)
}
