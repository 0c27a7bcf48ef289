package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/queue"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/middleware"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
)

func GetCatalogHandler(c echo.Context) error {
	snap := middleware.GetApp(c).Catalog.Describe()
	if snap == nil {
		return util.ErrorJSON(c, common.Errorf(common.ErrCatalogUnavailable, "routes.GetCatalog", "no schema loaded"))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"version":       snap.Version,
		"loaded_at":     snap.LoadedAt,
		"labels":        snap.Labels,
		"relationships": snap.Relationships,
		"vocabulary":    snap.Vocabulary(),
	})
}

// PostCatalogRefreshHandler reloads the schema. A changed version is
// announced to the other instances when a broker is configured.
func PostCatalogRefreshHandler(c echo.Context) error {
	app := middleware.GetApp(c)
	ctx := c.Request().Context()

	changed, err := app.Catalog.Refresh(ctx)
	if err != nil {
		return util.ErrorJSON(c, err)
	}
	snap := app.Catalog.Describe()

	if changed && app.Publisher != nil {
		if err := queue.PublishCatalogRefreshed(ctx, app.Publisher, snap); err != nil {
			logger.Warn("Failed to announce catalog refresh", "version", snap.Version, "err", err)
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"version": snap.Version,
		"changed": changed,
	})
}
