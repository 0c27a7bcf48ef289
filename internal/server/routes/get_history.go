package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/middleware"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/store"
)

func GetHistoryHandler(c echo.Context) error {
	type getHistoryParams struct {
		Limit int `query:"limit" validate:"gte=0,lte=500"`
	}

	params := new(getHistoryParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	history := middleware.GetApp(c).History
	if history == nil {
		return c.JSON(http.StatusOK, []store.HistoryRecord{})
	}

	records, err := history.RecentAnswers(c.Request().Context(), params.Limit)
	if err != nil {
		logger.Error("Failed to read answer history", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, records)
}
