package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/middleware"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/util"
)

func GetOverviewHandler(c echo.Context) error {
	overview, err := middleware.GetApp(c).Answers.Overview(c.Request().Context())
	if err != nil {
		return util.ErrorJSON(c, err)
	}
	return c.JSON(http.StatusOK, overview)
}
