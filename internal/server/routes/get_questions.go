package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/middleware"
)

func GetQuestionsHandler(c echo.Context) error {
	bank := middleware.GetApp(c).Answers.Bank()
	return c.JSON(http.StatusOK, map[string]any{
		"count":      bank.Len(),
		"categories": bank.Groups(),
	})
}
