package server

import (
	"github.com/labstack/echo/v4"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/middleware"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo, app *middleware.App) {
	// Health check route
	e.GET("/health", routes.HealthHandler)

	if app.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(app.Metrics))
	}

	apiRoutes := e.Group("/api")

	// Answer routes
	apiRoutes.POST("/answer", routes.PostAnswerHandler)
	apiRoutes.POST("/answer/export", routes.PostExportHandler)
	apiRoutes.GET("/history", routes.GetHistoryHandler)

	// Curated question routes
	apiRoutes.GET("/questions", routes.GetQuestionsHandler)
	apiRoutes.POST("/questions/:id/answer", routes.PostQuestionAnswerHandler)
	apiRoutes.GET("/overview", routes.GetOverviewHandler)

	// Catalog routes
	apiRoutes.GET("/catalog", routes.GetCatalogHandler)
	apiRoutes.POST("/catalog/refresh", routes.PostCatalogRefreshHandler)
}
