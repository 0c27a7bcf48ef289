package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/middleware"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
)

// PostExportHandler answers like PostAnswerHandler and uploads the rows as
// CSV. The response carries the result and a download link.
func PostExportHandler(c echo.Context) error {
	app := middleware.GetApp(c)
	if app.Exporter == nil {
		return c.JSON(http.StatusNotImplemented, map[string]string{"error": "Export is not configured"})
	}

	body, err := bindAnswer(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	ctx := c.Request().Context()
	res := app.Answers.Answer(ctx, body.Utterance, body.Context)
	if !res.Done() {
		return c.JSON(util.StatusForResult(res), res)
	}

	export, err := app.Exporter.ExportCSV(ctx, res.Provenance.RequestID, res.Rows)
	if err != nil {
		logger.Error("Failed to export answer", "request", res.Provenance.RequestID, "err", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to store export"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"result": res,
		"export": export,
	})
}
