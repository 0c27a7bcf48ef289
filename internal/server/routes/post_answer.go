package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/middleware"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/query"
)

type answerBody struct {
	Utterance string        `json:"utterance" validate:"required,max=2000"`
	Context   []common.Turn `json:"context" validate:"max=20"`
}

func bindAnswer(c echo.Context) (*answerBody, error) {
	body := new(answerBody)
	if err := c.Bind(body); err != nil {
		return nil, err
	}
	if err := c.Validate(body); err != nil {
		return nil, err
	}
	body.Context = util.ContextTurns(body.Context)
	return body, nil
}

func PostAnswerHandler(c echo.Context) error {
	body, err := bindAnswer(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := middleware.GetApp(c)
	res := app.Answers.Answer(c.Request().Context(), body.Utterance, body.Context)
	return c.JSON(util.StatusForResult(res), res)
}

func PostQuestionAnswerHandler(c echo.Context) error {
	type postQuestionAnswerParams struct {
		ID string `param:"id" validate:"required,max=200"`
	}

	params := new(postQuestionAnswerParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	app := middleware.GetApp(c)
	res, err := app.Answers.AnswerPredefined(c.Request().Context(), params.ID)
	if err != nil {
		if errors.Is(err, query.ErrQuestionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Question not found"})
		}
		return util.ErrorJSON(c, err)
	}
	return c.JSON(util.StatusForResult(res), res)
}
