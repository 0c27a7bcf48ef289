package util

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/query"
)

// StatusForKind maps a failure kind to an HTTP status. An empty kind is a
// success.
func StatusForKind(kind common.ErrorKind) int {
	switch {
	case kind == "":
		return http.StatusOK
	case kind.IsValidation(), kind == common.ErrNoCandidateProduced:
		return http.StatusUnprocessableEntity
	case kind == common.ErrCancelled:
		return http.StatusRequestTimeout
	case kind == common.ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}

func StatusForResult(res *query.Result) int {
	if res.Done() {
		return http.StatusOK
	}
	return StatusForKind(res.Kind)
}

// ErrorJSON writes err as {"error", "kind"} with the status of its kind. The
// message never carries the underlying cause.
func ErrorJSON(c echo.Context, err error) error {
	kind := common.KindOf(err)
	if kind == "" {
		kind = common.ErrInternal
	}
	return c.JSON(StatusForKind(kind), map[string]string{
		"error": kind.UserMessage(),
		"kind":  string(kind),
	})
}

// ContextTurns drops turns without an utterance and trims the rest.
func ContextTurns(turns []common.Turn) []common.Turn {
	out := make([]common.Turn, 0, len(turns))
	for _, t := range turns {
		u := strings.TrimSpace(t.Utterance)
		if u == "" {
			continue
		}
		out = append(out, common.Turn{Utterance: u, Query: strings.TrimSpace(t.Query)})
	}
	return out
}
