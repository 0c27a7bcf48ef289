package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/queue"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/storage"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/cache"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/examples"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/query"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/store"
)

// Answerer is implemented by *query.Orchestrator.
type Answerer interface {
	Answer(ctx context.Context, utterance string, turns []common.Turn) *query.Result
	AnswerPredefined(ctx context.Context, id string) (*query.Result, error)
	Overview(ctx context.Context) (*query.Overview, error)
	Bank() *examples.Bank
	CacheStats() cache.Stats
}

// Catalog is implemented by *catalog.Catalog.
type Catalog interface {
	Describe() *catalog.Snapshot
	Refresh(ctx context.Context) (bool, error)
}

type Exporter interface {
	ExportCSV(ctx context.Context, name string, res *common.ExecutionResult) (*storage.Export, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds the services shared by all handlers. History, Exporter,
// Publisher and Metrics are optional.
type App struct {
	Answers   Answerer
	Catalog   Catalog
	Store     Pinger
	History   store.HistoryStore
	Exporter  Exporter
	Publisher queue.Publisher
	Metrics   http.Handler
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}

// GetApp returns the App of a request passed through AppContextMiddleware.
func GetApp(c echo.Context) *App {
	return c.(*AppContext).App
}
