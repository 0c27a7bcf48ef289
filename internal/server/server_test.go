package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/server"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/server/middleware"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/storage"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog/catalogtest"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/execute"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore/graphstoretest"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/metrics"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/query"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/store"
)

// translator answers every utterance with a fixed query per keyword.
type translator map[string]string

func (tr translator) Translate(_ context.Context, req common.TranslationRequest, _ *catalog.Snapshot) ([]common.CandidateQuery, error) {
	for kw, q := range tr {
		if strings.Contains(strings.ToLower(req.Utterance), kw) {
			return []common.CandidateQuery{{Query: q, Confidence: 0.9}}, nil
		}
	}
	return nil, common.Errorf(common.ErrNoCandidateProduced, "test.Translate", "no candidate")
}

type exporter struct {
	name string
	rows int
	err  error
}

func (e *exporter) ExportCSV(_ context.Context, name string, res *common.ExecutionResult) (*storage.Export, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.name = name
	e.rows = res.RowCount
	return &storage.Export{Key: "exports/" + name + ".csv", URL: "https://files/" + name, Rows: res.RowCount}, nil
}

type env struct {
	e       *echo.Echo
	app     *middleware.App
	store   *graphstoretest.Store
	history *store.MemoryHistory
	export  *exporter
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st := graphstoretest.New(func(_ context.Context, _ int, q string, _ map[string]any, _ int) (*graphstore.Result, error) {
		if strings.Contains(q, "count(n)") {
			return &graphstore.Result{Columns: []string{"nodes"}, Records: [][]common.Value{{common.Integer(2)}}}, nil
		}
		return &graphstore.Result{
			Columns: []string{"supplier"},
			Records: [][]common.Value{{common.String("Acme Foods")}, {common.String("Green Farms")}},
		}, nil
	})
	cat := catalog.NewCatalog(catalog.NewCatalogParams{Introspector: catalogtest.NewIntrospector()})
	_, err := cat.Load(context.Background())
	require.NoError(t, err)

	reg := metrics.NewRegistry()
	pipeline, err := metrics.NewPipeline(reg)
	require.NoError(t, err)

	hist := store.NewMemoryHistory(10)
	orch, err := query.NewOrchestrator(context.Background(), query.NewOrchestratorParams{
		Catalog: cat,
		Translator: translator{
			"supplier": "MATCH (s:Supplier) RETURN s.supplier_name AS supplier",
			"delete":   "MATCH (s:Shipment) DETACH DELETE s",
		},
		Executor: execute.NewExecutor(execute.NewExecutorParams{Store: st, Backoff: &util.Backoff{}}),
		History:  hist,
		Tracer:   pipeline,
	})
	require.NoError(t, err)

	exp := &exporter{}
	app := &middleware.App{
		Answers:  orch,
		Catalog:  cat,
		Store:    st,
		History:  hist,
		Exporter: exp,
		Metrics:  metrics.Handler(reg),
	}
	return &env{e: server.New(app), app: app, store: st, history: hist, export: exp}
}

func (v *env) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) && strings.HasPrefix(rec.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestPostAnswerDone(t *testing.T) {
	v := newEnv(t)

	rec, body := v.do(t, http.MethodPost, "/api/answer", `{"utterance":"Show all suppliers"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "done", body["status"])

	result := body["result"].(map[string]any)
	assert.Equal(t, float64(2), result["row_count"])
	prov := body["provenance"].(map[string]any)
	assert.Equal(t, "translated", prov["source"])
	assert.Contains(t, prov["query"], "LIMIT 1001")
	assert.NotContains(t, prov, "Diagnostics")
}

func TestPostAnswerRejectedWrite(t *testing.T) {
	v := newEnv(t)

	rec, body := v.do(t, http.MethodPost, "/api/answer", `{"utterance":"delete all shipments"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, string(common.ErrWriteNotAllowed), body["kind"])
	assert.Equal(t, "the request could not be safely answered", body["message"])
	assert.NotContains(t, body["provenance"], "query")
	assert.Zero(t, v.store.Calls())
}

func TestPostAnswerNoCandidate(t *testing.T) {
	v := newEnv(t)

	rec, body := v.do(t, http.MethodPost, "/api/answer", `{"utterance":"what is the weather"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(common.ErrNoCandidateProduced), body["kind"])
}

func TestPostAnswerStoreUnavailable(t *testing.T) {
	st := graphstoretest.New(func(context.Context, int, string, map[string]any, int) (*graphstore.Result, error) {
		return nil, errors.New("connection refused")
	})
	cat := catalog.NewStaticCatalog(catalogtest.SupplyChain())
	orch, err := query.NewOrchestrator(context.Background(), query.NewOrchestratorParams{
		Catalog:    cat,
		Translator: translator{"supplier": "MATCH (s:Supplier) RETURN s"},
		Executor:   execute.NewExecutor(execute.NewExecutorParams{Store: st, Backoff: &util.Backoff{}}),
	})
	require.NoError(t, err)
	e := server.New(&middleware.App{Answers: orch, Catalog: cat, Store: st})

	req := httptest.NewRequest(http.MethodPost, "/api/answer", strings.NewReader(`{"utterance":"suppliers"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), string(common.ErrStoreUnavailable))
}

func TestPostAnswerInvalidBody(t *testing.T) {
	v := newEnv(t)

	rec, _ := v.do(t, http.MethodPost, "/api/answer", `{"utterance":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = v.do(t, http.MethodPost, "/api/answer", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuestions(t *testing.T) {
	v := newEnv(t)

	rec, body := v.do(t, http.MethodGet, "/api/questions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["categories"])
	assert.Equal(t, float64(v.app.Answers.Bank().Len()), body["count"])

	id := v.app.Answers.Bank().First(1)[0].ID
	rec, body = v.do(t, http.MethodPost, "/api/questions/"+id+"/answer", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	prov := body["provenance"].(map[string]any)
	assert.Equal(t, "curated", prov["source"])
	assert.Equal(t, id, prov["question_id"])

	rec, _ = v.do(t, http.MethodPost, "/api/questions/nope/answer", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	v := newEnv(t)

	rec, body := v.do(t, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	version := body["version"]
	assert.NotEmpty(t, version)
	assert.Contains(t, body["vocabulary"], "Supplier")

	rec, body = v.do(t, http.MethodPost, "/api/catalog/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["changed"])
	assert.Equal(t, version, body["version"])
}

func TestOverview(t *testing.T) {
	v := newEnv(t)

	rec, body := v.do(t, http.MethodGet, "/api/overview", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(14), body["total"])
	assert.Len(t, body["labels"], 7)
}

func TestExport(t *testing.T) {
	v := newEnv(t)

	rec, body := v.do(t, http.MethodPost, "/api/answer/export", `{"utterance":"show all suppliers"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	export := body["export"].(map[string]any)
	assert.Equal(t, "exports/"+v.export.name+".csv", export["key"])
	assert.Equal(t, 2, v.export.rows)

	rec, _ = v.do(t, http.MethodPost, "/api/answer/export", `{"utterance":"delete all shipments"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	v.export.err = errors.New("bucket missing")
	rec, _ = v.do(t, http.MethodPost, "/api/answer/export", `{"utterance":"show all suppliers"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestExportNotConfigured(t *testing.T) {
	v := newEnv(t)
	v.app.Exporter = nil

	rec, _ := v.do(t, http.MethodPost, "/api/answer/export", `{"utterance":"show all suppliers"}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHistory(t *testing.T) {
	v := newEnv(t)
	v.do(t, http.MethodPost, "/api/answer", `{"utterance":"show all suppliers"}`)

	require.Eventually(t, func() bool {
		recs, _ := v.history.RecentAnswers(context.Background(), 0)
		return len(recs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var records []store.HistoryRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Done", records[0].Outcome)

	rec = httptest.NewRecorder()
	v.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=9999", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	v := newEnv(t)

	rec, body := v.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["store"])

	v.store.SetPingError(errors.New("down"))
	rec, body = v.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	v := newEnv(t)
	v.do(t, http.MethodPost, "/api/answer", `{"utterance":"show all suppliers"}`)

	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `supplychain_answers_total{outcome="Done"} 1`)
}
