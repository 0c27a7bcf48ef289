package query_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/ai/aitest"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/cache"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog/catalogtest"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/execute"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore/graphstoretest"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/query"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/store"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/translate"
)

type fakeTranslator struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req common.TranslationRequest) ([]common.CandidateQuery, error)
}

func (f *fakeTranslator) Translate(ctx context.Context, req common.TranslationRequest, _ *catalog.Snapshot) ([]common.CandidateQuery, error) {
	f.calls.Add(1)
	return f.fn(ctx, req)
}

func translating(queries ...string) *fakeTranslator {
	return &fakeTranslator{fn: func(context.Context, common.TranslationRequest) ([]common.CandidateQuery, error) {
		out := make([]common.CandidateQuery, len(queries))
		for i, q := range queries {
			out[i] = common.CandidateQuery{Query: q, Confidence: 0.9 - float64(i)/10}
		}
		return out, nil
	}}
}

func suppliers() *graphstoretest.Store {
	return graphstoretest.Returning(&graphstore.Result{
		Columns: []string{"supplier"},
		Records: [][]common.Value{
			{common.String("Acme Foods")},
			{common.String("Green Farms")},
		},
	})
}

type fixture struct {
	orch       *query.Orchestrator
	translator *fakeTranslator
	store      *graphstoretest.Store
	catalog    *catalog.Catalog
	history    *store.MemoryHistory
}

func newFixture(t *testing.T, tr query.Translator, st *graphstoretest.Store, mutate ...func(*query.NewOrchestratorParams)) *fixture {
	t.Helper()
	cat := catalog.NewStaticCatalog(catalogtest.SupplyChain())
	hist := store.NewMemoryHistory(100)
	params := query.NewOrchestratorParams{
		Catalog:    cat,
		Translator: tr,
		Executor: execute.NewExecutor(execute.NewExecutorParams{
			Store:   st,
			Backoff: &util.Backoff{},
		}),
		History: hist,
	}
	for _, m := range mutate {
		m(&params)
	}
	orch, err := query.NewOrchestrator(context.Background(), params)
	require.NoError(t, err)

	f := &fixture{orch: orch, store: st, catalog: cat, history: hist}
	if ft, ok := tr.(*fakeTranslator); ok {
		f.translator = ft
	}
	return f
}

func TestAnswerShowAllSuppliers(t *testing.T) {
	f := newFixture(t, translating("MATCH (s:Supplier) RETURN s.supplier_name AS supplier"), suppliers())

	res := f.orch.Answer(context.Background(), "Show all suppliers", nil)
	require.True(t, res.Done(), "%s: %s", res.Kind, res.Provenance.Diagnostics)

	assert.Equal(t, 2, res.Rows.RowCount)
	assert.Equal(t, []string{"supplier"}, res.Rows.Columns)
	assert.Equal(t, "Acme Foods", res.Rows.Rows[0]["supplier"].Str)

	p := res.Provenance
	assert.NotEmpty(t, p.RequestID)
	assert.Equal(t, query.SourceTranslated, p.Source)
	assert.Equal(t, "MATCH (s:Supplier) RETURN s.supplier_name AS supplier\nLIMIT 1001", p.Query)
	assert.Equal(t, 0.9, p.Confidence)
	assert.True(t, p.LimitInjected)
	assert.Equal(t, 1000, p.RowCap)
	assert.False(t, p.CacheHit)
	assert.Equal(t, f.catalog.Describe().Version, p.SchemaVersion)
	assert.Len(t, p.Fingerprint, 64)
	assert.Equal(t, []query.State{
		query.StateReceived, query.StateCacheCheck, query.StateCacheMiss, query.StateTranslating,
		query.StateValidating, query.StateExecuting, query.StateCaching, query.StateDone,
	}, p.Trace)

	assert.Equal(t, []int{1001}, f.store.FetchLimits())
}

func TestAnswerIdempotentCacheHit(t *testing.T) {
	f := newFixture(t, translating("MATCH (s:Supplier) RETURN s.supplier_name AS supplier"), suppliers())
	ctx := context.Background()

	first := f.orch.Answer(ctx, "show all suppliers", nil)
	require.True(t, first.Done())
	second := f.orch.Answer(ctx, "  SHOW all   suppliers ", nil)
	require.True(t, second.Done())

	assert.Equal(t, first.Rows, second.Rows)
	assert.True(t, second.Provenance.CacheHit)
	assert.Equal(t, 1, second.Provenance.Hits)
	assert.Equal(t, first.Provenance.Query, second.Provenance.Query)
	assert.NotEqual(t, first.Provenance.RequestID, second.Provenance.RequestID)
	assert.Equal(t, []query.State{
		query.StateReceived, query.StateCacheCheck, query.StateCacheHit, query.StateDone,
	}, second.Provenance.Trace)

	assert.Equal(t, int32(1), f.translator.calls.Load())
	assert.Equal(t, 1, f.store.Calls())
	assert.Equal(t, int64(1), f.orch.CacheStats().Hits)
}

func TestAnswerDeleteAllShipmentsRejected(t *testing.T) {
	f := newFixture(t, translating("MATCH (s:Shipment) DETACH DELETE s"), suppliers(),
		func(p *query.NewOrchestratorParams) { p.Debug = true })

	res := f.orch.Answer(context.Background(), "delete all shipments", nil)
	require.False(t, res.Done())
	assert.Equal(t, common.ErrWriteNotAllowed, res.Kind)
	assert.Equal(t, "the request could not be safely answered", res.Message)
	assert.Nil(t, res.Rows)
	assert.Equal(t, "MATCH (s:Shipment) DETACH DELETE s", res.Provenance.Query)
	assert.Equal(t, query.StateFailed, res.Provenance.Trace[len(res.Provenance.Trace)-1])
	assert.True(t, common.IsKind(res.Err(), common.ErrWriteNotAllowed))
	assert.Zero(t, f.store.Calls())

	// failures are not cached
	f.orch.Answer(context.Background(), "delete all shipments", nil)
	assert.Equal(t, int32(2), f.translator.calls.Load())
	assert.Zero(t, f.orch.CacheStats().Entries)
}

func TestAnswerHidesQueryOnFailureWithoutDebug(t *testing.T) {
	f := newFixture(t, translating("MATCH (s:Shipment) DETACH DELETE s"), suppliers())

	res := f.orch.Answer(context.Background(), "delete all shipments", nil)
	assert.Equal(t, common.ErrWriteNotAllowed, res.Kind)
	assert.Empty(t, res.Provenance.Query)
	assert.Contains(t, res.Provenance.Diagnostics, "not allowed")
}

func TestAnswerFallsBackToLowerRankedCandidate(t *testing.T) {
	f := newFixture(t, translating(
		"MATCH (w:Warehouse) RETURN w",
		"MATCH (s:Supplier) RETURN s.supplier_name AS supplier",
	), suppliers())

	res := f.orch.Answer(context.Background(), "show all suppliers", nil)
	require.True(t, res.Done())
	assert.InDelta(t, 0.8, res.Provenance.Confidence, 1e-9)
	assert.Equal(t, 2, res.Provenance.Candidates)
}

func TestAnswerCoalescesConcurrentRequests(t *testing.T) {
	release := make(chan struct{})
	tr := &fakeTranslator{fn: func(ctx context.Context, _ common.TranslationRequest) ([]common.CandidateQuery, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []common.CandidateQuery{{Query: "MATCH (s:Supplier) RETURN s.supplier_name AS supplier", Confidence: 1}}, nil
	}}
	f := newFixture(t, tr, suppliers())

	const n = 8
	results := make([]*query.Result, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.orch.Answer(context.Background(), "show all suppliers", nil)
		}()
	}
	require.Eventually(t, func() bool { return f.orch.CacheStats().Coalesced == n-1 }, 2*time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	coalesced := 0
	for _, res := range results {
		require.True(t, res.Done())
		assert.Equal(t, results[0].Rows, res.Rows)
		if res.Provenance.Coalesced {
			coalesced++
		}
	}
	assert.Equal(t, n-1, coalesced)
	assert.Equal(t, int32(1), tr.calls.Load())
	assert.Equal(t, 1, f.store.Calls())
}

func TestAnswerProviderTimeoutWithinDeadline(t *testing.T) {
	client := aitest.New(func(ctx context.Context, _ int, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	tr := translate.NewTranslator(translate.NewTranslatorParams{Client: client, MaxRetries: 3, Backoff: &util.Backoff{}})
	f := newFixture(t, tr, suppliers(), func(p *query.NewOrchestratorParams) {
		p.AnswerTimeout = 200 * time.Millisecond
	})

	start := time.Now()
	res := f.orch.Answer(context.Background(), "show all suppliers", nil)
	elapsed := time.Since(start)

	assert.Equal(t, common.ErrProviderTimeout, res.Kind)
	assert.Equal(t, "could not translate your request", res.Message)
	assert.Less(t, elapsed, 200*time.Millisecond+500*time.Millisecond)
	assert.Equal(t, 1, client.FormatCalls())
	assert.Zero(t, f.store.Calls())
}

func TestAnswerCoalescedTimeoutWhileTranslating(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	tr := &fakeTranslator{fn: func(ctx context.Context, _ common.TranslationRequest) ([]common.CandidateQuery, error) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []common.CandidateQuery{{Query: "MATCH (s:Supplier) RETURN s.supplier_name AS supplier", Confidence: 1}}, nil
	}}
	f := newFixture(t, tr, suppliers(), func(p *query.NewOrchestratorParams) {
		p.AnswerTimeout = 5 * time.Second
	})

	first := make(chan *query.Result, 1)
	go func() {
		first <- f.orch.Answer(context.Background(), "show all suppliers", nil)
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res := f.orch.Answer(ctx, "show all suppliers", nil)

	assert.Equal(t, common.ErrProviderTimeout, res.Kind)
	assert.Equal(t, "could not translate your request", res.Message)
	assert.Equal(t, query.StateCacheCheck, res.Provenance.Trace[len(res.Provenance.Trace)-2])

	close(release)
	leader := <-first
	require.True(t, leader.Done())
	assert.Equal(t, int32(1), tr.calls.Load())
}

func TestAnswerCancelled(t *testing.T) {
	started := make(chan struct{})
	tr := &fakeTranslator{fn: func(ctx context.Context, _ common.TranslationRequest) ([]common.CandidateQuery, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	f := newFixture(t, tr, suppliers())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	res := f.orch.Answer(ctx, "show all suppliers", nil)
	assert.Equal(t, common.ErrCancelled, res.Kind)
	assert.Equal(t, "the request was cancelled", res.Message)
	assert.Eventually(t, func() bool { return f.orch.CacheStats().InFlight == 0 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, f.orch.CacheStats().Entries)
}

func TestAnswerExecutionFailureClassified(t *testing.T) {
	st := graphstoretest.New(func(context.Context, int, string, map[string]any, int) (*graphstore.Result, error) {
		return nil, errors.New("connection refused")
	})
	f := newFixture(t, translating("MATCH (s:Supplier) RETURN s"), st)

	res := f.orch.Answer(context.Background(), "show all suppliers", nil)
	assert.Equal(t, common.ErrStoreUnavailable, res.Kind)
	assert.Equal(t, "the data source is currently unavailable", res.Message)
}

func TestAnswerRowCapInvariant(t *testing.T) {
	st := graphstoretest.New(func(_ context.Context, _ int, _ string, _ map[string]any, fetchLimit int) (*graphstore.Result, error) {
		res := &graphstore.Result{Columns: []string{"id"}}
		for i := range fetchLimit {
			res.Records = append(res.Records, []common.Value{common.Integer(int64(i))})
		}
		res.HasMore = true
		return res, nil
	})
	f := newFixture(t, translating("MATCH (u:User) RETURN u.user_id AS id"), st)

	res := f.orch.Answer(context.Background(), "all users", nil)
	require.True(t, res.Done())
	assert.Equal(t, 1000, res.Rows.RowCount)
	assert.Len(t, res.Rows.Rows, 1000)
	assert.True(t, res.Rows.Truncated)
}

func TestRefreshInvalidatesCache(t *testing.T) {
	inv := catalogtest.SupplyChain()
	grown := catalogtest.SupplyChain()
	grown.Labels = append(grown.Labels, catalog.NodeLabel{Name: "Warehouse"})
	intro := catalogtest.NewIntrospector(
		catalogtest.Result{Inventory: &inv},
		catalogtest.Result{Inventory: &grown},
	)
	cat := catalog.NewCatalog(catalog.NewCatalogParams{Introspector: intro})
	_, err := cat.Load(context.Background())
	require.NoError(t, err)

	tr := translating("MATCH (s:Supplier) RETURN s.supplier_name AS supplier")
	orch, err := query.NewOrchestrator(context.Background(), query.NewOrchestratorParams{
		Catalog:    cat,
		Translator: tr,
		Executor:   execute.NewExecutor(execute.NewExecutorParams{Store: suppliers()}),
	})
	require.NoError(t, err)

	first := orch.Answer(context.Background(), "show all suppliers", nil)
	require.True(t, first.Done())
	assert.Equal(t, 1, orch.CacheStats().Entries)

	changed, err := cat.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, changed)
	assert.Zero(t, orch.CacheStats().Entries)
	assert.Equal(t, int64(1), orch.CacheStats().Purged)

	second := orch.Answer(context.Background(), "show all suppliers", nil)
	require.True(t, second.Done())
	assert.False(t, second.Provenance.CacheHit)
	assert.NotEqual(t, first.Provenance.SchemaVersion, second.Provenance.SchemaVersion)
	assert.Equal(t, int32(2), tr.calls.Load())
}

func TestAnswerWithoutCatalog(t *testing.T) {
	orch, err := query.NewOrchestrator(context.Background(), query.NewOrchestratorParams{
		Catalog:    catalog.NewCatalog(catalog.NewCatalogParams{}),
		Translator: translating("RETURN 1"),
		Executor:   execute.NewExecutor(execute.NewExecutorParams{Store: suppliers()}),
	})
	require.NoError(t, err)

	res := orch.Answer(context.Background(), "show all suppliers", nil)
	assert.Equal(t, common.ErrCatalogUnavailable, res.Kind)
	assert.Equal(t, "the data source is currently unavailable", res.Message)
}

func TestAnswerContextTurnsChangeFingerprint(t *testing.T) {
	var seen []common.TranslationRequest
	var mu sync.Mutex
	tr := &fakeTranslator{fn: func(_ context.Context, req common.TranslationRequest) ([]common.CandidateQuery, error) {
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()
		return []common.CandidateQuery{{Query: "MATCH (s:Shipment) RETURN s.status AS status", Confidence: 1}}, nil
	}}
	f := newFixture(t, tr, suppliers(), func(p *query.NewOrchestratorParams) { p.ContextTurns = 1 })

	turns := []common.Turn{
		{Utterance: "old", Query: "MATCH (u:User) RETURN u"},
		{Utterance: "show shipments", Query: "MATCH (s:Shipment) RETURN s"},
	}
	a := f.orch.Answer(context.Background(), "only late ones", turns)
	b := f.orch.Answer(context.Background(), "only late ones", nil)
	require.True(t, a.Done())
	require.True(t, b.Done())
	assert.NotEqual(t, a.Provenance.Fingerprint, b.Provenance.Fingerprint)

	require.Len(t, seen, 2)
	assert.Equal(t, turns[1:], seen[0].Context)
	assert.Equal(t, cache.Fingerprint("only late ones", turns[1:], f.catalog.Describe().Version), a.Provenance.Fingerprint)
}

func TestAnswerPredefined(t *testing.T) {
	f := newFixture(t, translating("RETURN 1"), suppliers())
	id := f.orch.Bank().First(1)[0].ID

	res, err := f.orch.AnswerPredefined(context.Background(), id)
	require.NoError(t, err)
	require.True(t, res.Done(), "%s: %s", res.Kind, res.Provenance.Diagnostics)
	assert.Equal(t, query.SourceCurated, res.Provenance.Source)
	assert.Equal(t, id, res.Provenance.QuestionID)
	assert.Equal(t, 1.0, res.Provenance.Confidence)
	assert.NotContains(t, res.Provenance.Trace, query.StateTranslating)
	assert.Zero(t, f.translator.calls.Load())

	again, err := f.orch.AnswerPredefined(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, again.Provenance.CacheHit)

	_, err = f.orch.AnswerPredefined(context.Background(), "no-such-question")
	assert.ErrorIs(t, err, query.ErrQuestionNotFound)
}

var countLabel = regexp.MustCompile(`MATCH \(n:(\w+)\)`)

func TestOverview(t *testing.T) {
	counts := map[string]int64{"User": 10, "Order": 20, "Product": 30, "Supplier": 4}
	st := graphstoretest.New(func(_ context.Context, _ int, q string, _ map[string]any, _ int) (*graphstore.Result, error) {
		m := countLabel.FindStringSubmatch(q)
		if m == nil {
			return nil, errors.New("unexpected query " + q)
		}
		return &graphstore.Result{
			Columns: []string{"nodes"},
			Records: [][]common.Value{{common.Integer(counts[m[1]])}},
		}, nil
	})
	f := newFixture(t, translating("RETURN 1"), st)

	ov, err := f.orch.Overview(context.Background())
	require.NoError(t, err)
	assert.Len(t, ov.Labels, 7)
	assert.Equal(t, int64(64), ov.Total)
	for _, l := range ov.Labels {
		assert.Equal(t, counts[l.Label], l.Count, l.Label)
	}
	assert.Equal(t, 7, st.Calls())

	_, err = f.orch.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, st.Calls(), "counts are cached")
	for _, q := range st.Queries() {
		assert.True(t, strings.HasSuffix(q, "LIMIT 1001"), q)
	}
}

func TestAnswerRecordsHistory(t *testing.T) {
	f := newFixture(t, translating("MATCH (s:Supplier) RETURN s.supplier_name AS supplier"), suppliers())
	ok := f.orch.Answer(context.Background(), "show all suppliers", nil)
	require.True(t, ok.Done())

	f.translator.fn = func(context.Context, common.TranslationRequest) ([]common.CandidateQuery, error) {
		return []common.CandidateQuery{{Query: "MATCH (s:Shipment) DELETE s", Confidence: 1}}, nil
	}
	f.orch.Answer(context.Background(), "delete shipments", nil)

	var recs []store.HistoryRecord
	require.Eventually(t, func() bool {
		recs, _ = f.history.RecentAnswers(context.Background(), 10)
		return len(recs) == 2
	}, time.Second, 5*time.Millisecond)

	byUtterance := map[string]store.HistoryRecord{}
	for _, r := range recs {
		byUtterance[r.Utterance] = r
	}
	done := byUtterance["show all suppliers"]
	assert.Equal(t, "Done", done.Outcome)
	assert.Equal(t, 2, done.RowCount)
	assert.Equal(t, ok.Provenance.RequestID, done.RequestID)

	failed := byUtterance["delete shipments"]
	assert.Equal(t, string(common.ErrWriteNotAllowed), failed.Outcome)
	assert.Equal(t, "MATCH (s:Shipment) DELETE s", failed.Query)
}

func TestQueryTraceIgnoresEventsAfterTerminalState(t *testing.T) {
	tr := query.NewQueryTrace()
	query.RecordState(tr, "r", query.StateReceived)
	query.RecordFailure(tr, "r", common.ErrCancelled)
	query.RecordState(tr, "r", query.StateExecuting)
	query.RecordVerdict(tr, "r", "MATCH (n) RETURN n", false, common.ErrSyntaxError)

	s := tr.Snapshot()
	assert.Equal(t, []query.State{query.StateReceived, query.StateFailed}, s.States)
	assert.Equal(t, "MATCH (n) RETURN n", s.LastQuery)
	assert.Equal(t, 1, s.Rejections[common.ErrSyntaxError])
	assert.Equal(t, query.StateFailed, tr.Last())
}
