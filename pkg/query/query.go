// Package query is the single entry point of the question answering
// pipeline. It checks the result cache, translates, validates and executes,
// and reports every request as Done or Failed with full provenance.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/cache"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/examples"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/store"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/validate"
)

const (
	DefaultAnswerTimeout  = 30 * time.Second
	DefaultTranslateShare = 0.6
	DefaultContextTurns   = 3

	historyTimeout = 5 * time.Second
)

// ErrQuestionNotFound is returned by AnswerPredefined for unknown ids.
var ErrQuestionNotFound = errors.New("question not found")

// SchemaSource provides the current catalog snapshot. *catalog.Catalog
// satisfies it.
type SchemaSource interface {
	Describe() *catalog.Snapshot
	OnRefresh(fn catalog.RefreshListener)
}

type Translator interface {
	Translate(ctx context.Context, req common.TranslationRequest, snap *catalog.Snapshot) ([]common.CandidateQuery, error)
}

type Executor interface {
	Execute(ctx context.Context, query string, rowCap int) (*common.ExecutionResult, error)
}

type Orchestrator struct {
	catalog        SchemaSource
	translator     Translator
	validator      *validate.Validator
	executor       Executor
	cache          *cache.Cache[answer]
	bank           *examples.Bank
	history        store.HistoryStore
	tracer         Tracer
	answerTimeout  time.Duration
	translateShare float64
	contextTurns   int
	debug          bool
	now            func() time.Time

	// running maps a fingerprint to the trace of the request computing it.
	running sync.Map
}

// NewOrchestratorParams wires the pipeline stages. Catalog, Translator and
// Executor are required. History and Tracer are optional.
type NewOrchestratorParams struct {
	Catalog    SchemaSource
	Translator Translator
	Validator  *validate.Validator
	Executor   Executor
	Bank       *examples.Bank
	History    store.HistoryStore
	Tracer     Tracer

	Cache      cache.Config
	Registerer prometheus.Registerer

	AnswerTimeout  time.Duration
	TranslateShare float64
	ContextTurns   int
	// Debug exposes the failing query text in the provenance of failures.
	Debug bool
}

// NewOrchestrator builds the orchestrator and its cache. The cache janitor
// runs until ctx is done. The cache is purged whenever the catalog reports a
// new schema version.
func NewOrchestrator(ctx context.Context, params NewOrchestratorParams) (*Orchestrator, error) {
	if params.Catalog == nil || params.Translator == nil || params.Executor == nil {
		return nil, errors.New("query: catalog, translator and executor are required")
	}

	cacheCfg := params.Cache
	if cacheCfg.Registerer == nil {
		cacheCfg.Registerer = params.Registerer
	}
	if cacheCfg.Name == "" {
		cacheCfg.Name = "answers"
	}
	c, err := cache.New[answer](ctx, cacheCfg)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		catalog:        params.Catalog,
		translator:     params.Translator,
		validator:      params.Validator,
		executor:       params.Executor,
		cache:          c,
		bank:           params.Bank,
		history:        params.History,
		tracer:         params.Tracer,
		answerTimeout:  params.AnswerTimeout,
		translateShare: params.TranslateShare,
		contextTurns:   params.ContextTurns,
		debug:          params.Debug,
		now:            time.Now,
	}
	if o.validator == nil {
		o.validator = validate.NewValidator(validate.DefaultPolicy())
	}
	if o.bank == nil {
		o.bank = examples.Default()
	}
	if o.answerTimeout <= 0 {
		o.answerTimeout = DefaultAnswerTimeout
	}
	if o.translateShare <= 0 || o.translateShare >= 1 {
		o.translateShare = DefaultTranslateShare
	}
	if o.contextTurns <= 0 {
		o.contextTurns = DefaultContextTurns
	}

	o.catalog.OnRefresh(func(previous, current *catalog.Snapshot) {
		n := o.cache.Purge()
		logger.Info("Purged answer cache after schema refresh", "entries", n, "version", current.Version)
	})
	return o, nil
}

func (o *Orchestrator) Bank() *examples.Bank {
	return o.bank
}

func (o *Orchestrator) CacheStats() cache.Stats {
	return o.cache.Stats()
}

// request carries the per-call bookkeeping through the pipeline.
type request struct {
	id        string
	utterance string
	source    string
	question  string
	start     time.Time
	trace     *QueryTrace
	tracer    Tracer
}

func (o *Orchestrator) newRequest(utterance, source string) *request {
	id, err := gonanoid.New()
	if err != nil {
		id = fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	trace := NewQueryTrace()
	r := &request{
		id:        id,
		utterance: utterance,
		source:    source,
		start:     o.now(),
		trace:     trace,
		tracer:    MultiTracer{trace, o.tracer},
	}
	r.enter(StateReceived)
	return r
}

func (r *request) enter(s State) {
	RecordState(r.tracer, r.id, s)
	logger.Debug("Answer state", "request", r.id, "state", s)
}

// Answer translates utterance into a graph query, runs it and returns the
// rows. turns are the prior exchanges of the conversation, oldest first;
// only the most recent ones are used.
//
// Answer never returns nil. Failures are reported in the Result.
func (o *Orchestrator) Answer(ctx context.Context, utterance string, turns []common.Turn) *Result {
	req := o.newRequest(utterance, SourceTranslated)

	ctx, cancel := context.WithTimeout(ctx, o.answerTimeout)
	defer cancel()

	snap := o.catalog.Describe()
	if snap == nil {
		return o.fail(req, nil, "", common.Errorf(common.ErrCatalogUnavailable, "query.Answer", "no schema loaded"))
	}
	if strings.TrimSpace(utterance) == "" {
		return o.fail(req, snap, "", common.Errorf(common.ErrNoCandidateProduced, "query.Answer", "empty utterance"))
	}
	if len(turns) > o.contextTurns {
		turns = turns[len(turns)-o.contextTurns:]
	}

	tr := common.TranslationRequest{Utterance: utterance, Context: turns, RequestedAt: req.start}
	fp := cache.Fingerprint(utterance, turns, snap.Version)
	return o.run(ctx, req, snap, fp, func(ctx context.Context) (answer, error) {
		return o.translated(ctx, req, tr, snap)
	})
}

// AnswerPredefined runs the curated question id. Translation is skipped; the
// curated query is still validated, executed and cached.
func (o *Orchestrator) AnswerPredefined(ctx context.Context, id string) (*Result, error) {
	q, ok := o.bank.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	req := o.newRequest(q.Question, SourceCurated)
	req.question = q.ID
	return o.answerQuery(ctx, req, q.Query), nil
}

// answerQuery runs a known query through the cache, validation and
// execution.
func (o *Orchestrator) answerQuery(ctx context.Context, req *request, query string) *Result {
	ctx, cancel := context.WithTimeout(ctx, o.answerTimeout)
	defer cancel()

	snap := o.catalog.Describe()
	if snap == nil {
		return o.fail(req, nil, "", common.Errorf(common.ErrCatalogUnavailable, "query.Answer", "no schema loaded"))
	}
	fp := cache.QueryFingerprint(query, snap.Version)
	return o.run(ctx, req, snap, fp, func(ctx context.Context) (answer, error) {
		req.enter(StateCacheMiss)
		return o.validated(ctx, req, snap, []common.CandidateQuery{{Query: query, Confidence: 1}}, 1)
	})
}

func (o *Orchestrator) run(
	ctx context.Context,
	req *request,
	snap *catalog.Snapshot,
	fp string,
	compute func(context.Context) (answer, error),
) *Result {
	req.enter(StateCacheCheck)
	entry, outcome, err := o.cache.Do(ctx, fp, func(ctx context.Context) (answer, error) {
		o.running.Store(fp, req.trace)
		defer o.running.CompareAndDelete(fp, req.trace)
		return compute(ctx)
	})
	if err != nil {
		return o.fail(req, snap, fp, o.classify(ctx, req, fp, err))
	}

	switch outcome {
	case cache.Hit:
		req.enter(StateCacheHit)
	case cache.Coalesced:
		req.enter(StateCacheMiss)
	}
	req.enter(StateDone)

	a := entry.Value
	res := &Result{
		Status: StatusDone,
		Rows:   a.rows,
		Provenance: Provenance{
			RequestID:     req.id,
			Source:        req.source,
			QuestionID:    req.question,
			Query:         a.query,
			Confidence:    a.confidence,
			Candidates:    a.candidates,
			CacheHit:      outcome == cache.Hit,
			Coalesced:     outcome == cache.Coalesced,
			Hits:          entry.Hits,
			Fingerprint:   fp,
			SchemaVersion: snap.Version,
			RowCap:        a.rowCap,
			LimitInjected: a.limitInjected,
			Warnings:      a.warnings,
			Elapsed:       o.now().Sub(req.start),
			Trace:         req.trace.Snapshot().States,
		},
	}
	logger.Debug("Answer done", "request", req.id, "source", req.source, "cache", outcome,
		"rows", a.rows.RowCount, "elapsed", res.Provenance.Elapsed)
	o.record(req, res)
	return res
}

// translated is the cache-miss path for natural-language requests.
func (o *Orchestrator) translated(ctx context.Context, req *request, tr common.TranslationRequest, snap *catalog.Snapshot) (answer, error) {
	req.enter(StateCacheMiss)
	req.enter(StateTranslating)

	tctx := ctx
	if deadline, ok := ctx.Deadline(); ok {
		share := time.Duration(float64(time.Until(deadline)) * o.translateShare)
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, share)
		defer cancel()
	}

	cands, err := o.translator.Translate(tctx, tr, snap)
	if err != nil {
		return answer{}, err
	}
	RecordCandidates(req.tracer, req.id, cands...)
	return o.validated(ctx, req, snap, cands, len(cands))
}

func (o *Orchestrator) validated(
	ctx context.Context,
	req *request,
	snap *catalog.Snapshot,
	cands []common.CandidateQuery,
	considered int,
) (answer, error) {
	req.enter(StateValidating)
	verdict := o.validator.Select(cands, snap)
	query := verdict.Query
	if !verdict.Accepted {
		query = verdict.Candidate.Query
	}
	RecordVerdict(req.tracer, req.id, query, verdict.Accepted, verdict.Reason)
	if !verdict.Accepted {
		return answer{}, verdict.Err()
	}

	req.enter(StateExecuting)
	rows, err := o.executor.Execute(ctx, verdict.Query, verdict.RowCap)
	if err != nil {
		return answer{}, err
	}

	req.enter(StateCaching)
	return answer{
		rows:          rows,
		query:         verdict.Query,
		confidence:    verdict.Candidate.Confidence,
		candidates:    considered,
		rowCap:        verdict.RowCap,
		limitInjected: verdict.LimitInjected,
		warnings:      verdict.Warnings,
	}, nil
}

// classify turns a cache error into a kind. Errors from the computation are
// already classified. A caller that stopped waiting gets Cancelled, or a
// timeout named after the stage the computation was in. A coalesced caller
// never leaves CacheCheck, so the stage is read from the computing request.
func (o *Orchestrator) classify(ctx context.Context, req *request, fp string, err error) error {
	var ce *common.Error
	if errors.As(err, &ce) {
		return ce
	}
	const op = "query.Answer"
	switch {
	case errors.Is(err, context.Canceled):
		return &common.Error{Kind: common.ErrCancelled, Op: op, Err: err}
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		if o.stage(req, fp) == StateTranslating {
			return &common.Error{Kind: common.ErrProviderTimeout, Op: op, Err: err}
		}
		return &common.Error{Kind: common.ErrExecutionTimeout, Op: op, Err: err}
	}
	return &common.Error{Kind: common.ErrInternal, Op: op, Err: err}
}

func (o *Orchestrator) stage(req *request, fp string) State {
	last := req.trace.Last()
	if last != StateCacheCheck {
		return last
	}
	if t, ok := o.running.Load(fp); ok {
		return t.(*QueryTrace).Last()
	}
	return last
}

func (o *Orchestrator) fail(req *request, snap *catalog.Snapshot, fp string, err error) *Result {
	kind := common.KindOf(err)
	RecordFailure(req.tracer, req.id, kind)

	trace := req.trace.Snapshot()
	res := &Result{
		Status:  StatusFailed,
		Kind:    kind,
		Message: kind.UserMessage(),
		Provenance: Provenance{
			RequestID:   req.id,
			Source:      req.source,
			QuestionID:  req.question,
			Fingerprint: fp,
			Elapsed:     o.now().Sub(req.start),
			Trace:       trace.States,
			Diagnostics: err.Error(),
		},
	}
	if snap != nil {
		res.Provenance.SchemaVersion = snap.Version
	}
	if o.debug {
		res.Provenance.Query = trace.LastQuery
	}

	switch {
	case kind == common.ErrCancelled:
		logger.Debug("Answer cancelled", "request", req.id)
	case kind.IsValidation():
		logger.Info("Answer rejected", "request", req.id, "kind", kind, "err", err)
	default:
		logger.Warn("Answer failed", "request", req.id, "kind", kind, "err", err)
	}
	o.record(req, res)
	return res
}

// record writes res to the history store without blocking the caller.
func (o *Orchestrator) record(req *request, res *Result) {
	if o.history == nil {
		return
	}
	rec := store.HistoryRecord{
		RequestID:     req.id,
		Utterance:     req.utterance,
		Source:        req.source,
		Query:         res.Provenance.Query,
		Outcome:       string(StateDone),
		CacheHit:      res.Provenance.CacheHit,
		ElapsedMs:     res.Provenance.Elapsed.Milliseconds(),
		SchemaVersion: res.Provenance.SchemaVersion,
		CreatedAt:     req.start,
	}
	if res.Done() {
		rec.RowCount = res.Rows.RowCount
		rec.Truncated = res.Rows.Truncated
	} else {
		rec.Outcome = string(res.Kind)
		rec.Query = req.trace.Snapshot().LastQuery
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		if err := o.history.RecordAnswer(ctx, rec); err != nil {
			logger.Warn("Failed to record answer history", "request", rec.RequestID, "err", err)
		}
	}()
}
