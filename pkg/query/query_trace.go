package query

import (
	"slices"
	"sync"
	"time"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
)

// State is a step of the answer state machine.
type State string

const (
	StateReceived    State = "Received"
	StateCacheCheck  State = "CacheCheck"
	StateCacheHit    State = "CacheHit"
	StateCacheMiss   State = "CacheMiss"
	StateTranslating State = "Translating"
	StateValidating  State = "Validating"
	StateExecuting   State = "Executing"
	StateCaching     State = "Caching"
	StateDone        State = "Done"
	StateFailed      State = "Failed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

type TraceEventKind string

const (
	TraceEventState      TraceEventKind = "state"
	TraceEventCandidates TraceEventKind = "candidates"
	TraceEventVerdict    TraceEventKind = "verdict"
)

// TraceEvent is an extensible event envelope for answer tracing.
// Additive changes to this struct are backward compatible for implementers.
type TraceEvent struct {
	Kind      TraceEventKind
	RequestID string
	At        time.Time

	State State
	// Kind of the failure when State is Failed.
	Failure common.ErrorKind

	Candidates []common.CandidateQuery

	Query    string
	Accepted bool
	Reason   common.ErrorKind
}

// Tracer is a sink for answer tracing events.
//
// Implementers can forward events to logs, metrics, or custom post-processing
// pipelines. Record may be called from several goroutines.
type Tracer interface {
	Record(event TraceEvent)
}

// MultiTracer fan-outs trace events to multiple tracers.
type MultiTracer []Tracer

func (m MultiTracer) Record(event TraceEvent) {
	for _, t := range m {
		if t == nil {
			continue
		}
		t.Record(event)
	}
}

func RecordState(t Tracer, requestID string, state State) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventState, RequestID: requestID, At: time.Now(), State: state})
}

func RecordFailure(t Tracer, requestID string, kind common.ErrorKind) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventState, RequestID: requestID, At: time.Now(), State: StateFailed, Failure: kind})
}

func RecordCandidates(t Tracer, requestID string, cands ...common.CandidateQuery) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventCandidates, RequestID: requestID, At: time.Now(), Candidates: cands})
}

func RecordVerdict(t Tracer, requestID string, query string, accepted bool, reason common.ErrorKind) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{
		Kind:      TraceEventVerdict,
		RequestID: requestID,
		At:        time.Now(),
		Query:     query,
		Accepted:  accepted,
		Reason:    reason,
	})
}

// QueryTrace collects the states one answer went through, the candidates it
// considered and the last query it validated.
//
// QueryTrace is safe for concurrent use.
type QueryTrace struct {
	mu sync.Mutex

	states     []State
	entered    time.Time
	durations  map[State]time.Duration
	candidates []string
	lastQuery  string
	rejections map[common.ErrorKind]int
}

type QueryTraceSnapshot struct {
	States     []State
	Durations  map[State]time.Duration
	Candidates []string
	LastQuery  string
	Rejections map[common.ErrorKind]int
}

func NewQueryTrace() *QueryTrace {
	return &QueryTrace{
		durations:  make(map[State]time.Duration),
		rejections: make(map[common.ErrorKind]int),
	}
}

func (t *QueryTrace) Record(event TraceEvent) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case TraceEventState:
		if n := len(t.states); n > 0 {
			if t.states[n-1].Terminal() {
				return
			}
			t.durations[t.states[n-1]] += event.At.Sub(t.entered)
		}
		t.states = append(t.states, event.State)
		t.entered = event.At
	case TraceEventCandidates:
		for _, c := range event.Candidates {
			if c.Query == "" {
				continue
			}
			t.candidates = append(t.candidates, c.Query)
		}
	case TraceEventVerdict:
		t.lastQuery = event.Query
		if !event.Accepted && event.Reason != "" {
			t.rejections[event.Reason]++
		}
	default:
		return
	}
}

// Last returns the most recent state, or "" before the first one.
func (t *QueryTrace) Last() State {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.states) == 0 {
		return ""
	}
	return t.states[len(t.states)-1]
}

func (t *QueryTrace) Snapshot() QueryTraceSnapshot {
	if t == nil {
		return QueryTraceSnapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := QueryTraceSnapshot{
		States:     slices.Clone(t.states),
		Durations:  make(map[State]time.Duration, len(t.durations)),
		Candidates: slices.Clone(t.candidates),
		LastQuery:  t.lastQuery,
		Rejections: make(map[common.ErrorKind]int, len(t.rejections)),
	}
	for k, v := range t.durations {
		s.Durations[k] = v
	}
	for k, v := range t.rejections {
		s.Rejections[k] = v
	}
	return s
}
