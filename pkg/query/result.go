package query

import (
	"errors"
	"time"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
)

type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Source names where the final query came from.
const (
	SourceTranslated = "translated"
	SourceCurated    = "curated"
	SourceOverview   = "overview"
)

// Provenance explains how a result was produced.
//
// Query is always set on Done. On Failed it is only set when the
// orchestrator runs in debug mode. Diagnostics keeps the internal error
// chain for logs and history and is never serialised.
type Provenance struct {
	RequestID     string        `json:"request_id"`
	Source        string        `json:"source"`
	QuestionID    string        `json:"question_id,omitempty"`
	Query         string        `json:"query,omitempty"`
	Confidence    float64       `json:"confidence"`
	Candidates    int           `json:"candidates,omitempty"`
	CacheHit      bool          `json:"cache_hit"`
	Coalesced     bool          `json:"coalesced,omitempty"`
	Hits          int           `json:"hits"`
	Fingerprint   string        `json:"fingerprint"`
	SchemaVersion string        `json:"schema_version"`
	RowCap        int           `json:"row_cap,omitempty"`
	LimitInjected bool          `json:"limit_injected,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
	Elapsed       time.Duration `json:"elapsed"`
	Trace         []State       `json:"trace"`
	Diagnostics   string        `json:"-"`
}

// Result is the terminal outcome of one request: Done with rows, or Failed
// with a kind and a message that is safe to show to end users.
type Result struct {
	Status     Status                  `json:"status"`
	Rows       *common.ExecutionResult `json:"result,omitempty"`
	Kind       common.ErrorKind        `json:"kind,omitempty"`
	Message    string                  `json:"message,omitempty"`
	Provenance Provenance              `json:"provenance"`
}

func (r *Result) Done() bool {
	return r != nil && r.Status == StatusDone
}

// Err returns the failure as a classified error, or nil for Done.
func (r *Result) Err() error {
	if r.Done() {
		return nil
	}
	e := &common.Error{Kind: r.Kind, Op: "query.Answer"}
	if r.Provenance.Diagnostics != "" {
		e.Err = errors.New(r.Provenance.Diagnostics)
	}
	return e
}

// answer is what the cache stores: everything about a computed result that
// does not depend on the individual request.
type answer struct {
	rows          *common.ExecutionResult
	query         string
	confidence    float64
	candidates    int
	rowCap        int
	limitInjected bool
	warnings      []string
}
