// Package execute runs validated queries against the graph store.
package execute

import (
	"context"
	"errors"
	"time"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
)

type Executor struct {
	store      graphstore.Store
	timeout    time.Duration
	maxRetries int
	backoff    util.Backoff
	now        func() time.Time
}

// NewExecutorParams configures an Executor. MaxRetries counts retries after
// the first attempt; Timeout bounds all attempts together.
type NewExecutorParams struct {
	Store      graphstore.Store
	Timeout    time.Duration
	MaxRetries int
	Backoff    *util.Backoff
}

func NewExecutor(params NewExecutorParams) *Executor {
	e := &Executor{
		store:      params.Store,
		timeout:    params.Timeout,
		maxRetries: params.MaxRetries,
		backoff:    util.DefaultBackoff(),
		now:        time.Now,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.maxRetries < 0 {
		e.maxRetries = 0
	}
	if params.Backoff != nil {
		e.backoff = *params.Backoff
	}
	return e
}

// Execute runs query and returns at most rowCap rows. The store is asked for
// rowCap+1 rows so Truncated reports whether more existed.
//
// Transient store failures are retried with jittered backoff. Timeouts are
// never retried.
func (e *Executor) Execute(ctx context.Context, query string, rowCap int) (*common.ExecutionResult, error) {
	const op = "execute.Execute"
	if rowCap <= 0 {
		return nil, common.Errorf(common.ErrInternal, op, "row cap must be positive, got %d", rowCap)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := e.now()
	attempts := 0
	res, err := util.RetryWithContext(runCtx, e.maxRetries+1, e.backoff, graphstore.IsTransient,
		func(ctx context.Context) (*graphstore.Result, error) {
			attempts++
			res, err := e.store.Run(ctx, query, nil, rowCap+1)
			if err != nil && graphstore.IsTransient(err) {
				logger.Warn("Graph store attempt failed", "attempt", attempts, "err", err)
			}
			return res, err
		})
	elapsed := e.now().Sub(start)
	if err != nil {
		return nil, e.classify(ctx, runCtx, err, attempts)
	}

	out := &common.ExecutionResult{
		Columns: res.Columns,
		Rows:    make([]common.Row, 0, min(len(res.Records), rowCap)),
		Elapsed: elapsed,
	}
	for i, rec := range res.Records {
		if i == rowCap {
			out.Truncated = true
			break
		}
		row := make(common.Row, len(res.Columns))
		for j, col := range res.Columns {
			if j < len(rec) {
				row[col] = rec[j]
			} else {
				row[col] = common.Null()
			}
		}
		out.Rows = append(out.Rows, row)
	}
	if res.HasMore {
		out.Truncated = true
	}
	out.RowCount = len(out.Rows)

	logger.Debug("Query executed", "rows", out.RowCount, "truncated", out.Truncated, "attempts", attempts, "elapsed", elapsed)
	return out, nil
}

func (e *Executor) classify(parent, runCtx context.Context, err error, attempts int) error {
	const op = "execute.Execute"
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return &common.Error{Kind: common.ErrCancelled, Op: op, Err: err}
	case runCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded):
		return &common.Error{Kind: common.ErrExecutionTimeout, Op: op, Err: err}
	case errors.Is(err, graphstore.ErrQueryRejected):
		return &common.Error{Kind: common.ErrSyntaxError, Op: op, Err: err}
	}
	logger.Error("Graph store unavailable", "attempts", attempts, "err", err)
	return &common.Error{Kind: common.ErrStoreUnavailable, Op: op, Err: err}
}

// Ping checks store connectivity within the executor timeout.
func (e *Executor) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.store.Ping(ctx); err != nil {
		return common.NewError(common.ErrStoreUnavailable, "execute.Ping", err)
	}
	return nil
}
