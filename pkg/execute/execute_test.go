package execute

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore/graphstoretest"
)

func suppliers(n int) *graphstore.Result {
	res := &graphstore.Result{Columns: []string{"supplier", "shipments"}}
	for i := range n {
		res.Records = append(res.Records, []common.Value{
			common.String(fmt.Sprintf("Supplier %d", i)),
			common.Integer(int64(i)),
		})
	}
	return res
}

func newExecutor(store graphstore.Store, timeout time.Duration, retries int) *Executor {
	return NewExecutor(NewExecutorParams{
		Store:      store,
		Timeout:    timeout,
		MaxRetries: retries,
		Backoff:    &util.Backoff{},
	})
}

func TestExecuteRows(t *testing.T) {
	store := graphstoretest.Returning(suppliers(3))
	res, err := newExecutor(store, time.Second, 0).Execute(context.Background(), "MATCH (s:Supplier) RETURN s", 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"supplier", "shipments"}, res.Columns)
	assert.Equal(t, 3, res.RowCount)
	assert.False(t, res.Truncated)
	assert.Equal(t, common.String("Supplier 1"), res.Rows[1]["supplier"])
	assert.Equal(t, common.Integer(2), res.Rows[2]["shipments"])
	assert.Equal(t, []int{11}, store.FetchLimits())
}

func TestExecuteRowCap(t *testing.T) {
	tests := []struct {
		name      string
		result    *graphstore.Result
		rowCap    int
		rows      int
		truncated bool
	}{
		{"fewer rows than cap", suppliers(4), 5, 4, false},
		{"exactly the cap", suppliers(5), 5, 5, false},
		{"one more than the cap", suppliers(6), 5, 5, true},
		{"store reports more", func() *graphstore.Result { r := suppliers(5); r.HasMore = true; return r }(), 5, 5, true},
		{"store ignores fetch limit", suppliers(50), 5, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newExecutor(graphstoretest.Returning(tt.result), time.Second, 0).
				Execute(context.Background(), "MATCH (s:Supplier) RETURN s", tt.rowCap)
			require.NoError(t, err)
			assert.Len(t, res.Rows, tt.rows)
			assert.Equal(t, tt.rows, res.RowCount)
			assert.Equal(t, tt.truncated, res.Truncated)
		})
	}
}

func TestExecuteShortRecord(t *testing.T) {
	res := &graphstore.Result{Columns: []string{"a", "b"}, Records: [][]common.Value{{common.Integer(1)}}}
	out, err := newExecutor(graphstoretest.Returning(res), time.Second, 0).Execute(context.Background(), "RETURN 1 AS a", 5)
	require.NoError(t, err)
	assert.True(t, out.Rows[0]["b"].IsNull())
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	store := graphstoretest.New(func(_ context.Context, attempt int, _ string, _ map[string]any, _ int) (*graphstore.Result, error) {
		if attempt < 3 {
			return nil, fmt.Errorf("session: %w", graphstore.ErrTransient)
		}
		return suppliers(1), nil
	})

	res, err := newExecutor(store, time.Second, 3).Execute(context.Background(), "MATCH (s:Supplier) RETURN s", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)
	assert.Equal(t, 3, store.Calls())
}

func TestExecuteStoreUnavailable(t *testing.T) {
	store := graphstoretest.New(func(context.Context, int, string, map[string]any, int) (*graphstore.Result, error) {
		return nil, fmt.Errorf("dial: %w", graphstore.ErrTransient)
	})

	_, err := newExecutor(store, time.Second, 2).Execute(context.Background(), "MATCH (s:Supplier) RETURN s", 10)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.ErrStoreUnavailable))
	assert.Equal(t, 3, store.Calls(), "one attempt plus two retries")
}

func TestExecuteNonTransientNotRetried(t *testing.T) {
	store := graphstoretest.New(func(context.Context, int, string, map[string]any, int) (*graphstore.Result, error) {
		return nil, fmt.Errorf("neo4j: %w: Neo.ClientError.Statement.SyntaxError", graphstore.ErrQueryRejected)
	})

	_, err := newExecutor(store, time.Second, 3).Execute(context.Background(), "MATCH (s:Supplier) RETURN s", 10)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.ErrSyntaxError))
	assert.Equal(t, 1, store.Calls())
}

func blockUntilDone(ctx context.Context, _ int, _ string, _ map[string]any, _ int) (*graphstore.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestExecuteTimeout(t *testing.T) {
	store := graphstoretest.New(blockUntilDone)

	start := time.Now()
	_, err := newExecutor(store, 30*time.Millisecond, 3).Execute(context.Background(), "MATCH (s:Supplier) RETURN s", 10)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.ErrExecutionTimeout))
	assert.Equal(t, 1, store.Calls(), "timeouts are not retried")
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecuteCallerDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newExecutor(graphstoretest.New(blockUntilDone), time.Minute, 0).Execute(ctx, "RETURN 1", 10)
	assert.True(t, common.IsKind(err, common.ErrExecutionTimeout))
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := newExecutor(graphstoretest.New(blockUntilDone), time.Minute, 0).Execute(ctx, "RETURN 1", 10)
	assert.True(t, common.IsKind(err, common.ErrCancelled))
}

func TestExecuteInvalidRowCap(t *testing.T) {
	_, err := newExecutor(graphstoretest.Returning(suppliers(1)), time.Second, 0).Execute(context.Background(), "RETURN 1", 0)
	assert.True(t, common.IsKind(err, common.ErrInternal))
}

func TestPing(t *testing.T) {
	store := graphstoretest.Returning(suppliers(0))
	e := newExecutor(store, time.Second, 0)
	require.NoError(t, e.Ping(context.Background()))

	store.SetPingError(graphstore.ErrTransient)
	assert.True(t, common.IsKind(e.Ping(context.Background()), common.ErrStoreUnavailable))
}
