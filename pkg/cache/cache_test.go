package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newCache(t *testing.T, cfg Config) (*Cache[string], *clock) {
	t.Helper()
	c, err := New[string](context.Background(), cfg)
	require.NoError(t, err)
	clk := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clk.Now
	return c, clk
}

func value(v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return v, nil }
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("Show all  Suppliers ", nil, "v1")
	b := Fingerprint("show all suppliers", nil, "v1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, Fingerprint("show all suppliers", nil, "v2"))
	assert.NotEqual(t, a, Fingerprint("show all shipments", nil, "v1"))

	turns := []common.Turn{{Utterance: "Which suppliers ship late?", Query: "MATCH (s:Supplier) RETURN s"}}
	withContext := Fingerprint("and only in March?", turns, "v1")
	assert.NotEqual(t, withContext, Fingerprint("and only in March?", nil, "v1"))
	assert.Equal(t, withContext, Fingerprint("And only in march?", []common.Turn{
		{Utterance: "which suppliers  ship late?", Query: " MATCH (s:Supplier) RETURN s\n"},
	}, "v1"))

	// the separator keeps utterance and version from running together
	assert.NotEqual(t, Fingerprint("ab", nil, "c"), Fingerprint("a", nil, "bc"))

	assert.Equal(t, QueryFingerprint("MATCH (n)\n  RETURN n", "v1"), QueryFingerprint("MATCH (n) RETURN n", "v1"))
	assert.NotEqual(t, QueryFingerprint("MATCH (n) RETURN n", "v1"), Fingerprint("MATCH (n) RETURN n", nil, "v1"))
}

func TestDoCachesResult(t *testing.T) {
	c, _ := newCache(t, Config{})
	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "rows", nil
	}

	e, outcome, err := c.Do(context.Background(), "fp", compute)
	require.NoError(t, err)
	assert.Equal(t, Computed, outcome)
	assert.Equal(t, "rows", e.Value)
	assert.Equal(t, 0, e.Hits)

	for i := 1; i <= 3; i++ {
		e, outcome, err = c.Do(context.Background(), "fp", compute)
		require.NoError(t, err)
		assert.Equal(t, Hit, outcome)
		assert.Equal(t, "rows", e.Value)
		assert.Equal(t, i, e.Hits)
	}
	assert.Equal(t, 1, calls)

	s := c.Stats()
	assert.Equal(t, int64(3), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 1, s.Entries)
	assert.Zero(t, s.InFlight)
}

func TestDoCoalescesConcurrentRequests(t *testing.T) {
	c, _ := newCache(t, Config{})
	const n = 20

	var computations atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (string, error) {
		computations.Add(1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	outcomes := make(chan Outcome, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, outcome, err := c.Do(context.Background(), "fp", compute)
			assert.NoError(t, err)
			assert.Equal(t, "shared", e.Value)
			outcomes <- outcome
		}()
	}

	require.Eventually(t, func() bool { return c.Stats().Coalesced == n-1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
	close(outcomes)

	counts := map[Outcome]int{}
	for o := range outcomes {
		counts[o]++
	}
	assert.Equal(t, int32(1), computations.Load())
	assert.Equal(t, 1, counts[Computed])
	assert.Equal(t, n-1, counts[Coalesced])
	assert.Equal(t, 1, c.Len())
}

func TestDoDoesNotStoreFailures(t *testing.T) {
	c, _ := newCache(t, Config{})
	boom := errors.New("store unavailable")

	_, _, err := c.Do(context.Background(), "fp", func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())

	e, outcome, err := c.Do(context.Background(), "fp", value("rows"))
	require.NoError(t, err)
	assert.Equal(t, Computed, outcome)
	assert.Equal(t, "rows", e.Value)
}

func TestDoRecoversPanics(t *testing.T) {
	c, _ := newCache(t, Config{})
	_, _, err := c.Do(context.Background(), "fp", func(context.Context) (string, error) { panic("bad row") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad row")
	assert.Zero(t, c.Stats().InFlight)
}

func TestDoWaiterLeavesComputationContinues(t *testing.T) {
	c, _ := newCache(t, Config{})
	release := make(chan struct{})
	computeCancelled := make(chan struct{}, 1)
	compute := func(ctx context.Context) (string, error) {
		select {
		case <-release:
			return "rows", nil
		case <-ctx.Done():
			computeCancelled <- struct{}{}
			return "", ctx.Err()
		}
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := c.Do(leaderCtx, "fp", compute)
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return c.Stats().InFlight == 1 }, time.Second, time.Millisecond)

	followerDone := make(chan Entry[string], 1)
	go func() {
		e, outcome, err := c.Do(context.Background(), "fp", compute)
		assert.NoError(t, err)
		assert.Equal(t, Coalesced, outcome)
		followerDone <- e
	}()
	require.Eventually(t, func() bool { return c.Stats().Coalesced == 1 }, time.Second, time.Millisecond)

	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	assert.Equal(t, "rows", (<-followerDone).Value)
	assert.Empty(t, computeCancelled)
	assert.Equal(t, 1, c.Len())
}

func TestDoLastWaiterCancelsComputation(t *testing.T) {
	c, _ := newCache(t, Config{})
	computeCancelled := make(chan struct{})
	compute := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		close(computeCancelled)
		return "late", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, _, err := c.Do(ctx, "fp", compute)
	require.ErrorIs(t, err, context.Canceled)

	select {
	case <-computeCancelled:
	case <-time.After(time.Second):
		t.Fatal("computation was not cancelled")
	}
	require.Eventually(t, func() bool { return c.Stats().InFlight == 0 }, time.Second, time.Millisecond)
	assert.Zero(t, c.Len(), "abandoned results are not stored")

	e, outcome, err := c.Do(context.Background(), "fp", value("fresh"))
	require.NoError(t, err)
	assert.Equal(t, Computed, outcome)
	assert.Equal(t, "fresh", e.Value)
}

func TestDoComputationKeepsCallerDeadline(t *testing.T) {
	c, _ := newCache(t, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	want, _ := ctx.Deadline()

	_, _, err := c.Do(ctx, "fp", func(ctx context.Context) (string, error) {
		got, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.Equal(t, want, got)
		return "rows", nil
	})
	require.NoError(t, err)
}

func TestTTL(t *testing.T) {
	c, clk := newCache(t, Config{TTL: time.Minute})
	c.put("fp", "rows")

	clk.Advance(59 * time.Second)
	_, ok := c.get("fp")
	assert.True(t, ok)

	clk.Advance(time.Second)
	_, ok = c.get("fp")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Expired)
	assert.Zero(t, c.Len())
}

func TestSweep(t *testing.T) {
	c, clk := newCache(t, Config{TTL: time.Minute})
	c.put("old", "a")
	clk.Advance(30 * time.Second)
	c.put("new", "b")
	clk.Advance(45 * time.Second)

	assert.Equal(t, 1, c.Sweep())
	_, ok := c.get("new")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestJanitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := New[string](ctx, Config{TTL: time.Millisecond, SweepInterval: 5 * time.Millisecond})
	require.NoError(t, err)

	c.put("fp", "rows")
	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLRUEviction(t *testing.T) {
	c, _ := newCache(t, Config{MaxEntries: 2})
	c.put("a", "1")
	c.put("b", "2")
	_, ok := c.get("a")
	require.True(t, ok)

	c.put("c", "3")
	_, ok = c.get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestPurge(t *testing.T) {
	c, _ := newCache(t, Config{})
	c.put("a", "1")
	c.put("b", "2")

	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		e, _, err := c.Do(context.Background(), "inflight", func(context.Context) (string, error) {
			<-release
			return "stale", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "stale", e.Value, "waiters still receive the result")
	}()
	require.Eventually(t, func() bool { return c.Stats().InFlight == 1 }, time.Second, time.Millisecond)

	assert.Equal(t, 2, c.Purge())
	close(release)
	<-done

	assert.Zero(t, c.Len(), "results computed across a purge are not stored")
	assert.Equal(t, int64(2), c.Stats().Purged)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New[string](context.Background(), Config{Registerer: reg, Name: "answers"})
	require.NoError(t, err)

	_, _, err = c.Do(context.Background(), "fp", value("rows"))
	require.NoError(t, err)
	_, _, err = c.Do(context.Background(), "fp", value("rows"))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.misses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.size))

	// a second cache with the same name reuses the registered collectors
	_, err = New[string](context.Background(), Config{Registerer: reg, Name: "answers"})
	assert.NoError(t, err)
}

// get returns the live entry for fp. A hit refreshes its recency.
func (c *Cache[V]) get(fp string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookupLocked(fp)
	if !ok {
		c.stats.Misses++
		c.metrics.miss()
	}
	return e, ok
}

// put stores v under fp, replacing any previous entry.
func (c *Cache[V]) put(fp string, v V) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeLocked(Entry[V]{Fingerprint: fp, Value: v, CreatedAt: now, AccessedAt: now})
}
