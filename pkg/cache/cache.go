// Package cache memoizes pipeline results by request fingerprint.
//
// Entries are bounded by count (least recently used first out) and by age.
// Concurrent requests for the same fingerprint share one computation: the
// first caller starts it, later callers wait for it, and each caller may
// stop waiting on its own context. The computation is cancelled only once
// no caller is left waiting. Failed or abandoned computations are never
// stored.
package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
)

const (
	DefaultMaxEntries = 1024
	DefaultTTL        = 10 * time.Minute
)

// Outcome says how Do produced its result.
type Outcome int

const (
	// Computed means the caller ran the computation.
	Computed Outcome = iota
	// Hit means the result came from a stored entry.
	Hit
	// Coalesced means the caller waited on another caller's computation.
	Coalesced
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Coalesced:
		return "coalesced"
	default:
		return "computed"
	}
}

// Entry is a copy of a cached value with its bookkeeping. Callers never
// get access to the stored entry itself.
type Entry[V any] struct {
	Fingerprint string
	Value       V
	CreatedAt   time.Time
	AccessedAt  time.Time
	Hits        int
}

type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Coalesced int64 `json:"coalesced"`
	Evictions int64 `json:"evictions"`
	Expired   int64 `json:"expired"`
	Purged    int64 `json:"purged"`
	Entries   int   `json:"entries"`
	InFlight  int   `json:"in_flight"`
}

type Config struct {
	MaxEntries int
	TTL        time.Duration
	// SweepInterval enables a background janitor that drops expired
	// entries. Zero relies on lazy expiry during lookups.
	SweepInterval time.Duration
	// Registerer, when set, exposes Stats as Prometheus metrics labelled
	// with Name.
	Registerer prometheus.Registerer
	Name       string
}

type call[V any] struct {
	done      chan struct{}
	entry     Entry[V]
	err       error
	waiters   int
	abandoned bool
	gen       uint64
	cancel    context.CancelFunc
}

type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	order   *list.List // front is most recently used
	entries map[string]*list.Element
	calls   map[string]*call[V]
	gen     uint64
	stats   Stats
	metrics *cacheMetrics
	now     func() time.Time
}

// New creates a cache. The janitor, if configured, runs until ctx is done.
func New[V any](ctx context.Context, cfg Config) (*Cache[V], error) {
	c := &Cache[V]{
		ttl:     cfg.TTL,
		max:     cfg.MaxEntries,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		calls:   make(map[string]*call[V]),
		now:     time.Now,
	}
	if c.max <= 0 {
		c.max = DefaultMaxEntries
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if cfg.Registerer != nil {
		name := cfg.Name
		if name == "" {
			name = "default"
		}
		m, err := newCacheMetrics(cfg.Registerer, name)
		if err != nil {
			return nil, fmt.Errorf("register cache metrics: %w", err)
		}
		c.metrics = m
	}
	if cfg.SweepInterval > 0 {
		go c.janitor(ctx, cfg.SweepInterval)
	}
	return c, nil
}

func (c *Cache[V]) expired(e *Entry[V], now time.Time) bool {
	return now.Sub(e.CreatedAt) >= c.ttl
}

func (c *Cache[V]) removeLocked(el *list.Element) {
	e := el.Value.(*Entry[V])
	c.order.Remove(el)
	delete(c.entries, e.Fingerprint)
}

// lookupLocked returns a copy of the live entry for fp, recording the hit.
func (c *Cache[V]) lookupLocked(fp string) (Entry[V], bool) {
	el, ok := c.entries[fp]
	if !ok {
		return Entry[V]{}, false
	}
	e := el.Value.(*Entry[V])
	now := c.now()
	if c.expired(e, now) {
		c.removeLocked(el)
		c.stats.Expired++
		c.metrics.evict("expired", 1)
		c.metrics.setSize(c.order.Len())
		return Entry[V]{}, false
	}
	c.order.MoveToFront(el)
	e.Hits++
	e.AccessedAt = now
	c.stats.Hits++
	c.metrics.hit()
	return *e, true
}

func (c *Cache[V]) storeLocked(e Entry[V]) {
	if el, ok := c.entries[e.Fingerprint]; ok {
		*el.Value.(*Entry[V]) = e
		c.order.MoveToFront(el)
		return
	}
	stored := e
	c.entries[e.Fingerprint] = c.order.PushFront(&stored)
	for c.order.Len() > c.max {
		c.removeLocked(c.order.Back())
		c.stats.Evictions++
		c.metrics.evict("capacity", 1)
	}
	c.metrics.setSize(c.order.Len())
}

// Do returns the cached entry for fp or computes it.
//
// compute receives a context detached from any single caller: it carries the
// first caller's deadline and is cancelled once every waiting caller has
// given up. A caller whose ctx ends gets ctx.Err() while the computation may
// continue for the others.
func (c *Cache[V]) Do(ctx context.Context, fp string, compute func(context.Context) (V, error)) (Entry[V], Outcome, error) {
	c.mu.Lock()
	if e, ok := c.lookupLocked(fp); ok {
		c.mu.Unlock()
		return e, Hit, nil
	}

	outcome := Computed
	cl, shared := c.calls[fp]
	if shared {
		cl.waiters++
		outcome = Coalesced
		c.stats.Coalesced++
		c.metrics.join()
	} else {
		c.stats.Misses++
		c.metrics.miss()

		runCtx := context.WithoutCancel(ctx)
		var cancel context.CancelFunc
		if deadline, ok := ctx.Deadline(); ok {
			runCtx, cancel = context.WithDeadline(runCtx, deadline)
		} else {
			runCtx, cancel = context.WithCancel(runCtx)
		}
		cl = &call[V]{done: make(chan struct{}), waiters: 1, gen: c.gen, cancel: cancel}
		c.calls[fp] = cl
		go c.run(runCtx, fp, cl, compute)
	}
	c.mu.Unlock()

	select {
	case <-cl.done:
		return cl.entry, outcome, cl.err
	case <-ctx.Done():
		c.leave(fp, cl)
		return Entry[V]{}, outcome, ctx.Err()
	}
}

// leave drops one waiter. The last waiter to leave cancels the computation
// and unlinks it so later callers start afresh.
func (c *Cache[V]) leave(fp string, cl *call[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl.waiters--
	if cl.waiters > 0 {
		return
	}
	cl.abandoned = true
	if c.calls[fp] == cl {
		delete(c.calls, fp)
	}
	cl.cancel()
	logger.Debug("Cache computation abandoned", "fingerprint", short(fp))
}

func (c *Cache[V]) run(ctx context.Context, fp string, cl *call[V], compute func(context.Context) (V, error)) {
	defer cl.cancel()

	v, err := func() (v V, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("cache: computation panicked: %v", r)
			}
		}()
		return compute(ctx)
	}()

	now := c.now()
	c.mu.Lock()
	if c.calls[fp] == cl {
		delete(c.calls, fp)
	}
	cl.err = err
	if err == nil {
		cl.entry = Entry[V]{Fingerprint: fp, Value: v, CreatedAt: now, AccessedAt: now}
		// a purge while computing means the result may predate the new schema
		if !cl.abandoned && cl.gen == c.gen {
			c.storeLocked(cl.entry)
		}
	}
	c.mu.Unlock()
	close(cl.done)
}

// Purge drops every entry and prevents in-flight computations from storing
// their results. It returns the number of entries removed.
func (c *Cache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.order.Len()
	c.order.Init()
	clear(c.entries)
	c.gen++
	c.stats.Purged += int64(n)
	c.metrics.evict("purge", n)
	c.metrics.setSize(0)
	return n
}

// Sweep removes expired entries and returns how many it removed.
func (c *Cache[V]) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*Entry[V]), now) {
			c.removeLocked(el)
			n++
		}
		el = prev
	}
	c.stats.Expired += int64(n)
	c.metrics.evict("expired", n)
	c.metrics.setSize(c.order.Len())
	return n
}

func (c *Cache[V]) janitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := c.Sweep(); n > 0 {
				logger.Debug("Cache janitor removed expired entries", "count", n)
			}
		}
	}
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.order.Len()
	s.InFlight = len(c.calls)
	return s
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
