// Package catalog holds the graph schema known to the service. The schema is
// loaded from the store once at startup and replaced atomically on refresh.
package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
)

// Introspector reads the label, relationship and property inventory of the
// graph store. Implementations must be read-only.
type Introspector interface {
	Introspect(ctx context.Context) (*Inventory, error)
}

// RefreshListener is called after a refresh produced a new schema version.
type RefreshListener func(previous, current *Snapshot)

type Catalog struct {
	introspector Introspector
	timeout      time.Duration
	now          func() time.Time

	current atomic.Pointer[Snapshot]

	// refreshMu serialises loads so two refreshes never race on the swap.
	refreshMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []RefreshListener
}

// NewCatalogParams configures a Catalog. Timeout bounds a single
// introspection run; zero means no additional bound.
type NewCatalogParams struct {
	Introspector Introspector
	Timeout      time.Duration
}

func NewCatalog(params NewCatalogParams) *Catalog {
	return &Catalog{
		introspector: params.Introspector,
		timeout:      params.Timeout,
		now:          time.Now,
	}
}

// NewStaticCatalog returns a catalog that already holds a snapshot of inv
// and has no introspector. Refresh on it always fails.
func NewStaticCatalog(inv Inventory) *Catalog {
	c := NewCatalog(NewCatalogParams{})
	c.current.Store(NewSnapshot(inv, c.now()))
	return c
}

func (c *Catalog) introspect(ctx context.Context) (*Snapshot, error) {
	if c.introspector == nil {
		return nil, common.Errorf(common.ErrCatalogUnavailable, "catalog.Load", "no introspector configured")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	inv, err := c.introspector.Introspect(ctx)
	if err != nil {
		return nil, &common.Error{Kind: common.ErrCatalogUnavailable, Op: "catalog.Load", Err: err}
	}
	if inv == nil {
		inv = &Inventory{}
	}
	return NewSnapshot(*inv, c.now()), nil
}

// Load introspects the store and installs the resulting snapshot. A failure
// is reported as CatalogUnavailable and leaves any previous snapshot in place.
func (c *Catalog) Load(ctx context.Context) (*Snapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	snap, err := c.introspect(ctx)
	if err != nil {
		return nil, err
	}
	c.current.Store(snap)
	logger.Info("Schema catalog loaded",
		"version", snap.Version, "labels", len(snap.Labels), "relationships", len(snap.Relationships))
	return snap, nil
}

// Describe returns the current snapshot, or nil before the first Load.
func (c *Catalog) Describe() *Snapshot {
	return c.current.Load()
}

// Refresh reloads the schema and swaps it in. It reports whether the version
// changed. On failure the previous snapshot stays active and the error is
// returned after being logged.
func (c *Catalog) Refresh(ctx context.Context) (bool, error) {
	c.refreshMu.Lock()
	previous := c.current.Load()
	snap, err := c.introspect(ctx)
	if err != nil {
		c.refreshMu.Unlock()
		version := ""
		if previous != nil {
			version = previous.Version
		}
		logger.Warn("Schema catalog refresh failed, keeping previous snapshot", "version", version, "err", err)
		return false, err
	}
	c.current.Store(snap)
	c.refreshMu.Unlock()

	if previous != nil && previous.Version == snap.Version {
		logger.Debug("Schema catalog unchanged", "version", snap.Version)
		return false, nil
	}

	logger.Info("Schema catalog refreshed", "version", snap.Version)
	c.listenersMu.RLock()
	listeners := append([]RefreshListener(nil), c.listeners...)
	c.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(previous, snap)
	}
	return true, nil
}

// OnRefresh registers fn to run after every refresh that changed the schema
// version. Listeners run synchronously on the refreshing goroutine.
func (c *Catalog) OnRefresh(fn RefreshListener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Ready reports whether a snapshot has been loaded.
func (c *Catalog) Ready() bool {
	return c.current.Load() != nil
}
