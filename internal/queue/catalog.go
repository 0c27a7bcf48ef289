package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
)

const TopicCatalogRefreshed = "catalog.refreshed"

// CatalogRefreshed announces that a worker installed a new schema version.
type CatalogRefreshed struct {
	Version       string    `json:"version"`
	Labels        int       `json:"labels"`
	Relationships int       `json:"relationships"`
	RefreshedAt   time.Time `json:"refreshed_at"`
}

func PublishCatalogRefreshed(ctx context.Context, ch Publisher, snap *catalog.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("publish catalog refresh: no snapshot")
	}
	data, err := json.Marshal(CatalogRefreshed{
		Version:       snap.Version,
		Labels:        len(snap.Labels),
		Relationships: len(snap.Relationships),
		RefreshedAt:   snap.LoadedAt,
	})
	if err != nil {
		return err
	}
	return PublishTopic(ctx, ch, TopicCatalogRefreshed, "application/json", data)
}

// Refresher is implemented by *catalog.Catalog.
type Refresher interface {
	Describe() *catalog.Snapshot
	Refresh(ctx context.Context) (bool, error)
}

// CatalogRefreshHandler refreshes cat when an announced version differs
// from the one it holds.
func CatalogRefreshHandler(cat Refresher) Handler {
	return func(ctx context.Context, msg amqp091.Delivery) error {
		var ev CatalogRefreshed
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			// Malformed events are dropped, not retried.
			logger.Warn("Ignoring malformed catalog event", "err", err)
			return nil
		}

		if cur := cat.Describe(); cur != nil && cur.Version == ev.Version {
			logger.Debug("Catalog already at announced version", "version", ev.Version)
			return nil
		}

		changed, err := cat.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("refresh catalog to %s: %w", ev.Version, err)
		}
		logger.Info("Catalog refreshed from broadcast", "version", ev.Version, "changed", changed)
		return nil
	}
}

// Announcer is the catalog side of RefreshAndAnnounce. *catalog.Catalog
// implements it.
type Announcer interface {
	Refresher
	Ready() bool
	Load(ctx context.Context) (*catalog.Snapshot, error)
}

// RefreshAndAnnounce brings cat up to date and broadcasts the version when
// it changed. The first successful load is always broadcast so servers that
// missed earlier events catch up; they ignore versions they already hold.
func RefreshAndAnnounce(ctx context.Context, cat Announcer, ch Publisher) (bool, error) {
	var changed bool
	if !cat.Ready() {
		if _, err := cat.Load(ctx); err != nil {
			return false, err
		}
		changed = true
	} else {
		var err error
		if changed, err = cat.Refresh(ctx); err != nil {
			return false, err
		}
	}
	if !changed {
		return false, nil
	}

	snap := cat.Describe()
	if err := PublishCatalogRefreshed(ctx, ch, snap); err != nil {
		return true, fmt.Errorf("announce catalog %s: %w", snap.Version, err)
	}
	logger.Info("Announced catalog version", "version", snap.Version)
	return true, nil
}
