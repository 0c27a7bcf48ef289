package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/bootstrap"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/config"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/migrations"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/queue"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/leaselock"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger/console"
)

const (
	refreshLockKey = "catalog-refresh"
	introspectTime = 2 * time.Minute
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		Format: util.GetEnv("LOG_FORMAT"),
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "err", err)
	}
	if !cfg.RabbitMQ.Enabled() {
		logger.Fatal("The worker needs RABBITMQ_HOST to announce catalog versions")
	}
	interval := cfg.CatalogRefreshInterval
	if interval <= 0 {
		logger.Fatal("The worker needs a positive CATALOG_REFRESH_INTERVAL")
	}

	// Init graph store
	graph, err := bootstrap.NewGraphStore(ctx, cfg.Neo4j, introspectTime)
	if err != nil {
		logger.Fatal("Failed to connect to graph database", "err", err)
	}
	defer graph.Close(context.WithoutCancel(ctx))
	cat := bootstrap.NewCatalog(graph, introspectTime)

	// Init rabbitmq
	conn, err := queue.Init(cfg.RabbitMQ.URL())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	// The lease keeps a fleet of workers from introspecting concurrently.
	// Without a database a single worker is assumed.
	refresh := func(ctx context.Context) error {
		_, err := queue.RefreshAndAnnounce(ctx, cat, ch)
		return err
	}
	if cfg.DatabaseURL != "" {
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			logger.Fatal("Failed to run migrations", "err", err)
		}
		pool, err := bootstrap.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Unable to connect to database", "err", err)
		}
		defer pool.Close()

		refresh = leased(leaselock.New(pool), refresh, interval)
	}

	logger.Info("Refreshing catalog", "every", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runRefresh(ctx, cat, refresh)

		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case <-ticker.C:
		}
	}
}

func leased(locks *leaselock.Client, fn func(context.Context) error, interval time.Duration) func(context.Context) error {
	host, _ := os.Hostname()
	opts := leaselock.Options{
		TTL:   max(interval, introspectTime),
		Owner: host,
	}
	return func(ctx context.Context) error {
		held, err := locks.TryWithLease(ctx, refreshLockKey, opts, fn)
		if err != nil {
			return err
		}
		if !held {
			logger.Debug("Catalog refresh running elsewhere", "key", refreshLockKey)
		}
		return nil
	}
}

func runRefresh(ctx context.Context, cat *catalog.Catalog, refresh func(context.Context) error) {
	startTime := time.Now()
	if err := refresh(ctx); err != nil {
		if ctx.Err() == nil {
			logger.Error("Catalog refresh failed", "err", err)
		}
		return
	}

	version := ""
	if snap := cat.Describe(); snap != nil {
		version = snap.Version
	}
	d := time.Since(startTime)
	logger.Debug(
		"Catalog refresh finished",
		"version", version,
		"duration", fmt.Sprintf("%02d:%02d.%03d", int(d.Minutes()), int(d.Seconds())%60, d.Milliseconds()%1000),
	)
}
