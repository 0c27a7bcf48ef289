package server

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/bootstrap"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/config"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/migrations"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/queue"
	mid "github.com/VinayJogani14/Supply-Chain-Management/internal/server/middleware"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/storage"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/examples"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/execute"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/metrics"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/query"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/store"
	pgs "github.com/VinayJogani14/Supply-Chain-Management/pkg/store/pgx"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/translate"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/validate"
)

const (
	catalogLoadTimeout = 30 * time.Second
	modelLoadTimeout   = 2 * time.Minute
	memoryHistorySize  = 500
)

// Init connects every configured backend, builds the answer pipeline and
// serves it until ctx is done. Neo4j and the AI provider are required;
// PostgreSQL, RabbitMQ and S3 are used when configured.
func Init(ctx context.Context, cfg *config.Config) {
	graph, err := bootstrap.NewGraphStore(ctx, cfg.Neo4j, cfg.Pipeline.ExecTimeout)
	if err != nil {
		logger.Fatal("Failed to connect to graph database", "err", err)
	}
	defer graph.Close(context.WithoutCancel(ctx))

	cat := bootstrap.NewCatalog(graph, catalogLoadTimeout)
	if _, err := cat.Load(ctx); err != nil {
		logger.Fatal("Failed to load schema catalog", "err", err)
	}

	reg := metrics.NewRegistry()
	tracer, err := metrics.NewPipeline(reg)
	if err != nil {
		logger.Fatal("Failed to register pipeline metrics", "err", err)
	}

	aiClient, err := bootstrap.NewAIClient(cfg.AI)
	if err != nil {
		logger.Fatal("Failed to create AI client", "err", err)
	}
	if err := metrics.RegisterModel(reg, "chat", aiClient.GetMetrics); err != nil {
		logger.Fatal("Failed to register model metrics", "err", err)
	}
	go func() {
		if err := bootstrap.WarmUp(ctx, aiClient, modelLoadTimeout); err != nil {
			logger.Warn("Failed to preload chat model", "model", cfg.AI.ChatModel, "err", err)
		}
	}()

	var (
		pool    *pgxpool.Pool
		history store.HistoryStore = store.NewMemoryHistory(memoryHistorySize)
		index   examples.VectorIndex
	)
	if cfg.DatabaseURL != "" {
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			logger.Fatal("Failed to run migrations", "err", err)
		}
		pool, err = bootstrap.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "err", err)
		}
		defer pool.Close()

		pg := pgs.NewStoreWithConnection(pool, pgs.WithEmbeddingDimensions(cfg.AI.EmbedDim))
		history = pg
		index = pg
	}

	bank := examples.Default()
	var embedder examples.Embedder
	if cfg.AI.EmbedModel != "" {
		embedder = aiClient
	}
	selector := examples.NewSelector(examples.NewSelectorParams{
		Bank:           bank,
		Embedder: embedder,
		Index:    index,
		Parallel: int(cfg.AI.ParallelReq),
	})
	if err := selector.Embed(ctx); err != nil {
		logger.Warn("Failed to embed example questions, using fixed examples", "err", err)
	}

	orchestrator, err := query.NewOrchestrator(ctx, query.NewOrchestratorParams{
		Catalog: cat,
		Translator: translate.NewTranslator(translate.NewTranslatorParams{
			Client:       aiClient,
			Selector:     selector,
			MaxRetries:   cfg.Pipeline.TranslateRetries,
			FewShot:      cfg.Pipeline.FewShot,
			ContextTurns: cfg.Pipeline.ContextTurns,
			MaxTokens:    cfg.AI.MaxTokens,
			PromptBudget: cfg.Pipeline.PromptBudget,
		}),
		Validator: validate.NewValidator(cfg.Policy()),
		Executor: execute.NewExecutor(execute.NewExecutorParams{
			Store:      graph,
			Timeout:    cfg.Pipeline.ExecTimeout,
			MaxRetries: cfg.Pipeline.ExecRetries,
		}),
		Bank:           bank,
		History:        history,
		Tracer:         tracer,
		Cache:          cfg.CacheConfig(),
		Registerer:     reg,
		AnswerTimeout:  cfg.Pipeline.AnswerTimeout,
		TranslateShare: cfg.Pipeline.TranslateShare,
		ContextTurns:   cfg.Pipeline.ContextTurns,
		Debug:          cfg.Debug,
	})
	if err != nil {
		logger.Fatal("Failed to build answer pipeline", "err", err)
	}

	app := &mid.App{
		Answers: orchestrator,
		Catalog: cat,
		Store:   graph,
		History:        history,
		Metrics: metrics.Handler(reg),
	}

	if cfg.S3.Enabled() {
		app.Exporter = newExporter(ctx, cfg.S3)
	}

	if cfg.RabbitMQ.Enabled() {
		conn, err := queue.Init(cfg.RabbitMQ.URL())
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", "err", err)
		}
		defer conn.Close()

		pub, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer pub.Close()
		app.Publisher = pub

		sub, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer sub.Close()
		err = queue.SubscribeTopic(ctx, sub, queue.TopicCatalogRefreshed, queue.CatalogRefreshHandler(cat))
		if err != nil {
			logger.Fatal("Failed to subscribe to catalog events", "err", err)
		}
	} else if cfg.CatalogRefreshInterval > 0 {
		go refreshPeriodically(ctx, cat, cfg.CatalogRefreshInterval)
	}

	if err := Run(ctx, New(app), cfg.Port); err != nil {
		logger.Fatal("Failed to run server", "err", err)
	}
}

func newExporter(ctx context.Context, cfg config.S3) *storage.Exporter {
	client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}
	signer, pathPrefix, err := storage.NewPublicSigner(client, cfg.PublicEndpoint)
	if err != nil {
		logger.Fatal("Failed to create S3 signer", "err", err)
	}
	exporter, err := storage.NewExporter(storage.NewExporterParams{
		Objects:    client,
		Signer:     signer,
		Bucket:     cfg.Bucket,
		PathPrefix: pathPrefix,
	})
	if err != nil {
		logger.Fatal("Failed to create exporter", "err", err)
	}
	return exporter
}

// refreshPeriodically keeps a standalone server's catalog current when no
// worker broadcasts refreshes.
func refreshPeriodically(ctx context.Context, cat *catalog.Catalog, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Refresh logs its own failures.
			_, _ = cat.Refresh(ctx)
		}
	}
}
