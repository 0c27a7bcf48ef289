// Package bootstrap builds the external clients shared by the server and
// worker binaries from the loaded configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/config"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/ai"
	oai "github.com/VinayJogani14/Supply-Chain-Management/pkg/ai/ollama"
	gai "github.com/VinayJogani14/Supply-Chain-Management/pkg/ai/openai"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore/neo4j"
)

// NewAIClient returns the client selected by cfg.Adapter.
func NewAIClient(cfg config.AI) (ai.GraphAIClient, error) {
	switch cfg.Adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbedModel,
			EmbeddingDim:   cfg.EmbedDim,

			BaseURL: cfg.ChatURL,
			ApiKey:  cfg.ChatKey,

			Timeout:               cfg.Timeout,
			MaxConcurrentRequests: cfg.ParallelReq,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		return client, nil
	case "openai", "":
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbedModel,
			EmbeddingDim:   cfg.EmbedDim,

			ChatURL:      cfg.ChatURL,
			ChatKey:      cfg.ChatKey,
			EmbeddingURL: cfg.EmbedURL,
			EmbeddingKey: cfg.EmbedKey,

			Timeout:               cfg.Timeout,
			MaxConcurrentRequests: cfg.ParallelReq,
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI adapter %q", cfg.Adapter)
	}
}

// WarmUp loads the chat model so the first question does not pay for it. A
// failure is not fatal; the provider loads the model on first use.
func WarmUp(ctx context.Context, client ai.GraphAIClient, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.LoadModel(ctx); err != nil {
		return fmt.Errorf("load chat model: %w", err)
	}
	return nil
}

// NewGraphStore connects to Neo4j. txTimeout is enforced server side on
// every query.
func NewGraphStore(ctx context.Context, cfg config.Neo4j, txTimeout time.Duration) (*neo4j.Store, error) {
	return neo4j.NewStore(ctx, neo4j.NewStoreParams{
		URI:       cfg.URI,
		Username:  cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		TxTimeout: txTimeout,
	})
}

// NewCatalog returns a catalog introspecting store. It is not loaded yet.
func NewCatalog(store graphstore.Store, timeout time.Duration) *catalog.Catalog {
	return catalog.NewCatalog(catalog.NewCatalogParams{
		Introspector: graphstore.NewIntrospector(store, graphstore.DefaultEndpointSample),
		Timeout:      timeout,
	})
}

// PoolConfig parses databaseURL and registers the pgvector types on every
// new connection.
func PoolConfig(databaseURL string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	return cfg, nil
}

func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := PoolConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
