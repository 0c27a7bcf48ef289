// Package config reads the service configuration from the environment once
// at startup.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/cache"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/query"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/translate"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/validate"
)

type Neo4j struct {
	URI      string `validate:"required"`
	User     string
	Password string
	Database string
}

type AI struct {
	Adapter string `validate:"oneof=openai ollama"`

	ChatURL   string
	ChatKey   string
	ChatModel string `validate:"required"`

	EmbedURL   string
	EmbedKey   string
	EmbedModel string
	EmbedDim   int `validate:"gte=0"`

	MaxTokens   int   `validate:"gte=1"`
	ParallelReq int64 `validate:"gte=1"`
	Timeout     time.Duration
}

type Pipeline struct {
	TranslateRetries int           `validate:"gte=0,lte=10"`
	ExecRetries      int           `validate:"gte=0,lte=10"`
	ExecTimeout      time.Duration `validate:"gt=0"`
	AnswerTimeout    time.Duration `validate:"gt=0"`
	RowCap           int           `validate:"gte=1"`
	MaxRowCap        int           `validate:"gtefield=RowCap"`
	MaxFanOut        float64       `validate:"gt=0"`
	ContextTurns     int           `validate:"gte=0"`
	FewShot          int
	// TranslateShare is the part of AnswerTimeout translation may use.
	TranslateShare   float64       `validate:"gt=0,lt=1"`
	PromptBudget     int           `validate:"gte=1"`
}

type Cache struct {
	MaxEntries int           `validate:"gte=0"`
	TTL        time.Duration `validate:"gte=0"`
	Sweep      time.Duration `validate:"gte=0"`
}

type RabbitMQ struct {
	User     string
	Password string
	Host     string
	Port     string
}

// Enabled reports whether a broker host is configured.
func (r RabbitMQ) Enabled() bool {
	return r.Host != ""
}

func (r RabbitMQ) URL() string {
	port := r.Port
	if port == "" {
		port = "5672"
	}
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(r.User, r.Password),
		Host:   r.Host + ":" + port,
		Path:   "/",
	}
	return u.String()
}

type S3 struct {
	Region         string
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
}

func (s S3) Enabled() bool {
	return s.Bucket != ""
}

type Config struct {
	Debug bool
	Port  string `validate:"required,numeric"`

	Neo4j    Neo4j
	AI       AI
	Pipeline Pipeline
	Cache    Cache

	// DatabaseURL enables the PostgreSQL history store, the pgvector example
	// index and the refresh lease. Empty keeps everything in memory.
	DatabaseURL string
	RabbitMQ    RabbitMQ
	S3          S3

	CatalogRefreshInterval time.Duration `validate:"gte=0"`
}

// Load reads the environment, applies defaults and validates the result.
func Load() (*Config, error) {
	policy := validate.DefaultPolicy()

	cfg := &Config{
		Debug: util.GetEnvBool("DEBUG", false),
		Port:  util.GetEnvString("PORT", "8080"),
		Neo4j: Neo4j{
			URI:      util.GetEnvString("NEO4J_URI", "bolt://localhost:7687"),
			User:     util.GetEnvString("NEO4J_USER", "neo4j"),
			Password: util.GetEnv("NEO4J_PASSWORD"),
			Database: util.GetEnv("NEO4J_DATABASE"),
		},
		AI: AI{
			Adapter:     util.GetEnvString("AI_ADAPTER", "openai"),
			ChatURL:     util.GetEnv("AI_CHAT_URL"),
			ChatKey:     util.GetEnv("AI_CHAT_KEY"),
			ChatModel:   util.GetEnv("AI_CHAT_MODEL"),
			EmbedURL:    util.GetEnv("AI_EMBED_URL"),
			EmbedKey:    util.GetEnv("AI_EMBED_KEY"),
			EmbedModel:  util.GetEnv("AI_EMBED_MODEL"),
			EmbedDim:    util.GetEnvInt("AI_EMBED_DIM", 0),
			MaxTokens:   util.GetEnvInt("AI_MAX_TOKENS", 1024),
			ParallelReq: int64(util.GetEnvInt("AI_PARALLEL_REQ", 8)),
			Timeout:     util.GetEnvDuration("AI_TIMEOUT", 20*time.Second),
		},
		Pipeline: Pipeline{
			TranslateRetries: util.GetEnvInt("TRANSLATE_RETRIES", 2),
			ExecRetries:      util.GetEnvInt("EXEC_RETRIES", 2),
			ExecTimeout:      util.GetEnvDuration("EXEC_TIMEOUT", 10*time.Second),
			AnswerTimeout:    util.GetEnvDuration("ANSWER_TIMEOUT", 30*time.Second),
			RowCap:           util.GetEnvInt("ROW_CAP", policy.DefaultRowCap),
			MaxRowCap:        util.GetEnvInt("MAX_ROW_CAP", policy.MaxRowCap),
			MaxFanOut:        util.GetEnvNumeric("MAX_FANOUT", policy.MaxFanOut),
			ContextTurns:     util.GetEnvInt("CONTEXT_TURNS", 3),
			FewShot:          util.GetEnvInt("FEW_SHOT", 6),
			TranslateShare:   util.GetEnvNumeric("TRANSLATE_SHARE", query.DefaultTranslateShare),
			PromptBudget:     util.GetEnvInt("PROMPT_BUDGET", translate.DefaultPromptBudget),
		},
		Cache: Cache{
			MaxEntries: util.GetEnvInt("CACHE_MAX_ENTRIES", 1024),
			TTL:        util.GetEnvDuration("CACHE_TTL", 10*time.Minute),
			Sweep:      util.GetEnvDuration("CACHE_SWEEP", time.Minute),
		},
		DatabaseURL: util.GetEnv("DATABASE_URL"),
		RabbitMQ: RabbitMQ{
			User:     util.GetEnvString("RABBITMQ_USER", "guest"),
			Password: util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
			Host:     util.GetEnv("RABBITMQ_HOST"),
			Port:     util.GetEnv("RABBITMQ_PORT"),
		},
		S3: S3{
			Region:         util.GetEnvString("AWS_REGION", "us-east-1"),
			Endpoint:       util.GetEnv("AWS_ENDPOINT"),
			PublicEndpoint: util.GetEnv("AWS_PUBLIC_ENDPOINT"),
			AccessKey:      util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey:      util.GetEnv("AWS_SECRET_KEY"),
			Bucket:         util.GetEnv("AWS_BUCKET"),
		},
		CatalogRefreshInterval: util.GetEnvDuration("CATALOG_REFRESH_INTERVAL", 5*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Policy is the validator policy for this configuration.
func (c *Config) Policy() validate.Policy {
	p := validate.DefaultPolicy()
	p.DefaultRowCap = c.Pipeline.RowCap
	p.MaxRowCap = c.Pipeline.MaxRowCap
	p.MaxFanOut = c.Pipeline.MaxFanOut
	return p
}

// CacheConfig is the answer cache configuration, without a registerer.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		MaxEntries:    c.Cache.MaxEntries,
		TTL:           c.Cache.TTL,
		SweepInterval: c.Cache.Sweep,
		Name:          "answers",
	}
}
