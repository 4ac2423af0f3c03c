// Package app is the composition root shared by cmd/worker and cmd/query:
// it resolves the env-var Config into one concrete provider variant per
// contract and wires the repositories, services, and pipeline on top of
// them. Grounded in 54b3r-tfai-go's per-command inline wiring
// (cmd/tfai/commands/ingest.go selecting an embedder/store by provider
// string) and the teacher's own dependency graph in cmd/server/main.go,
// centralized here because both binaries need the identical graph.
package app

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sophia-systems/csbot/internal/cerrors"
	"github.com/sophia-systems/csbot/internal/config"
	"github.com/sophia-systems/csbot/internal/ingest"
	"github.com/sophia-systems/csbot/internal/metrics"
	"github.com/sophia-systems/csbot/internal/persona"
	"github.com/sophia-systems/csbot/internal/pipeline"
	"github.com/sophia-systems/csbot/internal/providers"
	"github.com/sophia-systems/csbot/internal/repository"
	"github.com/sophia-systems/csbot/internal/retrieval"
	"github.com/sophia-systems/csbot/internal/session"
	"github.com/sophia-systems/csbot/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
)

// App bundles every long-lived dependency a binary needs, so cmd/worker and
// cmd/query each build one and take only what they use.
type App struct {
	Config  *config.Config
	Tuning  *config.TuningStore
	Pool    *pgxpool.Pool
	Metrics *metrics.Metrics

	Documents   *repository.DocumentRepo
	Chunks      *repository.ChunkRepo
	Sessions    *repository.SessionRepo
	Escalations *repository.EscalationRepo

	Embeddings providers.EmbeddingProvider
	Vectors    providers.VectorStoreProvider
	Keyword    providers.KeywordSearchProvider
	Reranker   providers.RerankerProvider
	LLM        providers.LLMProvider

	Orchestrator *ingest.Orchestrator
	Pipeline     *pipeline.Pipeline
	Queue        *worker.Queue
}

// Build resolves Config, connects the database pool, constructs the
// provider variants it names, and wires the orchestrator and pipeline on
// top of them. Callers are responsible for Pool.Close() on shutdown.
func Build(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("app.Build: %w", err)
	}

	tuning, err := config.NewTuningStore(cfg.TuningConfigPath)
	if err != nil {
		return nil, fmt.Errorf("app.Build: tuning store: %w", err)
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, fmt.Errorf("app.Build: %w", err)
	}

	embeddings, err := buildEmbeddingProvider(ctx, cfg, tuning.Get())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("app.Build: %w", err)
	}

	vectors, err := buildVectorStore(ctx, cfg, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("app.Build: %w", err)
	}

	llm, err := buildLLMProvider(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("app.Build: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	documents := repository.NewDocumentRepo(pool)
	chunks := repository.NewChunkRepo(pool)
	sessions := repository.NewSessionRepo(pool)
	escalations := repository.NewEscalationRepo(pool)
	keyword := providers.NewPostgresKeywordSearch(pool)
	reranker := providers.NewHTTPReranker(cfg.RerankerURL, cfg.RerankerAPIKey)

	loaders := ingest.NewRegistry(
		&ingest.MarkdownLoader{BaseDir: cfg.IngestionBaseDir},
		&ingest.PDFLoader{BaseDir: cfg.IngestionBaseDir},
		ingest.NewWebLoader(),
	)
	orchestrator := ingest.NewOrchestrator(documents, chunks, loaders, embeddings, keyword, vectors, tuning.Get()).
		WithMetrics(m)

	personaSvc, err := persona.NewService(cfg.PersonaPath, persona.Variables{})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("app.Build: persona: %w", err)
	}

	sessionMgr := session.NewManager(sessions)
	escalationSvc := session.NewEscalationService(escalations, cfg.EscalationWebhookURL).WithMetrics(m)
	retriever := retrieval.NewRetriever(embeddings, vectors, keyword)
	p := pipeline.New(retriever, reranker, personaSvc, llm, sessionMgr, escalationSvc, tuning, m)

	var queue *worker.Queue
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("app.Build: parse REDIS_URL: %w", err)
	}
	queue = worker.NewQueue(redis.NewClient(redisOpts))

	return &App{
		Config:       cfg,
		Tuning:       tuning,
		Pool:         pool,
		Metrics:      m,
		Documents:    documents,
		Chunks:       chunks,
		Sessions:     sessions,
		Escalations:  escalations,
		Embeddings:   embeddings,
		Vectors:      vectors,
		Keyword:      keyword,
		Reranker:     reranker,
		LLM:          llm,
		Orchestrator: orchestrator,
		Pipeline:     p,
		Queue:        queue,
	}, nil
}

// buildEmbeddingProvider resolves the one configured EmbeddingProvider
// variant and validates its declared dimension against the tuning
// parameter.
func buildEmbeddingProvider(ctx context.Context, cfg *config.Config, tuning config.Tuning) (providers.EmbeddingProvider, error) {
	var (
		embeddings providers.EmbeddingProvider
		err        error
	)

	switch cfg.EmbeddingProvider {
	case "vertexai":
		embeddings, err = providers.NewVertexEmbedding(ctx, cfg.VertexAIProject, cfg.EmbeddingModel, tuning.EmbeddingDimension, cfg.EmbeddingRateLimitPerSec)
	default:
		return nil, &cerrors.ConfigurationError{Detail: fmt.Sprintf("unsupported EMBEDDING_PROVIDER %q", cfg.EmbeddingProvider)}
	}
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	if embeddings.Dimension() != tuning.EmbeddingDimension {
		return nil, &cerrors.ConfigurationError{Detail: fmt.Sprintf(
			"embedding dimension mismatch: provider %q reports %d, tuning.embedding_dimension is %d",
			cfg.EmbeddingProvider, embeddings.Dimension(), tuning.EmbeddingDimension,
		)}
	}
	return embeddings, nil
}

func buildVectorStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (providers.VectorStoreProvider, error) {
	switch cfg.VectorStoreProvider {
	case "pgvector":
		return providers.NewPGVectorStore(pool), nil
	case "qdrant":
		host, port, err := splitHostPort(cfg.QdrantURL)
		if err != nil {
			return nil, fmt.Errorf("vector store: %w", err)
		}
		return providers.NewQdrantVectorStore(ctx, providers.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: "csbot_chunks",
			APIKey:     cfg.QdrantAPIKey,
		})
	default:
		return nil, &cerrors.ConfigurationError{Detail: fmt.Sprintf("unsupported VECTOR_STORE_PROVIDER %q", cfg.VectorStoreProvider)}
	}
}

func buildLLMProvider(ctx context.Context, cfg *config.Config) (providers.LLMProvider, error) {
	switch cfg.LLMProvider {
	case "anthropic":
		return providers.NewAnthropicLLM(cfg.LLMAPIKey, cfg.LLMModel), nil
	case "vertexai":
		return providers.NewVertexLLM(ctx, cfg.VertexAIProject, cfg.LLMModel)
	default:
		return nil, &cerrors.ConfigurationError{Detail: fmt.Sprintf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)}
	}
}

func splitHostPort(rawURL string) (string, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, fmt.Errorf("parse %q: %w", rawURL, err)
	}
	host := u.Hostname()
	if host == "" {
		host = rawURL
	}
	port := 6334
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("parse port in %q: %w", rawURL, err)
		}
	}
	return host, port, nil
}
