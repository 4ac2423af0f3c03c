// Package config implements the two-layer configuration model: an
// immutable environment-variable layer for secrets and infrastructure
// endpoints, and a reloadable YAML-overlay layer for behavioral tuning
// parameters.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Config holds infrastructure and secret configuration loaded once from
// environment variables. It is immutable after Load() returns.
type Config struct {
	Port             int
	Environment      string
	DatabaseURL      string
	DatabaseMaxConns int
	RedisURL         string

	LLMProvider       string
	LLMAPIKey         string
	LLMModel          string
	VertexAIProject   string
	VertexAILocation  string

	EmbeddingProvider        string
	EmbeddingAPIKey          string
	EmbeddingModel           string
	EmbeddingRateLimitPerSec float64

	VectorStoreProvider string
	QdrantURL           string
	QdrantAPIKey        string

	RerankerURL    string
	RerankerAPIKey string

	EscalationWebhookURL string

	TuningConfigPath string
	PersonaPath      string
	IngestionBaseDir string
}

// Load reads configuration from environment variables. DATABASE_URL is
// always required, and QDRANT_URL is required when
// VECTOR_STORE_PROVIDER=qdrant; every other variable defaults per the
// teacher's own envStr/envInt/envFloat convention.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required")
	}

	cfg := &Config{
		Port:             envInt("PORT", 8080),
		Environment:      envStr("ENVIRONMENT", "development"),
		DatabaseURL:      dbURL,
		DatabaseMaxConns: envInt("DATABASE_MAX_CONNS", 20),
		RedisURL:         envStr("REDIS_URL", "redis://localhost:6379/0"),

		LLMProvider:      envStr("LLM_PROVIDER", "vertexai"),
		LLMAPIKey:        envStr("LLM_API_KEY", ""),
		LLMModel:         envStr("LLM_MODEL", "gemini-2.5-flash"),
		VertexAIProject:  envStr("GOOGLE_CLOUD_PROJECT", ""),
		VertexAILocation: envStr("VERTEX_AI_LOCATION", "global"),

		EmbeddingProvider:        envStr("EMBEDDING_PROVIDER", "vertexai"),
		EmbeddingAPIKey:          envStr("EMBEDDING_API_KEY", ""),
		EmbeddingModel:           envStr("EMBEDDING_MODEL", "text-embedding-004"),
		EmbeddingRateLimitPerSec: envFloat("EMBEDDING_RATE_LIMIT_PER_SECOND", 5.0),

		VectorStoreProvider: envStr("VECTOR_STORE_PROVIDER", "pgvector"),
		QdrantURL:           envStr("QDRANT_URL", ""),
		QdrantAPIKey:        envStr("QDRANT_API_KEY", ""),

		RerankerURL:    envStr("RERANKER_URL", ""),
		RerankerAPIKey: envStr("RERANKER_API_KEY", ""),

		EscalationWebhookURL: envStr("ESCALATION_WEBHOOK_URL", ""),

		TuningConfigPath: envStr("TUNING_CONFIG_PATH", "./config/tuning.yaml"),
		PersonaPath:      envStr("PERSONA_CONFIG_PATH", "./config/persona.yaml"),
		IngestionBaseDir: envStr("INGESTION_BASE_DIR", ""),
	}

	if cfg.VectorStoreProvider == "qdrant" && cfg.QdrantURL == "" {
		return nil, fmt.Errorf("config.Load: QDRANT_URL is required when VECTOR_STORE_PROVIDER=qdrant")
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Tuning is the reloadable behavioral-tuning parameter bundle.
type Tuning struct {
	SemanticTopK            int     `yaml:"semantic_top_k"`
	KeywordTopK             int     `yaml:"keyword_top_k"`
	RRFK                    int     `yaml:"rrf_k"`
	RerankTopK              int     `yaml:"rerank_top_k"`
	ChunkSize               int     `yaml:"chunk_size"`
	ChunkOverlap            int     `yaml:"chunk_overlap"`
	AnswerThreshold         float64 `yaml:"answer_threshold"`
	CaveatThreshold         float64 `yaml:"caveat_threshold"`
	DeclineThreshold        float64 `yaml:"decline_threshold"`
	MinimumRelevance        float64 `yaml:"minimum_relevance"`
	AmbiguityScoreVariance  float64 `yaml:"ambiguity_score_variance"`
	MaxTurns                int     `yaml:"max_turns"`
	EmbeddingDimension      int     `yaml:"embedding_dimension"`
	MaxIngestionJobs        int     `yaml:"max_ingestion_jobs"`
	IngestionJobTimeoutSecs int     `yaml:"ingestion_job_timeout_seconds"`
}

// DefaultTuning returns the parameter defaults enumerated in spec §6.4.
func DefaultTuning() Tuning {
	return Tuning{
		SemanticTopK:            20,
		KeywordTopK:             20,
		RRFK:                    60,
		RerankTopK:              5,
		ChunkSize:               512,
		ChunkOverlap:            64,
		AnswerThreshold:         0.85,
		CaveatThreshold:         0.60,
		DeclineThreshold:        0.35,
		MinimumRelevance:        0.15,
		AmbiguityScoreVariance:  0.05,
		MaxTurns:                10,
		EmbeddingDimension:      768,
		MaxIngestionJobs:        5,
		IngestionJobTimeoutSecs: 600,
	}
}

// TuningStore holds a versioned Tuning snapshot behind an atomic pointer so
// pipeline steps reading it at entry never observe a reload splitting a
// single request across two versions.
type TuningStore struct {
	path    string
	current atomic.Pointer[Tuning]
}

// NewTuningStore loads path if it exists, falling back to DefaultTuning()
// when the file is absent (matches the teacher's own "missing optional
// config file degrades to defaults" pattern from promptloader.go).
func NewTuningStore(path string) (*TuningStore, error) {
	s := &TuningStore{path: path}
	t, err := loadTuning(path)
	if err != nil {
		return nil, fmt.Errorf("config.NewTuningStore: %w", err)
	}
	s.current.Store(t)
	return s, nil
}

// Get returns the current tuning snapshot. Safe for concurrent use.
func (s *TuningStore) Get() Tuning {
	return *s.current.Load()
}

// Reload re-reads the overlay file from disk and atomically swaps the
// snapshot. In-flight pipeline steps that already called Get keep their
// own copy; only steps that call Get after Reload observe the new values.
func (s *TuningStore) Reload() error {
	t, err := loadTuning(s.path)
	if err != nil {
		return fmt.Errorf("config.TuningStore.Reload: %w", err)
	}
	s.current.Store(t)
	return nil
}

func loadTuning(path string) (*Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return &t, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &t, nil
}
