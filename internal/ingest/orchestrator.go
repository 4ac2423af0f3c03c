package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sophia-systems/csbot/internal/config"
	"github.com/sophia-systems/csbot/internal/metrics"
	"github.com/sophia-systems/csbot/internal/model"
	"github.com/sophia-systems/csbot/internal/providers"
)

// embeddingBatchSize is the batch size for ingestion step 5.
const embeddingBatchSize = 100

// DocumentStore is the subset of repository.DocumentRepo the orchestrator
// needs.
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*model.Document, error)
	SetProcessing(ctx context.Context, id string) error
	SetReady(ctx context.Context, id string, chunkCount int) error
	SetError(ctx context.Context, id, message string) error
}

// ChunkStore is the subset of repository.ChunkRepo the orchestrator needs.
type ChunkStore interface {
	InsertPending(ctx context.Context, chunks []*model.DocumentChunk) error
	SetEmbeddings(ctx context.Context, ids []string, vectors [][]float32) error
	MarkKeywordIndexed(ctx context.Context, id string) error
	DeleteByDocument(ctx context.Context, documentID string) error
}

// Orchestrator drives load -> clean -> chunk -> embed -> index for one
// document, and is the sole writer of Document status transitions (spec
// §4.2). Grounded in the teacher's internal/service/pipeline.go for the
// processingMu/per-document duplicate-run guard and failDocument helper,
// and in original_source's app/services/ingestion_pipeline.py for the
// exact phase order.
type Orchestrator struct {
	documents  DocumentStore
	chunks     ChunkStore
	loaders    *Registry
	embeddings providers.EmbeddingProvider
	keyword    providers.KeywordSearchProvider
	vectors    providers.VectorStoreProvider
	tuning     config.Tuning

	mu         sync.Mutex
	processing map[string]bool

	metrics *metrics.Metrics
}

// WithMetrics attaches a metrics collector, returning the same Orchestrator
// for chaining. Safe to skip; a nil collector makes observations no-ops.
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	documents DocumentStore,
	chunks ChunkStore,
	loaders *Registry,
	embeddings providers.EmbeddingProvider,
	keyword providers.KeywordSearchProvider,
	vectors providers.VectorStoreProvider,
	tuning config.Tuning,
) *Orchestrator {
	return &Orchestrator{
		documents:  documents,
		chunks:     chunks,
		loaders:    loaders,
		embeddings: embeddings,
		keyword:    keyword,
		vectors:    vectors,
		tuning:     tuning,
		processing: make(map[string]bool),
	}
}

// Ingest transitions a pending Document through processing to ready, or
// marks it error with a message. Direct invocation is reserved for unit
// tests of the orchestrator in isolation — production code reaches it
// only through the background worker's queue consumer (internal/worker).
func (o *Orchestrator) Ingest(ctx context.Context, documentID string) error {
	o.mu.Lock()
	if o.processing[documentID] {
		o.mu.Unlock()
		return fmt.Errorf("ingest.Orchestrator.Ingest: document %s is already being ingested", documentID)
	}
	o.processing[documentID] = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.processing, documentID)
		o.mu.Unlock()
	}()

	start := time.Now()
	doc, err := o.documents.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("ingest.Orchestrator.Ingest: %w", err)
	}

	if err := o.documents.SetProcessing(ctx, documentID); err != nil {
		return fmt.Errorf("ingest.Orchestrator.Ingest: set processing: %w", err)
	}
	slog.Info("ingestion started", "document_id", documentID, "source_type", doc.SourceType)

	chunkCount, err := o.run(ctx, doc)
	if err != nil {
		o.failDocument(ctx, documentID, err)
		o.metrics.ObserveIngestion("error", 0, time.Since(start))
		return fmt.Errorf("ingest.Orchestrator.Ingest: %w", err)
	}

	if err := o.documents.SetReady(ctx, documentID, chunkCount); err != nil {
		return fmt.Errorf("ingest.Orchestrator.Ingest: set ready: %w", err)
	}
	o.metrics.ObserveIngestion("ready", chunkCount, time.Since(start))
	slog.Info("ingestion completed", "document_id", documentID, "chunk_count", chunkCount)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, doc *model.Document) (int, error) {
	loader, err := o.loaders.Get(doc.SourceType)
	if err != nil {
		return 0, fmt.Errorf("resolve loader: %w", err)
	}

	loaded, err := loader.Load(doc.SourceURI)
	if err != nil {
		return 0, fmt.Errorf("load: %w", err)
	}

	var allChunks []Chunk
	for _, ld := range loaded {
		cleaned := Clean(ld.Text)
		metadata := ExtractMetadata(cleaned, ld.SourceURI, doc.SourceType, ld.Metadata)
		allChunks = append(allChunks, ChunkText(cleaned, metadata, o.tuning.ChunkSize, o.tuning.ChunkOverlap)...)
	}

	if len(allChunks) == 0 {
		return 0, fmt.Errorf("no chunks produced from %d loaded document(s)", len(loaded))
	}

	rows, err := toChunkRows(doc.ID, allChunks)
	if err != nil {
		return 0, fmt.Errorf("build chunk rows: %w", err)
	}

	if err := o.chunks.InsertPending(ctx, rows); err != nil {
		return 0, fmt.Errorf("persist chunks: %w", err)
	}

	if err := o.embedAndIndex(ctx, rows); err != nil {
		return 0, err
	}

	return len(rows), nil
}

// embedAndIndex runs ingestion steps 5-6: batched embedding and
// per-chunk keyword indexing.
func (o *Orchestrator) embedAndIndex(ctx context.Context, rows []*model.DocumentChunk) error {
	for start := 0; start < len(rows); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		texts := make([]string, len(batch))
		ids := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
			ids[i] = c.ID
		}

		vectors, err := o.embeddings.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embed batch [%d:%d]: expected %d vectors, got %d", start, end, len(batch), len(vectors))
		}

		if err := o.chunks.SetEmbeddings(ctx, ids, vectors); err != nil {
			return fmt.Errorf("persist embeddings [%d:%d]: %w", start, end, err)
		}

		metadatas := make([]map[string]any, len(batch))
		for i, c := range batch {
			var md map[string]any
			if len(c.Metadata) > 0 {
				if err := json.Unmarshal(c.Metadata, &md); err != nil {
					return fmt.Errorf("unmarshal metadata for chunk %s: %w", c.ID, err)
				}
			}
			metadatas[i] = md
		}
		if err := o.vectors.Upsert(ctx, ids, vectors, texts, metadatas); err != nil {
			return fmt.Errorf("upsert vector store [%d:%d]: %w", start, end, err)
		}

		for i, c := range batch {
			if err := o.keyword.Index(ctx, c.ID, texts[i], metadatas[i]); err != nil {
				return fmt.Errorf("keyword index chunk %s: %w", c.ID, err)
			}
			if err := o.chunks.MarkKeywordIndexed(ctx, c.ID); err != nil {
				return fmt.Errorf("mark keyword indexed %s: %w", c.ID, err)
			}
		}
	}
	return nil
}

// failDocument rolls back pending chunk writes and records the failure on
// the Document row.
func (o *Orchestrator) failDocument(ctx context.Context, documentID string, origErr error) {
	if err := o.chunks.DeleteByDocument(ctx, documentID); err != nil {
		slog.Error("ingestion rollback failed", "document_id", documentID, "error", err)
	}
	if err := o.documents.SetError(ctx, documentID, origErr.Error()); err != nil {
		slog.Error("failed to record ingestion error", "document_id", documentID, "error", err)
	}
	slog.Error("ingestion failed", "document_id", documentID, "error", origErr)
}

func toChunkRows(documentID string, chunks []Chunk) ([]*model.DocumentChunk, error) {
	now := time.Now().UTC()
	rows := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal chunk %d metadata: %w", i, err)
		}
		rows[i] = &model.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			ChunkIndex: c.Index,
			Text:       c.Text,
			Metadata:   meta,
			CreatedAt:  now,
		}
	}
	return rows, nil
}
