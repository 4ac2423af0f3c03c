package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/sophia-systems/csbot/internal/config"
	"github.com/sophia-systems/csbot/internal/model"
	"github.com/sophia-systems/csbot/internal/providers"
)

type fakeDocumentStore struct {
	doc        *model.Document
	getErr     error
	statuses   []model.IndexStatus
	errMessage string
	chunkCount int
}

func (f *fakeDocumentStore) GetByID(ctx context.Context, id string) (*model.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.doc, nil
}

func (f *fakeDocumentStore) SetProcessing(ctx context.Context, id string) error {
	f.statuses = append(f.statuses, model.StatusProcessing)
	return nil
}

func (f *fakeDocumentStore) SetReady(ctx context.Context, id string, chunkCount int) error {
	f.statuses = append(f.statuses, model.StatusReady)
	f.chunkCount = chunkCount
	return nil
}

func (f *fakeDocumentStore) SetError(ctx context.Context, id, message string) error {
	f.statuses = append(f.statuses, model.StatusError)
	f.errMessage = message
	return nil
}

type fakeChunkStore struct {
	inserted       []*model.DocumentChunk
	embedded       []string
	keywordIndexed []string
	deleted        bool
	insertErr      error
	embedErr       error
}

func (f *fakeChunkStore) InsertPending(ctx context.Context, chunks []*model.DocumentChunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, chunks...)
	return nil
}

func (f *fakeChunkStore) SetEmbeddings(ctx context.Context, ids []string, vectors [][]float32) error {
	if f.embedErr != nil {
		return f.embedErr
	}
	f.embedded = append(f.embedded, ids...)
	return nil
}

func (f *fakeChunkStore) MarkKeywordIndexed(ctx context.Context, id string) error {
	f.keywordIndexed = append(f.keywordIndexed, id)
	return nil
}

func (f *fakeChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	f.deleted = true
	return nil
}

type fakeLoader struct {
	sourceType model.SourceType
	docs       []LoadedDocument
	err        error
}

func (f *fakeLoader) Load(sourceURI string) ([]LoadedDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func (f *fakeLoader) SupportedSourceType() model.SourceType { return f.sourceType }

type fakeEmbedder struct {
	dimension int
	err       error
}

func (f *fakeEmbedder) Dimension() int { return f.dimension }

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dimension)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return make([]float32, f.dimension), nil
}

type fakeVectorStore struct {
	upserted int
	err      error
}

func (f *fakeVectorStore) Upsert(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.upserted += len(ids)
	return nil
}

func (f *fakeVectorStore) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]providers.VectorSearchResult, error) {
	return nil, nil
}

func (f *fakeVectorStore) Delete(ctx context.Context, ids []string) error { return nil }

type fakeKeywordSearch struct {
	indexed []string
	err     error
}

func (f *fakeKeywordSearch) Index(ctx context.Context, chunkID, text string, metadata map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, chunkID)
	return nil
}

func (f *fakeKeywordSearch) Search(ctx context.Context, query string, topK int, filter map[string]any) ([]providers.VectorSearchResult, error) {
	return nil, nil
}

func newTestOrchestrator(loader *fakeLoader, embedder *fakeEmbedder, vectors *fakeVectorStore, keyword *fakeKeywordSearch) (*Orchestrator, *fakeDocumentStore, *fakeChunkStore) {
	docs := &fakeDocumentStore{
		doc: &model.Document{ID: "doc-1", SourceType: model.SourceMarkdown, SourceURI: "docs/manual.md"},
	}
	chunks := &fakeChunkStore{}
	registry := NewRegistry(loader)
	orch := NewOrchestrator(docs, chunks, registry, embedder, keyword, vectors, config.DefaultTuning())
	return orch, docs, chunks
}

func TestIngest_FullPipeline(t *testing.T) {
	loader := &fakeLoader{
		sourceType: model.SourceMarkdown,
		docs: []LoadedDocument{
			{Text: "# Lint Trap\n\nClean the lint trap after every cycle to keep airflow strong.", SourceURI: "docs/manual.md"},
		},
	}
	embedder := &fakeEmbedder{dimension: 8}
	vectors := &fakeVectorStore{}
	keyword := &fakeKeywordSearch{}

	orch, docs, chunks := newTestOrchestrator(loader, embedder, vectors, keyword)

	if err := orch.Ingest(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if len(docs.statuses) < 2 {
		t.Fatalf("expected at least 2 status updates, got %d", len(docs.statuses))
	}
	if docs.statuses[0] != model.StatusProcessing {
		t.Errorf("statuses[0] = %v, want %v", docs.statuses[0], model.StatusProcessing)
	}
	if docs.statuses[len(docs.statuses)-1] != model.StatusReady {
		t.Errorf("final status = %v, want %v", docs.statuses[len(docs.statuses)-1], model.StatusReady)
	}
	if docs.chunkCount == 0 {
		t.Error("expected a non-zero chunk count")
	}
	if len(chunks.inserted) == 0 {
		t.Error("expected chunks to be persisted")
	}
	if len(chunks.embedded) != len(chunks.inserted) {
		t.Errorf("embedded %d chunks, want %d", len(chunks.embedded), len(chunks.inserted))
	}
	if vectors.upserted != len(chunks.inserted) {
		t.Errorf("upserted %d vectors, want %d", vectors.upserted, len(chunks.inserted))
	}
	if len(keyword.indexed) != len(chunks.inserted) {
		t.Errorf("keyword-indexed %d chunks, want %d", len(keyword.indexed), len(chunks.inserted))
	}
	if len(chunks.keywordIndexed) != len(chunks.inserted) {
		t.Errorf("marked %d chunks keyword-indexed, want %d", len(chunks.keywordIndexed), len(chunks.inserted))
	}
}

func TestIngest_DocumentNotFound(t *testing.T) {
	loader := &fakeLoader{sourceType: model.SourceMarkdown}
	orch, docs, _ := newTestOrchestrator(loader, &fakeEmbedder{dimension: 8}, &fakeVectorStore{}, &fakeKeywordSearch{})
	docs.getErr = fmt.Errorf("no rows")

	if err := orch.Ingest(context.Background(), "missing"); err == nil {
		t.Fatal("expected error when document is not found")
	}
}

func TestIngest_LoadFailsSetsErrorStatus(t *testing.T) {
	loader := &fakeLoader{sourceType: model.SourceMarkdown, err: fmt.Errorf("connection reset")}
	orch, docs, chunks := newTestOrchestrator(loader, &fakeEmbedder{dimension: 8}, &fakeVectorStore{}, &fakeKeywordSearch{})

	if err := orch.Ingest(context.Background(), "doc-1"); err == nil {
		t.Fatal("expected error when the loader fails")
	}

	if docs.statuses[len(docs.statuses)-1] != model.StatusError {
		t.Errorf("final status = %v, want %v", docs.statuses[len(docs.statuses)-1], model.StatusError)
	}
	if docs.errMessage == "" {
		t.Error("expected an error message to be recorded")
	}
	if !chunks.deleted {
		t.Error("expected pending chunk rows to be rolled back")
	}
}

func TestIngest_EmbedFailsSetsErrorStatus(t *testing.T) {
	loader := &fakeLoader{
		sourceType: model.SourceMarkdown,
		docs:       []LoadedDocument{{Text: "Replace the water filter every six months.", SourceURI: "docs/manual.md"}},
	}
	embedder := &fakeEmbedder{dimension: 8, err: fmt.Errorf("embedding API returned HTTP 500")}
	orch, docs, chunks := newTestOrchestrator(loader, embedder, &fakeVectorStore{}, &fakeKeywordSearch{})

	err := orch.Ingest(context.Background(), "doc-1")
	if err == nil {
		t.Fatal("expected error when embedding fails")
	}

	if docs.statuses[len(docs.statuses)-1] != model.StatusError {
		t.Errorf("final status = %v, want %v", docs.statuses[len(docs.statuses)-1], model.StatusError)
	}
	if !chunks.deleted {
		t.Error("expected pending chunk rows to be rolled back after embed failure")
	}
}

func TestIngest_NoChunksProducedIsAnError(t *testing.T) {
	loader := &fakeLoader{sourceType: model.SourceMarkdown, docs: []LoadedDocument{{Text: "", SourceURI: "docs/empty.md"}}}
	orch, docs, _ := newTestOrchestrator(loader, &fakeEmbedder{dimension: 8}, &fakeVectorStore{}, &fakeKeywordSearch{})

	if err := orch.Ingest(context.Background(), "doc-1"); err == nil {
		t.Fatal("expected error when no chunks are produced")
	}
	if docs.statuses[len(docs.statuses)-1] != model.StatusError {
		t.Errorf("final status = %v, want %v", docs.statuses[len(docs.statuses)-1], model.StatusError)
	}
}

func TestIngest_DuplicateRunIsRejected(t *testing.T) {
	loader := &fakeLoader{
		sourceType: model.SourceMarkdown,
		docs:       []LoadedDocument{{Text: "Replace the water filter every six months.", SourceURI: "docs/manual.md"}},
	}
	orch, _, _ := newTestOrchestrator(loader, &fakeEmbedder{dimension: 8}, &fakeVectorStore{}, &fakeKeywordSearch{})

	orch.mu.Lock()
	orch.processing["doc-1"] = true
	orch.mu.Unlock()

	if err := orch.Ingest(context.Background(), "doc-1"); err == nil {
		t.Fatal("expected error when the document is already being ingested")
	}
}
