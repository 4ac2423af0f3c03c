package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sophia-systems/csbot/internal/metrics"
)

// pollInterval bounds each Dequeue call so the run loop can re-check ctx
// cancellation promptly during shutdown.
const pollInterval = 2 * time.Second

// JobSource supplies document ids to ingest.
type JobSource interface {
	Dequeue(ctx context.Context, pollTimeout time.Duration) (string, error)
}

// QueueDepther is an optional capability of JobSource: a source that can
// report its current backlog so the worker can publish it as a gauge.
// worker.Queue satisfies this.
type QueueDepther interface {
	Len(ctx context.Context) (int64, error)
}

// Ingestor drives one document through the ingestion orchestrator.
// ingest.Orchestrator satisfies this.
type Ingestor interface {
	Ingest(ctx context.Context, documentID string) error
}

// Worker consumes JobSource with maxJobs concurrency slots and a per-job
// timeout. Grounded in original_source's ingestion_worker.py
// WorkerSettings (max_jobs=5, job_timeout=600) and the teacher's
// cmd/server/main.go signal-channel/drain shutdown idiom.
type Worker struct {
	jobs       JobSource
	ingestor   Ingestor
	maxJobs    int
	jobTimeout time.Duration
	metrics    *metrics.Metrics
}

// New creates a Worker. metrics may be nil; observations become no-ops.
func New(jobs JobSource, ingestor Ingestor, maxJobs int, jobTimeout time.Duration, metricsCollector *metrics.Metrics) *Worker {
	return &Worker{jobs: jobs, ingestor: ingestor, maxJobs: maxJobs, jobTimeout: jobTimeout, metrics: metricsCollector}
}

// Run consumes jobs until ctx is cancelled, then drains in-flight jobs
// before returning.
// In-flight jobs run against a background context bounded by jobTimeout,
// not ctx, so a shutdown signal does not abort work already accepted.
func (w *Worker) Run(ctx context.Context) {
	sem := make(chan struct{}, w.maxJobs)
	var wg sync.WaitGroup

	depther, _ := w.jobs.(QueueDepther)

	for {
		if ctx.Err() != nil {
			break
		}

		if depther != nil {
			if depth, err := depther.Len(ctx); err == nil {
				w.metrics.SetWorkerQueueDepth(depth)
			}
		}

		docID, err := w.jobs.Dequeue(ctx, pollInterval)
		if errors.Is(err, ErrNoJob) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("worker dequeue failed", "error", err)
			continue
		}

		// A job already pulled off the queue is committed to: acquire a
		// slot unconditionally rather than risk dropping it on shutdown.
		sem <- struct{}{}

		wg.Add(1)
		go func(documentID string) {
			defer wg.Done()
			defer func() { <-sem }()
			w.processJob(documentID)
		}(docID)
	}

	wg.Wait()
	slog.Info("worker stopped, all in-flight jobs drained")
}

func (w *Worker) processJob(documentID string) {
	jobCtx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	w.metrics.WorkerJobStarted()
	defer w.metrics.WorkerJobFinished()

	slog.Info("worker ingesting", "document_id", documentID)
	if err := w.ingestor.Ingest(jobCtx, documentID); err != nil {
		slog.Error("worker ingestion failed", "document_id", documentID, "error", err)
	}
}
