// Package metrics exposes the Prometheus collectors the pipeline and
// ingestion orchestrator record against. Grounded in the teacher's
// internal/middleware/monitoring.go, adapted from per-HTTP-request
// collectors to per-query and per-document ones.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors shared across the query pipeline, the
// ingestion orchestrator, and the background worker.
type Metrics struct {
	QueriesTotal       *prometheus.CounterVec
	QueryDuration       prometheus.Histogram
	ConfidenceTierTotal *prometheus.CounterVec
	RerankDuration      prometheus.Histogram
	RetrievalDuration   prometheus.Histogram

	DocumentsIngestedTotal *prometheus.CounterVec
	IngestionDuration      prometheus.Histogram
	ChunksIndexedTotal     prometheus.Counter

	EscalationsTotal      prometheus.Counter
	EscalationWebhookFail prometheus.Counter

	WorkerActiveJobs prometheus.Gauge
	WorkerQueueDepth prometheus.Gauge
}

// New creates and registers the metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csbot_queries_total",
				Help: "Total number of queries run through the pipeline, by outcome.",
			},
			[]string{"outcome"},
		),
		QueryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "csbot_query_duration_seconds",
				Help:    "End-to-end query pipeline latency in seconds.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
		),
		ConfidenceTierTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csbot_confidence_tier_total",
				Help: "Total number of queries routed to each confidence tier.",
			},
			[]string{"tier"},
		),
		RerankDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "csbot_rerank_duration_seconds",
				Help:    "Cross-encoder rerank call latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
		),
		RetrievalDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "csbot_retrieval_duration_seconds",
				Help:    "Parallel semantic+keyword retrieval latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
		),
		DocumentsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csbot_documents_ingested_total",
				Help: "Total number of documents processed by the ingestion orchestrator, by outcome.",
			},
			[]string{"outcome"},
		),
		IngestionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "csbot_ingestion_duration_seconds",
				Help:    "Document ingestion latency in seconds, from load to ready/error.",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
			},
		),
		ChunksIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "csbot_chunks_indexed_total",
				Help: "Total number of chunks embedded and indexed across all documents.",
			},
		),
		EscalationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "csbot_escalations_total",
				Help: "Total number of sessions escalated to a human agent.",
			},
		),
		EscalationWebhookFail: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "csbot_escalation_webhook_failures_total",
				Help: "Total number of escalation webhook dispatch failures.",
			},
		),
		WorkerActiveJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "csbot_worker_active_jobs",
				Help: "Number of ingestion jobs currently in flight on this worker.",
			},
		),
		WorkerQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "csbot_worker_queue_depth",
				Help: "Approximate depth of the ingestion job queue as last observed.",
			},
		),
	}

	reg.MustRegister(
		m.QueriesTotal, m.QueryDuration, m.ConfidenceTierTotal, m.RerankDuration, m.RetrievalDuration,
		m.DocumentsIngestedTotal, m.IngestionDuration, m.ChunksIndexedTotal,
		m.EscalationsTotal, m.EscalationWebhookFail,
		m.WorkerActiveJobs, m.WorkerQueueDepth,
	)
	return m
}

// ObserveQuery records one completed pipeline run.
func (m *Metrics) ObserveQuery(tier string, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	m.ConfidenceTierTotal.WithLabelValues(tier).Inc()
	m.QueryDuration.Observe(duration.Seconds())
}

// ObserveIngestion records one completed document ingestion.
func (m *Metrics) ObserveIngestion(outcome string, chunkCount int, duration time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsIngestedTotal.WithLabelValues(outcome).Inc()
	m.IngestionDuration.Observe(duration.Seconds())
	if chunkCount > 0 {
		m.ChunksIndexedTotal.Add(float64(chunkCount))
	}
}

// ObserveEscalation records an escalation and whether its webhook dispatch
// failed.
func (m *Metrics) ObserveEscalation(webhookFailed bool) {
	if m == nil {
		return
	}
	m.EscalationsTotal.Inc()
	if webhookFailed {
		m.EscalationWebhookFail.Inc()
	}
}

// ObserveRetrieval records the latency of one parallel semantic+keyword
// retrieval call (pipeline step 3).
func (m *Metrics) ObserveRetrieval(duration time.Duration) {
	if m == nil {
		return
	}
	m.RetrievalDuration.Observe(duration.Seconds())
}

// ObserveRerank records the latency of one reranker call (pipeline step 6).
func (m *Metrics) ObserveRerank(duration time.Duration) {
	if m == nil {
		return
	}
	m.RerankDuration.Observe(duration.Seconds())
}

// WorkerJobStarted increments the in-flight ingestion job gauge.
func (m *Metrics) WorkerJobStarted() {
	if m == nil {
		return
	}
	m.WorkerActiveJobs.Inc()
}

// WorkerJobFinished decrements the in-flight ingestion job gauge.
func (m *Metrics) WorkerJobFinished() {
	if m == nil {
		return
	}
	m.WorkerActiveJobs.Dec()
}

// SetWorkerQueueDepth records the last-observed depth of the ingestion job
// queue.
func (m *Metrics) SetWorkerQueueDepth(depth int64) {
	if m == nil {
		return
	}
	m.WorkerQueueDepth.Set(float64(depth))
}
