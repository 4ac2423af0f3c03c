package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus "github.com/prometheus/client_model/go"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(reg)
}

func TestObserveQuery_RecordsOutcomeTierAndLatency(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveQuery("ANSWER", "answered", 250*time.Millisecond)

	counter, err := m.QueriesTotal.GetMetricWithLabelValues("answered")
	if err != nil {
		t.Fatal(err)
	}
	var metric io_prometheus.Metric
	counter.Write(&metric)
	if got := metric.GetCounter().GetValue(); got != 1 {
		t.Errorf("queries_total = %f, want 1", got)
	}

	tierCounter, err := m.ConfidenceTierTotal.GetMetricWithLabelValues("ANSWER")
	if err != nil {
		t.Fatal(err)
	}
	var tierMetric io_prometheus.Metric
	tierCounter.Write(&tierMetric)
	if got := tierMetric.GetCounter().GetValue(); got != 1 {
		t.Errorf("confidence_tier_total = %f, want 1", got)
	}

	var durMetric io_prometheus.Metric
	m.QueryDuration.(prometheus.Metric).Write(&durMetric)
	if got := durMetric.GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("query_duration sample count = %d, want 1", got)
	}
}

func TestObserveIngestion_RecordsOutcomeAndChunkCount(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveIngestion("ready", 12, 3*time.Second)

	counter, err := m.DocumentsIngestedTotal.GetMetricWithLabelValues("ready")
	if err != nil {
		t.Fatal(err)
	}
	var metric io_prometheus.Metric
	counter.Write(&metric)
	if got := metric.GetCounter().GetValue(); got != 1 {
		t.Errorf("documents_ingested_total = %f, want 1", got)
	}

	var chunksMetric io_prometheus.Metric
	m.ChunksIndexedTotal.(prometheus.Metric).Write(&chunksMetric)
	if got := chunksMetric.GetCounter().GetValue(); got != 12 {
		t.Errorf("chunks_indexed_total = %f, want 12", got)
	}
}

func TestObserveIngestion_ErrorOutcomeDoesNotAddChunks(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveIngestion("error", 0, time.Second)

	counter, err := m.DocumentsIngestedTotal.GetMetricWithLabelValues("error")
	if err != nil {
		t.Fatal(err)
	}
	var metric io_prometheus.Metric
	counter.Write(&metric)
	if got := metric.GetCounter().GetValue(); got != 1 {
		t.Errorf("documents_ingested_total(error) = %f, want 1", got)
	}

	var chunksMetric io_prometheus.Metric
	m.ChunksIndexedTotal.(prometheus.Metric).Write(&chunksMetric)
	if got := chunksMetric.GetCounter().GetValue(); got != 0 {
		t.Errorf("chunks_indexed_total = %f, want 0", got)
	}
}

func TestObserveEscalation_CountsWebhookFailuresSeparately(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveEscalation(false)
	m.ObserveEscalation(true)

	var totalMetric io_prometheus.Metric
	m.EscalationsTotal.(prometheus.Metric).Write(&totalMetric)
	if got := totalMetric.GetCounter().GetValue(); got != 2 {
		t.Errorf("escalations_total = %f, want 2", got)
	}

	var failMetric io_prometheus.Metric
	m.EscalationWebhookFail.(prometheus.Metric).Write(&failMetric)
	if got := failMetric.GetCounter().GetValue(); got != 1 {
		t.Errorf("escalation_webhook_failures_total = %f, want 1", got)
	}
}

func TestObserveRetrievalAndRerank_RecordLatency(t *testing.T) {
	m := newTestMetrics(t)

	m.ObserveRetrieval(40 * time.Millisecond)
	m.ObserveRerank(15 * time.Millisecond)

	var retrievalMetric io_prometheus.Metric
	m.RetrievalDuration.(prometheus.Metric).Write(&retrievalMetric)
	if got := retrievalMetric.GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("retrieval_duration sample count = %d, want 1", got)
	}

	var rerankMetric io_prometheus.Metric
	m.RerankDuration.(prometheus.Metric).Write(&rerankMetric)
	if got := rerankMetric.GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("rerank_duration sample count = %d, want 1", got)
	}
}

func TestWorkerGauges_TrackActiveJobsAndQueueDepth(t *testing.T) {
	m := newTestMetrics(t)

	m.WorkerJobStarted()
	m.WorkerJobStarted()
	m.WorkerJobFinished()
	m.SetWorkerQueueDepth(7)

	var activeMetric io_prometheus.Metric
	m.WorkerActiveJobs.(prometheus.Metric).Write(&activeMetric)
	if got := activeMetric.GetGauge().GetValue(); got != 1 {
		t.Errorf("worker_active_jobs = %f, want 1", got)
	}

	var depthMetric io_prometheus.Metric
	m.WorkerQueueDepth.(prometheus.Metric).Write(&depthMetric)
	if got := depthMetric.GetGauge().GetValue(); got != 7 {
		t.Errorf("worker_queue_depth = %f, want 7", got)
	}
}

func TestMetrics_NilReceiverMethodsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveQuery("ANSWER", "answered", time.Second)
	m.ObserveIngestion("ready", 5, time.Second)
	m.ObserveEscalation(true)
	m.ObserveRetrieval(time.Second)
	m.ObserveRerank(time.Second)
	m.WorkerJobStarted()
	m.WorkerJobFinished()
	m.SetWorkerQueueDepth(3)
}
