package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics records outbox drain activity for the audit worker.
type WorkerMetrics struct {
	batchDuration *prometheus.HistogramVec
	published     *prometheus.CounterVec
	failed        *prometheus.CounterVec
}

// NewWorkerMetrics registers the worker metrics on the provided registerer.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		return &WorkerMetrics{}
	}
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox drain batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published",
		Help: "Outbox events recorded and published.",
	}, []string{"worker"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_failed",
		Help: "Outbox events that failed processing.",
	}, []string{"worker"})
	reg.MustRegister(batchDuration, published, failed)
	return &WorkerMetrics{
		batchDuration: batchDuration,
		published:     published,
		failed:        failed,
	}
}

// ObserveBatch records the duration of one drain batch.
func (m *WorkerMetrics) ObserveBatch(worker string, duration time.Duration) {
	if m == nil || m.batchDuration == nil {
		return
	}
	m.batchDuration.WithLabelValues(normalizeLabel(worker)).Observe(duration.Seconds())
}

// IncPublished increments the published counter.
func (m *WorkerMetrics) IncPublished(worker string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(worker)).Inc()
}

// IncFailed increments the failure counter.
func (m *WorkerMetrics) IncFailed(worker string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(worker)).Inc()
}

func normalizeLabel(worker string) string {
	if worker == "" {
		return "unknown"
	}
	return worker
}
