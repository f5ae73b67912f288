// Package metrics exposes Prometheus collectors for the persistence service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks queue admission, worker throughput and index size.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	TasksSubmitted *prometheus.CounterVec
	TasksRejected  *prometheus.CounterVec
	TasksProcessed *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	TasksAbandoned prometheus.Counter
	QueueDepth     prometheus.Gauge
	IndexSize      prometheus.Gauge
	DirectReads    *prometheus.CounterVec
}

// New registers all collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		TasksSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "entitystore_tasks_submitted_total",
			Help: "Tasks accepted into the queue, by kind",
		}, []string{"kind"}),
		TasksRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "entitystore_tasks_rejected_total",
			Help: "Submissions refused because the queue was full or the service stopped",
		}, []string{"kind"}),
		TasksProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "entitystore_tasks_processed_total",
			Help: "Tasks completed by the worker, by kind and outcome",
		}, []string{"kind", "status"}),
		TaskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "entitystore_task_duration_seconds",
			Help:    "Time from dequeue to completion of a task",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),
		TasksAbandoned: f.NewCounter(prometheus.CounterOpts{
			Name: "entitystore_tasks_abandoned_total",
			Help: "Queued tasks dropped at shutdown without being processed",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "entitystore_queue_depth",
			Help: "Tasks currently waiting in the queue",
		}),
		IndexSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "entitystore_index_entries",
			Help: "Entity ids currently tracked by the storage index",
		}),
		DirectReads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "entitystore_direct_reads_total",
			Help: "Synchronous loads and reads, by outcome",
		}, []string{"status"}),
	}
}

// Submitted records an accepted submission.
func (m *Metrics) Submitted(kind string) {
	if m == nil {
		return
	}
	m.TasksSubmitted.WithLabelValues(kind).Inc()
}

// Rejected records a refused submission.
func (m *Metrics) Rejected(kind string) {
	if m == nil {
		return
	}
	m.TasksRejected.WithLabelValues(kind).Inc()
}

// ObserveTask records a finished task. Call with time.Now() taken at dequeue.
func (m *Metrics) ObserveTask(kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.TasksProcessed.WithLabelValues(kind, status).Inc()
	m.TaskDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// Abandoned records tasks left in the queue at shutdown.
func (m *Metrics) Abandoned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TasksAbandoned.Add(float64(n))
}

// SetQueueDepth publishes the current queue length.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// SetIndexSize publishes the number of indexed ids.
func (m *Metrics) SetIndexSize(n int) {
	if m == nil {
		return
	}
	m.IndexSize.Set(float64(n))
}

// DirectRead records the outcome of a synchronous load or read.
func (m *Metrics) DirectRead(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.DirectReads.WithLabelValues(status).Inc()
}
