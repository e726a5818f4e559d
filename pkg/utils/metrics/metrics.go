package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus instruments of the pipeline.
type Metrics struct {
	TasksProcessed *prometheus.CounterVec
	TaskRetries    *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	PointsAwarded  prometheus.Counter
}

func New(namespace string) *Metrics {
	return &Metrics{
		TasksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Pipeline tasks by kind and outcome.",
		}, []string{"kind", "outcome"}),
		TaskRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_retries_total",
			Help:      "Task retries by kind.",
		}, []string{"kind"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Stage handler duration in seconds by kind.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		PointsAwarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Reward points applied to the ledger.",
		}),
	}
}

func (m *Metrics) ObserveTask(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.TasksProcessed.WithLabelValues(kind, outcome).Inc()
	m.StageDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) ObserveRetry(kind string) {
	if m == nil {
		return
	}
	m.TaskRetries.WithLabelValues(kind).Inc()
}

func (m *Metrics) AddPoints(points int) {
	if m == nil {
		return
	}
	m.PointsAwarded.Add(float64(points))
}

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
