package metrics_test

import (
	"testing"
	"time"

	"github.com/Heterod0x/oto/pkg/utils/metrics"
	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := metrics.New("oto_test")

	m.ObserveTask("analyze_conversation", "completed", 1500*time.Millisecond)
	m.ObserveTask("analyze_conversation", "completed", 300*time.Millisecond)
	m.ObserveRetry("evaluate_audio")
	m.AddPoints(14)

	gt.V(t, testutil.ToFloat64(m.TasksProcessed.WithLabelValues("analyze_conversation", "completed"))).Equal(2.0)
	gt.V(t, testutil.ToFloat64(m.TaskRetries.WithLabelValues("evaluate_audio"))).Equal(1.0)
	gt.V(t, testutil.ToFloat64(m.PointsAwarded)).Equal(14.0)

	gt.V(t, metrics.Handler()).NotNil()
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *metrics.Metrics

	m.ObserveTask("kind", "completed", time.Second)
	m.ObserveRetry("kind")
	m.AddPoints(3)
}
