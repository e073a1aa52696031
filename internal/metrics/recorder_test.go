package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_CountsOutcomes(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.IncRunOutcome(OutcomePublished)
	rec.IncRunOutcome(OutcomePublished)
	rec.IncRunOutcome(OutcomeUnchanged)
	rec.AddActivitiesFetched(42)
	rec.ObserveRunDuration(2 * time.Second)
	rec.ObserveStageDuration("generate", time.Second)

	published := testutil.ToFloat64(rec.runOutcome.WithLabelValues("published"))
	require.InDelta(t, 2, published, 0.001)

	activities := testutil.ToFloat64(rec.activities)
	require.InDelta(t, 42, activities, 0.001)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *PrometheusRecorder
	rec.IncRunOutcome(OutcomeFailed)
	rec.ObserveRunDuration(time.Second)
	rec.ObserveStageDuration("publish", time.Second)
	rec.AddActivitiesFetched(1)
}

func TestNoopRecorderImplementsInterface(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	var _ Recorder = &PrometheusRecorder{}
}
