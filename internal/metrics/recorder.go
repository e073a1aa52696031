package metrics

import "time"

// OutcomeLabel enumerates pipeline run outcomes for counters.
type OutcomeLabel string

const (
	OutcomePublished OutcomeLabel = "published"
	OutcomeUnchanged OutcomeLabel = "unchanged"
	OutcomeFailed    OutcomeLabel = "failed"
)

// Recorder defines observability hooks for pipeline and stage metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome OutcomeLabel)
	AddActivitiesFetched(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncRunOutcome(OutcomeLabel)                 {}
func (NoopRecorder) AddActivitiesFetched(int)                   {}
