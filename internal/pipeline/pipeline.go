package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/stravadash/internal/generate"
	"git.home.luguber.info/inful/stravadash/internal/logfields"
	"git.home.luguber.info/inful/stravadash/internal/metrics"
	"git.home.luguber.info/inful/stravadash/internal/notify"
	"git.home.luguber.info/inful/stravadash/internal/publish"
	"git.home.luguber.info/inful/stravadash/internal/state"
)

const (
	stageGenerate = "generate"
	stagePublish  = "publish"
)

// Notifier publishes run-outcome events. Satisfied by notify.Client.
type Notifier interface {
	PublishRunEvent(event *notify.RunEvent) error
}

// Report summarizes one pipeline run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	Duration   time.Duration
	Activities int
	Outcome    metrics.OutcomeLabel
	CommitHash string
}

// Pipeline executes one full run: generate the artifact, then publish it.
// Control flow is strictly sequential with a single conditional branch
// (change detection inside the publisher).
type Pipeline struct {
	generator *generate.Generator
	publisher *publish.Publisher
	metrics   metrics.Recorder
	store     state.Store
	notifier  Notifier
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics injects a metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = rec }
}

// WithStore injects a run-history store.
func WithStore(store state.Store) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithNotifier injects a run-event notifier.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. Store and notifier are optional; metrics defaults
// to a no-op recorder.
func New(generator *generate.Generator, publisher *publish.Publisher, opts ...Option) *Pipeline {
	p := &Pipeline{
		generator: generator,
		publisher: publisher,
		metrics:   metrics.NoopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes a single pipeline run. The run fails on the first stage error;
// a failed run is still recorded and notified before the error is returned.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: p.now(),
	}

	slog.Info("Starting pipeline run", logfields.RunID(report.RunID))

	err := p.run(ctx, report)
	report.Duration = p.now().Sub(report.StartedAt)

	p.metrics.ObserveRunDuration(report.Duration)
	p.metrics.IncRunOutcome(report.Outcome)
	p.record(ctx, report, err)

	if err != nil {
		slog.Error("Pipeline run failed",
			logfields.RunID(report.RunID),
			logfields.DurationMS(float64(report.Duration.Milliseconds())),
			logfields.Error(err))
		return report, err
	}

	slog.Info("Pipeline run completed",
		logfields.RunID(report.RunID),
		logfields.Outcome(string(report.Outcome)),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, report *Report) error {
	genStart := p.now()
	genResult, err := p.generator.Run(ctx)
	p.metrics.ObserveStageDuration(stageGenerate, p.now().Sub(genStart))
	if err != nil {
		report.Outcome = metrics.OutcomeFailed
		return fmt.Errorf("generate stage: %w", err)
	}
	report.Activities = genResult.Activities
	p.metrics.AddActivitiesFetched(genResult.Activities)

	pubStart := p.now()
	pubResult, err := p.publisher.Publish(ctx, genResult.ArtifactPath)
	p.metrics.ObserveStageDuration(stagePublish, p.now().Sub(pubStart))
	if err != nil {
		report.Outcome = metrics.OutcomeFailed
		return fmt.Errorf("publish stage: %w", err)
	}

	report.CommitHash = pubResult.CommitHash
	switch pubResult.Outcome {
	case publish.OutcomePublished:
		report.Outcome = metrics.OutcomePublished
	case publish.OutcomeUnchanged:
		report.Outcome = metrics.OutcomeUnchanged
	}
	return nil
}

// record persists and broadcasts the run result. Failures here are logged,
// not fatal: observability must not fail an otherwise successful run.
func (p *Pipeline) record(ctx context.Context, report *Report, runErr error) {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}

	if p.store != nil {
		err := p.store.RecordRun(ctx, state.RunRecord{
			ID:         report.RunID,
			StartedAt:  report.StartedAt,
			Duration:   report.Duration,
			Activities: report.Activities,
			Outcome:    string(report.Outcome),
			CommitHash: report.CommitHash,
			Error:      errText,
		})
		if err != nil {
			slog.Warn("Failed to record run", logfields.RunID(report.RunID), logfields.Error(err))
		}
	}

	if p.notifier != nil {
		err := p.notifier.PublishRunEvent(&notify.RunEvent{
			RunID:      report.RunID,
			Outcome:    string(report.Outcome),
			CommitHash: report.CommitHash,
			Activities: report.Activities,
			Error:      errText,
		})
		if err != nil {
			slog.Warn("Failed to publish run event", logfields.RunID(report.RunID), logfields.Error(err))
		}
	}
}
