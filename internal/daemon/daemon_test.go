package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stravadash/internal/metrics"
	"git.home.luguber.info/inful/stravadash/internal/pipeline"
	"git.home.luguber.info/inful/stravadash/internal/state"
)

type stubRunner struct {
	started chan struct{}
	release chan struct{}
	runs    atomic.Int32
}

func (s *stubRunner) Run(context.Context) (*pipeline.Report, error) {
	s.runs.Add(1)
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	return &pipeline.Report{RunID: "stub-run", Outcome: metrics.OutcomePublished}, nil
}

func newTestDaemon(t *testing.T, r runner) *Daemon {
	t.Helper()

	store, err := state.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	registry := prometheus.NewRegistry()
	return &Daemon{
		runner:   r,
		store:    store,
		registry: registry,
		recorder: metrics.NewPrometheusRecorder(registry),
	}
}

func TestDaemon_HandleHealth(t *testing.T) {
	d := newTestDaemon(t, &stubRunner{})

	rec := httptest.NewRecorder()
	d.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestDaemon_HandleListRuns_ReturnsHistory(t *testing.T) {
	d := newTestDaemon(t, &stubRunner{})
	require.NoError(t, d.store.RecordRun(context.Background(), state.RunRecord{
		ID:        "run-1",
		StartedAt: time.Date(2026, 8, 15, 6, 0, 0, 0, time.UTC),
		Outcome:   "published",
	}))

	rec := httptest.NewRecorder()
	d.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count int               `json:"count"`
		Runs  []state.RunRecord `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	require.Equal(t, "run-1", body.Runs[0].ID)
}

func TestDaemon_HandleListRuns_RejectsBadLimit(t *testing.T) {
	d := newTestDaemon(t, &stubRunner{})

	rec := httptest.NewRecorder()
	d.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?limit=nope", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDaemon_HandleTriggerRun_Accepted(t *testing.T) {
	stub := &stubRunner{}
	d := newTestDaemon(t, stub)

	rec := httptest.NewRecorder()
	d.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Eventually(t, func() bool {
		return stub.runs.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDaemon_HandleTriggerRun_ConflictWhileRunning(t *testing.T) {
	stub := &stubRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	d := newTestDaemon(t, stub)

	first := httptest.NewRecorder()
	d.routes().ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/run", nil))
	require.Equal(t, http.StatusAccepted, first.Code)
	<-stub.started

	second := httptest.NewRecorder()
	d.routes().ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/run", nil))
	require.Equal(t, http.StatusConflict, second.Code)

	close(stub.release)
	require.Eventually(t, func() bool {
		return !d.running.Load()
	}, time.Second, 10*time.Millisecond)
}

func TestDaemon_TriggerRun_RejectsOverlap(t *testing.T) {
	stub := &stubRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	d := newTestDaemon(t, stub)

	go func() {
		_, _ = d.TriggerRun(context.Background())
	}()
	<-stub.started

	_, err := d.TriggerRun(context.Background())
	require.ErrorIs(t, err, ErrRunInProgress)

	close(stub.release)
}

func TestDaemon_HandleMetrics_ExposesRegistry(t *testing.T) {
	d := newTestDaemon(t, &stubRunner{})
	d.recorder.IncRunOutcome(metrics.OutcomePublished)

	rec := httptest.NewRecorder()
	d.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "stravadash_run_outcomes_total")
}
