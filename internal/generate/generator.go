package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/stravadash/internal/config"
	"git.home.luguber.info/inful/stravadash/internal/dashboard"
	"git.home.luguber.info/inful/stravadash/internal/logfields"
	"git.home.luguber.info/inful/stravadash/internal/stats"
	"git.home.luguber.info/inful/stravadash/internal/strava"
)

// ErrArtifactMissing indicates the generator finished without producing the
// expected artifact. The run must fail before any publish step.
var ErrArtifactMissing = errors.New("dashboard artifact missing after generation")

// Result summarizes a completed generation.
type Result struct {
	ArtifactPath string
	Activities   int
}

// Generator fetches Strava data and renders the dashboard artifact.
type Generator struct {
	cfg    config.DashboardConfig
	client *strava.Client
	now    func() time.Time
}

// NewGenerator creates a Generator using the given Strava client.
func NewGenerator(cfg config.DashboardConfig, client *strava.Client) *Generator {
	return &Generator{
		cfg:    cfg,
		client: client,
		now:    time.Now,
	}
}

// WithClock overrides the time source (used in tests).
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Run performs a full generation: token refresh, activity fetch, aggregation,
// render, write. It verifies the artifact exists and is non-empty before
// returning, so a publish step never runs against a missing file.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	start := g.now()

	token, err := g.client.RefreshAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh access token: %w", err)
	}

	// Fetch a full year so every chart timeframe is covered.
	after := start.AddDate(-1, 0, 0)
	activities, err := g.client.ListActivitiesAfter(ctx, token, after)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	if len(activities) == 0 {
		slog.Warn("No activities fetched; rendering empty dashboard")
	}

	daily := stats.DailyElevation(activities, g.cfg.ActivityTypes)
	aggregates := stats.Aggregate(daily, start)

	notes, err := dashboard.RenderNotes(g.cfg.NotesFile)
	if err != nil {
		return nil, fmt.Errorf("render notes: %w", err)
	}

	var buf bytes.Buffer
	err = dashboard.Render(&buf, dashboard.Data{
		Title:         g.cfg.Title,
		ActivityTypes: g.cfg.ActivityTypes,
		GeneratedAt:   start,
		Aggregates:    aggregates,
		NotesHTML:     notes,
	})
	if err != nil {
		return nil, fmt.Errorf("render dashboard: %w", err)
	}

	if err := dashboard.Validate(bytes.NewReader(buf.Bytes())); err != nil {
		return nil, fmt.Errorf("validate dashboard: %w", err)
	}

	if err := os.WriteFile(g.cfg.OutputFile, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	// Post-write existence check: the publish stage depends on this file.
	info, err := os.Stat(g.cfg.OutputFile)
	if err != nil || info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, g.cfg.OutputFile)
	}

	slog.Info("Dashboard generated",
		logfields.Path(g.cfg.OutputFile),
		logfields.Count(len(activities)),
		slog.Int64("bytes", info.Size()))

	return &Result{ArtifactPath: g.cfg.OutputFile, Activities: len(activities)}, nil
}
