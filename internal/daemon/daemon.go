package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/stravadash/internal/config"
	"git.home.luguber.info/inful/stravadash/internal/generate"
	"git.home.luguber.info/inful/stravadash/internal/logfields"
	"git.home.luguber.info/inful/stravadash/internal/metrics"
	"git.home.luguber.info/inful/stravadash/internal/notify"
	"git.home.luguber.info/inful/stravadash/internal/pipeline"
	"git.home.luguber.info/inful/stravadash/internal/publish"
	"git.home.luguber.info/inful/stravadash/internal/state"
	"git.home.luguber.info/inful/stravadash/internal/strava"
)

// ErrRunInProgress is returned when a run is triggered while one is active.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// runner executes one pipeline run. Satisfied by pipeline.Pipeline.
type runner interface {
	Run(ctx context.Context) (*pipeline.Report, error)
}

// Daemon keeps the pipeline resident: it runs it on a cron schedule, exposes
// an admin HTTP surface for manual triggers and run history, and reloads the
// pipeline when the configuration file changes.
type Daemon struct {
	mu         sync.RWMutex
	cfg        *config.Config
	configPath string
	runner     runner

	store    state.Store
	registry *prometheus.Registry
	recorder *metrics.PrometheusRecorder
	notifier *notify.Client

	scheduler  *Scheduler
	watcher    *ConfigWatcher
	httpServer *http.Server

	// running guards against overlapping runs. A trigger that arrives while
	// a run is active is rejected, not queued.
	running atomic.Bool
}

// New assembles a Daemon from the loaded configuration.
func New(configPath string, cfg *config.Config) (*Daemon, error) {
	if err := cfg.ValidateDaemon(); err != nil {
		return nil, err
	}
	if err := cfg.ValidatePublish(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Daemon.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	store, err := state.NewSQLiteStore(filepath.Join(cfg.Daemon.DataDir, "runs.db"))
	if err != nil {
		return nil, fmt.Errorf("open run-history store: %w", err)
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	var notifier *notify.Client
	if cfg.Notify.NATSURL != "" {
		notifier, err = notify.NewClient(cfg.Notify)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connect notifier: %w", err)
		}
	}

	d := &Daemon{
		cfg:        cfg,
		configPath: configPath,
		store:      store,
		registry:   registry,
		recorder:   recorder,
		notifier:   notifier,
	}

	d.runner, err = d.buildPipeline(cfg)
	if err != nil {
		_ = d.closeResources()
		return nil, err
	}

	d.scheduler, err = NewScheduler()
	if err != nil {
		_ = d.closeResources()
		return nil, err
	}

	return d, nil
}

// buildPipeline wires a pipeline from the given configuration. Credentials
// come from the environment only.
func (d *Daemon) buildPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	creds, err := strava.CredentialsFromEnv()
	if err != nil {
		return nil, err
	}
	client := strava.NewClient(creds)

	opts := []pipeline.Option{
		pipeline.WithMetrics(d.recorder),
		pipeline.WithStore(d.store),
	}
	if d.notifier != nil {
		opts = append(opts, pipeline.WithNotifier(d.notifier))
	}

	return pipeline.New(
		generate.NewGenerator(cfg.Dashboard, client),
		publish.NewPublisher(cfg.Publish),
		opts...,
	), nil
}

// Start brings up the scheduler, config watcher and admin HTTP server. It
// returns once everything is running; Stop shuts it all down.
func (d *Daemon) Start(ctx context.Context) error {
	schedule := d.GetConfig().Daemon.Schedule
	jobID, err := d.scheduler.ScheduleCron(schedule, func() {
		if _, err := d.TriggerRun(ctx); err != nil {
			slog.Error("Scheduled run failed", logfields.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule pipeline run: %w", err)
	}
	slog.Info("Scheduled pipeline run", slog.String("job_id", jobID), slog.String("schedule", schedule))
	d.scheduler.Start(ctx)

	d.watcher, err = NewConfigWatcher(d.configPath, d)
	if err != nil {
		return err
	}
	if err := d.watcher.Start(ctx); err != nil {
		return err
	}

	d.httpServer = &http.Server{
		Addr:              d.GetConfig().Daemon.Listen,
		Handler:           d.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Admin HTTP server listening", slog.String("addr", d.httpServer.Addr))
		if err := d.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Admin HTTP server failed", logfields.Error(err))
		}
	}()

	return nil
}

// Stop shuts down all daemon components. Safe to call after a partial Start.
func (d *Daemon) Stop(ctx context.Context) error {
	var errs []error

	if d.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := d.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}
	if d.watcher != nil {
		if err := d.watcher.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	if err := d.closeResources(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (d *Daemon) closeResources() error {
	var errs []error
	if d.notifier != nil {
		if err := d.notifier.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TriggerRun executes one pipeline run unless one is already active.
func (d *Daemon) TriggerRun(ctx context.Context) (*pipeline.Report, error) {
	if !d.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer d.running.Store(false)

	d.mu.RLock()
	r := d.runner
	d.mu.RUnlock()

	return r.Run(ctx)
}

// TriggerRunAsync starts a pipeline run in the background. It fails fast
// with ErrRunInProgress instead of queueing.
func (d *Daemon) TriggerRunAsync() error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	go func() {
		defer d.running.Store(false)

		d.mu.RLock()
		r := d.runner
		d.mu.RUnlock()

		if _, err := r.Run(context.Background()); err != nil {
			slog.Error("Triggered run failed", logfields.Error(err))
		}
	}()
	return nil
}

// GetConfig returns the current configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// ReloadConfig rebuilds the pipeline from a newly loaded configuration.
// Store, metrics and notifier are kept; only dashboard and publish settings
// take effect without a restart.
func (d *Daemon) ReloadConfig(cfg *config.Config) error {
	p, err := d.buildPipeline(cfg)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.cfg = cfg
	d.runner = p
	d.mu.Unlock()

	return nil
}
