package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/stravadash/internal/config"
	"git.home.luguber.info/inful/stravadash/internal/daemon"
	"git.home.luguber.info/inful/stravadash/internal/generate"
	"git.home.luguber.info/inful/stravadash/internal/pipeline"
	"git.home.luguber.info/inful/stravadash/internal/publish"
	"git.home.luguber.info/inful/stravadash/internal/strava"
	"git.home.luguber.info/inful/stravadash/internal/version"
)

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print version and exit"`

	Generate struct{} `cmd:"" help:"Fetch Strava data and render the dashboard artifact"`

	Publish struct {
		Artifact string `short:"a" help:"Path to a previously generated artifact" default:"strava_dashboard.html"`
	} `cmd:"" help:"Push an existing dashboard artifact to the target repository"`

	Run struct{} `cmd:"" help:"Run the full pipeline: generate, then publish"`

	Daemon struct{} `cmd:"" help:"Stay resident: run the pipeline on a schedule with an admin HTTP surface"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	ctx := kong.Parse(&CLI, kong.Vars{"version": version.Version})

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch ctx.Command() {
	case "generate":
		cfg := mustLoadConfig()
		if err := runGenerate(cfg); err != nil {
			slog.Error("Generate failed", "error", err)
			os.Exit(1)
		}
	case "publish":
		cfg := mustLoadConfig()
		if err := runPublish(cfg, CLI.Publish.Artifact); err != nil {
			slog.Error("Publish failed", "error", err)
			os.Exit(1)
		}
	case "run":
		cfg := mustLoadConfig()
		if err := runPipeline(cfg); err != nil {
			slog.Error("Run failed", "error", err)
			os.Exit(1)
		}
	case "daemon":
		cfg := mustLoadConfig()
		if err := runDaemon(cfg); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := runInit(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

func newGenerator(cfg *config.Config) (*generate.Generator, error) {
	creds, err := strava.CredentialsFromEnv()
	if err != nil {
		return nil, err
	}
	return generate.NewGenerator(cfg.Dashboard, strava.NewClient(creds)), nil
}

func runGenerate(cfg *config.Config) error {
	generator, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	result, err := generator.Run(context.Background())
	if err != nil {
		return err
	}

	slog.Info("Generate completed",
		"artifact", result.ArtifactPath,
		"activities", result.Activities)
	return nil
}

func runPublish(cfg *config.Config, artifactPath string) error {
	if err := cfg.ValidatePublish(); err != nil {
		return err
	}
	if _, err := os.Stat(artifactPath); err != nil {
		return fmt.Errorf("artifact not found: %s", artifactPath)
	}

	result, err := publish.NewPublisher(cfg.Publish).Publish(context.Background(), artifactPath)
	if err != nil {
		return err
	}

	slog.Info("Publish completed",
		"outcome", string(result.Outcome),
		"commit", result.CommitHash)
	return nil
}

func runPipeline(cfg *config.Config) error {
	if err := cfg.ValidatePublish(); err != nil {
		return err
	}
	generator, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	report, err := pipeline.New(generator, publish.NewPublisher(cfg.Publish)).Run(context.Background())
	if err != nil {
		return err
	}

	slog.Info("Pipeline completed",
		"run_id", report.RunID,
		"outcome", string(report.Outcome),
		"activities", report.Activities)
	return nil
}

func runDaemon(cfg *config.Config) error {
	slog.Info("Starting daemon mode", "data_dir", cfg.Daemon.DataDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(CLI.Config, cfg)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()

	slog.Info("Daemon started, waiting for shutdown signal...")

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("daemon error: %w", err)
		}
		<-ctx.Done()
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping daemon...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := d.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	slog.Info("Daemon stopped successfully")
	return nil
}

func runInit(configPath string, force bool) error {
	slog.Info("Initializing configuration", "path", configPath, "force", force)
	return config.Init(configPath, force)
}
