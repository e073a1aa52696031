package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Strava environment variable names. Credentials are only ever read from the
// process environment, never from the config file.
const (
	EnvClientID     = "STRAVA_CLIENT_ID"
	EnvClientSecret = "STRAVA_CLIENT_SECRET"
	EnvRefreshToken = "STRAVA_REFRESH_TOKEN"
	EnvPublishToken = "PUBLISH_TOKEN"
)

// Config represents the application configuration.
type Config struct {
	Dashboard DashboardConfig `yaml:"dashboard"`
	Publish   PublishConfig   `yaml:"publish"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// DashboardConfig controls what the generator fetches and renders.
type DashboardConfig struct {
	Title         string   `yaml:"title"`
	ActivityTypes []string `yaml:"activity_types,omitempty"`
	OutputFile    string   `yaml:"output_file,omitempty"`
	NotesFile     string   `yaml:"notes_file,omitempty"` // Optional Markdown file rendered into the dashboard
}

// PublishConfig identifies the static-hosting repository the artifact is pushed to.
type PublishConfig struct {
	Host   string `yaml:"host,omitempty"` // Forge host, e.g. github.com
	Owner  string `yaml:"owner"`
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch,omitempty"`
	URL    string `yaml:"url,omitempty"` // Full clone URL; overrides host/owner/repo when set
	Token  string `yaml:"token,omitempty"`
	Author string `yaml:"author,omitempty"`
	Email  string `yaml:"email,omitempty"`
}

// DaemonConfig holds daemon-mode settings.
type DaemonConfig struct {
	Schedule string `yaml:"schedule,omitempty"` // Cron expression for scheduled runs
	Listen   string `yaml:"listen,omitempty"`   // Admin HTTP listen address
	DataDir  string `yaml:"data_dir,omitempty"` // Run-history database location
}

// NotifyConfig holds optional NATS event publishing settings.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Dashboard.Title == "" {
		c.Dashboard.Title = "Strava Elevation Dashboard"
	}
	if len(c.Dashboard.ActivityTypes) == 0 {
		c.Dashboard.ActivityTypes = []string{"Run", "Walk", "Hike"}
	}
	if c.Dashboard.OutputFile == "" {
		c.Dashboard.OutputFile = "strava_dashboard.html"
	}
	if c.Publish.Host == "" {
		c.Publish.Host = "github.com"
	}
	if c.Publish.Branch == "" {
		c.Publish.Branch = "main"
	}
	if c.Publish.Token == "" {
		c.Publish.Token = os.Getenv(EnvPublishToken)
	}
	if c.Publish.Author == "" {
		c.Publish.Author = "stravadash"
	}
	if c.Publish.Email == "" {
		c.Publish.Email = "stravadash@localhost"
	}
	if c.Daemon.Schedule == "" {
		c.Daemon.Schedule = "0 6 1 * *" // monthly, first day at 06:00
	}
	if c.Daemon.Listen == "" {
		c.Daemon.Listen = ":8475"
	}
	if c.Daemon.DataDir == "" {
		c.Daemon.DataDir = "./daemon-data"
	}
}

// CloneURL returns the clone URL for the target repository.
func (p PublishConfig) CloneURL() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("https://%s/%s/%s.git", p.Host, p.Owner, p.Repo)
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Dashboard: DashboardConfig{
			Title:         "Strava Elevation Dashboard",
			ActivityTypes: []string{"Run", "Walk", "Hike"},
			OutputFile:    "strava_dashboard.html",
		},
		Publish: PublishConfig{
			Host:   "github.com",
			Owner:  "your-user",
			Repo:   "your-user.github.io",
			Branch: "main",
			Token:  "${PUBLISH_TOKEN}",
		},
		Daemon: DaemonConfig{
			Schedule: "0 6 1 * *",
			Listen:   ":8475",
			DataDir:  "./daemon-data",
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
