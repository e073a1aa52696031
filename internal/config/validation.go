package config

import (
	"errors"
	"fmt"
)

// ValidatePublish checks that the publisher has a usable target repository.
func (c *Config) ValidatePublish() error {
	if c.Publish.URL == "" {
		if c.Publish.Owner == "" || c.Publish.Repo == "" {
			return errors.New("publish target requires owner and repo (or a full url)")
		}
	}
	if c.Publish.Branch == "" {
		return errors.New("publish target requires a branch")
	}
	return nil
}

// ValidateDaemon checks daemon-mode settings.
func (c *Config) ValidateDaemon() error {
	if c.Daemon.Schedule == "" {
		return errors.New("daemon requires a cron schedule")
	}
	if c.Daemon.Listen == "" {
		return errors.New("daemon requires a listen address")
	}
	if c.Notify.NATSURL != "" && c.Notify.Subject == "" {
		return fmt.Errorf("notify subject is required when nats_url is set")
	}
	return nil
}
