package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/stravadash/internal/config"
)

// Client publishes run-outcome events over NATS JetStream. It is optional:
// the pipeline only constructs one when a NATS URL is configured.
type Client struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewClient connects to NATS and prepares a JetStream context.
func NewClient(cfg config.NotifyConfig) (*Client, error) {
	if cfg.NATSURL == "" {
		return nil, fmt.Errorf("notify is not configured")
	}

	conn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	slog.Info("NATS client initialized for run events",
		"url", cfg.NATSURL,
		"subject", cfg.Subject)

	return &Client{conn: conn, js: js, subject: cfg.Subject}, nil
}

// PublishRunEvent publishes a run-outcome event.
func (c *Client) PublishRunEvent(event *RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := c.js.Publish(ctx, c.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("Published run event",
		"run_id", event.RunID,
		"outcome", event.Outcome)

	return nil
}

// Close closes the NATS connection.
func (c *Client) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}
