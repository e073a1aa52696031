package state

import (
	"context"
	"time"
)

// RunRecord is one persisted pipeline run.
type RunRecord struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Activities int           `json:"activities"`
	Outcome    string        `json:"outcome"` // published|unchanged|failed
	CommitHash string        `json:"commit_hash,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Store persists run history.
type Store interface {
	RecordRun(ctx context.Context, run RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	Close() error
}
