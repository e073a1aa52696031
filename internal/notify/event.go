package notify

import "time"

// RunEvent is published after each pipeline run completes.
type RunEvent struct {
	RunID      string    `json:"run_id"`
	Outcome    string    `json:"outcome"` // published|unchanged|failed
	CommitHash string    `json:"commit_hash,omitempty"`
	Activities int       `json:"activities"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
