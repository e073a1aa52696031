package daemon

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/stravadash/internal/logfields"
	"git.home.luguber.info/inful/stravadash/internal/metrics"
	"git.home.luguber.info/inful/stravadash/internal/version"
)

const defaultRunsLimit = 50

// routes builds the admin HTTP surface.
func (d *Daemon) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", d.handleHealth)
	mux.HandleFunc("GET /runs", d.handleListRuns)
	mux.HandleFunc("POST /run", d.handleTriggerRun)
	mux.Handle("GET /metrics", metrics.HTTPHandler(d.registry))
	return mux
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (d *Daemon) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := d.store.ListRuns(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list runs", logfields.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(runs),
		"runs":  runs,
	})
}

func (d *Daemon) handleTriggerRun(w http.ResponseWriter, _ *http.Request) {
	if err := d.TriggerRunAsync(); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "run started"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode JSON response", logfields.Error(err))
	}
}
