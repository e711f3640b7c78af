// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 10:22:40 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/common"
	"github.com/ternarybob/msgvault/internal/interfaces"
	"github.com/ternarybob/msgvault/internal/models"
)

// StreamHandler tails the tenant's run log over SSE. The observer learns
// the job ended solely from the "complete" event fired when the recorded
// process dies; the runner itself never pushes a finish signal.
type StreamHandler struct {
	config *common.Config
	runner interfaces.RunnerService
	logger arbor.ILogger
}

// NewStreamHandler creates a new StreamHandler instance
func NewStreamHandler(config *common.Config, runner interfaces.RunnerService, logger arbor.ILogger) *StreamHandler {
	return &StreamHandler{
		config: config,
		runner: runner,
		logger: logger,
	}
}

type logEvent struct {
	Line      string `json:"line"`
	Timestamp string `json:"timestamp"`
}

// StreamLogs handles GET /api/sync/logs
func (h *StreamHandler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	tenant, ok := RequireTenant(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	h.sendEvent(w, flusher, "connected", map[string]string{"tenant": tenant})

	tailer := newLogTailer(h.runner.LogPath(tenant))
	if !h.waitForLog(r, w, flusher, tailer) {
		return
	}

	start := time.Now()
	lastActivity := time.Now()
	ticker := time.NewTicker(h.config.Stream.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		if time.Since(start) > h.config.Stream.MaxLifetime {
			h.sendEvent(w, flusher, "timeout", map[string]string{"reason": "max stream lifetime reached"})
			h.sendEvent(w, flusher, "close", nil)
			return
		}

		lines, err := tailer.readNewLines()
		if err != nil {
			h.sendEvent(w, flusher, "error", map[string]string{"error": err.Error()})
			h.sendEvent(w, flusher, "close", nil)
			return
		}
		for _, line := range lines {
			h.sendEvent(w, flusher, "log", logEvent{
				Line:      line,
				Timestamp: time.Now().Format(time.RFC3339),
			})
			lastActivity = time.Now()
		}

		state, err := h.runner.Status(tenant)
		if err == nil && state.Status != models.RunStatusRunning {
			// Drain whatever the dying process flushed last
			if lines, err := tailer.readNewLines(); err == nil {
				for _, line := range lines {
					h.sendEvent(w, flusher, "log", logEvent{Line: line, Timestamp: time.Now().Format(time.RFC3339)})
				}
			}
			h.sendEvent(w, flusher, "complete", nil)
			h.sendEvent(w, flusher, "close", nil)
			return
		}

		if time.Since(lastActivity) > h.config.Stream.HeartbeatInterval {
			h.sendEvent(w, flusher, "heartbeat", map[string]string{"time": time.Now().Format(time.RFC3339)})
			lastActivity = time.Now()
		}
	}
}

// waitForLog blocks until the run log exists, bounded by LogWaitTimeout.
// Returns false when the stream should end.
func (h *StreamHandler) waitForLog(r *http.Request, w http.ResponseWriter, flusher http.Flusher, tailer *logTailer) bool {
	if tailer.exists() {
		return true
	}
	h.sendEvent(w, flusher, "info", map[string]string{"message": "waiting for run log"})

	deadline := time.Now().Add(h.config.Stream.LogWaitTimeout)
	for !tailer.exists() {
		if time.Now().After(deadline) {
			h.sendEvent(w, flusher, "error", map[string]string{"error": "run log never appeared"})
			h.sendEvent(w, flusher, "close", nil)
			return false
		}
		select {
		case <-r.Context().Done():
			return false
		case <-time.After(h.config.Stream.PollInterval):
		}
	}
	return true
}

func (h *StreamHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) {
	if data == nil {
		data = map[string]string{}
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal SSE event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}
