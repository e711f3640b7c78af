package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/msgvault/internal/common"
	"github.com/ternarybob/msgvault/internal/interfaces"
	"github.com/ternarybob/msgvault/internal/models"
)

// WSHandler streams run log events over WebSocket for clients whose
// proxies mangle SSE. Event vocabulary matches the SSE endpoint.
type WSHandler struct {
	config   *common.Config
	runner   interfaces.RunnerService
	logger   arbor.ILogger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler instance
func NewWSHandler(config *common.Config, runner interfaces.RunnerService, logger arbor.ILogger) *WSHandler {
	return &WSHandler{
		config: config,
		runner: runner,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type wsEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// StreamLogs handles GET /ws/logs
func (h *WSHandler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	tenant, ok := RequireTenant(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// Discard client frames but notice the close handshake
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Pace writes so a chatty run cannot flood slow clients
	limiter := rate.NewLimiter(rate.Every(50*time.Millisecond), 10)

	send := func(event string, data interface{}) bool {
		if err := limiter.Wait(r.Context()); err != nil {
			return false
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(wsEvent{Event: event, Data: data}); err != nil {
			return false
		}
		return true
	}

	if !send("connected", map[string]string{"tenant": tenant}) {
		return
	}

	tailer := newLogTailer(h.runner.LogPath(tenant))
	if !tailer.exists() {
		send("info", map[string]string{"message": "waiting for run log"})
		deadline := time.Now().Add(h.config.Stream.LogWaitTimeout)
		for !tailer.exists() {
			if time.Now().After(deadline) {
				send("error", map[string]string{"error": "run log never appeared"})
				send("close", nil)
				return
			}
			select {
			case <-r.Context().Done():
				return
			case <-time.After(h.config.Stream.PollInterval):
			}
		}
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
			send("timeout", map[string]string{"reason": "max stream lifetime reached"})
			send("close", nil)
			return
		}

		lines, err := tailer.readNewLines()
		if err != nil {
			send("error", map[string]string{"error": err.Error()})
			send("close", nil)
			return
		}
		for _, line := range lines {
			if !send("log", logEvent{Line: line, Timestamp: time.Now().Format(time.RFC3339)}) {
				return
			}
			lastActivity = time.Now()
		}

		state, err := h.runner.Status(tenant)
		if err == nil && state.Status != models.RunStatusRunning {
			if lines, err := tailer.readNewLines(); err == nil {
				for _, line := range lines {
					send("log", logEvent{Line: line, Timestamp: time.Now().Format(time.RFC3339)})
				}
			}
			send("complete", nil)
			send("close", nil)
			return
		}

		if time.Since(lastActivity) > h.config.Stream.HeartbeatInterval {
			if !send("heartbeat", map[string]string{"time": time.Now().Format(time.RFC3339)}) {
				return
			}
			lastActivity = time.Now()
		}
	}
}
