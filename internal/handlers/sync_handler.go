package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/interfaces"
	"github.com/ternarybob/msgvault/internal/services/runner"
)

// SyncHandler exposes job control for the per-tenant scraper
type SyncHandler struct {
	runner interfaces.RunnerService
	logger arbor.ILogger
}

// NewSyncHandler creates a new SyncHandler instance
func NewSyncHandler(runner interfaces.RunnerService, logger arbor.ILogger) *SyncHandler {
	return &SyncHandler{
		runner: runner,
		logger: logger,
	}
}

// StartSync handles POST /api/sync/start. A live prior run answers 200
// with status "running" rather than an error; start is idempotent from
// the caller's point of view.
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	tenant, ok := RequireTenant(w, r)
	if !ok {
		return
	}

	state, err := h.runner.Start(tenant)
	if err != nil {
		if errors.Is(err, runner.ErrAlreadyRunning) {
			WriteJSON(w, http.StatusOK, state)
			return
		}
		h.logger.Error().Err(err).Str("tenant", tenant).Msg("Sync start failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, state)
}

// SyncStatus handles GET /api/sync/status
func (h *SyncHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	tenant, ok := RequireTenant(w, r)
	if !ok {
		return
	}

	state, err := h.runner.Status(tenant)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, state)
}
