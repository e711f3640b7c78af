package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/interfaces"
	"github.com/ternarybob/msgvault/internal/models"
)

// IngestHandler receives scraped conversation payloads
type IngestHandler struct {
	ingest interfaces.IngestService
	logger arbor.ILogger
}

// NewIngestHandler creates a new IngestHandler instance
func NewIngestHandler(ingest interfaces.IngestService, logger arbor.ILogger) *IngestHandler {
	return &IngestHandler{
		ingest: ingest,
		logger: logger,
	}
}

// SaveConversation handles POST /api/conversations/save
func (h *IngestHandler) SaveConversation(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	tenant, ok := RequireTenant(w, r)
	if !ok {
		return
	}

	var payload models.ConversationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
		return
	}

	result, err := h.ingest.Save(r.Context(), tenant, &payload)
	if err != nil {
		h.logger.Warn().Err(err).Str("tenant", tenant).Msg("Ingest rejected")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
