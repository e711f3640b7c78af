package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/interfaces"
	"github.com/ternarybob/msgvault/internal/models"
)

// ProfileHandler owns the curated counterparty fields. This is the only
// write path for them; ingestion never touches these fields.
type ProfileHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewProfileHandler creates a new ProfileHandler instance
func NewProfileHandler(storage interfaces.StorageManager, logger arbor.ILogger) *ProfileHandler {
	return &ProfileHandler{
		storage: storage,
		logger:  logger,
	}
}

type fieldUpdateRequest struct {
	UserID string `json:"user_id"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

type profileUpdateRequest struct {
	UserID  string            `json:"user_id"`
	Profile map[string]string `json:"profile"`
}

// UpdateField handles POST /api/counterparties/field
func (h *ProfileHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	tenant, ok := RequireTenant(w, r)
	if !ok {
		return
	}

	var req fieldUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if !models.CuratedFields[req.Field] {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("field %q is not editable", req.Field))
		return
	}

	if err := h.apply(tenant, req.UserID, map[string]string{req.Field: req.Value}); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "updated", "user_id": req.UserID})
}

// UpdateProfile handles POST /api/counterparties/profile. Unknown keys
// reject the whole request so a typo never silently drops an edit.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	tenant, ok := RequireTenant(w, r)
	if !ok {
		return
	}

	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	for field := range req.Profile {
		if !models.CuratedFields[field] {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("field %q is not editable", field))
			return
		}
	}

	if err := h.apply(tenant, req.UserID, req.Profile); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "updated", "user_id": req.UserID})
}

func (h *ProfileHandler) apply(tenant, userID string, fields map[string]string) error {
	store, err := h.storage.Tenant(tenant)
	if err != nil {
		return err
	}
	cp, err := store.Counterparties().Get(userID)
	if err != nil {
		return err
	}

	for field, value := range fields {
		switch field {
		case "name":
			cp.Name = value
		case "phone":
			cp.Phone = value
		case "facebook":
			cp.Facebook = value
		case "whatsapp":
			cp.Whatsapp = value
		case "commentaire":
			cp.Commentaire = value
		case "photo_url":
			cp.PhotoURL = value
		}
	}

	if err := store.Counterparties().Update(cp); err != nil {
		return err
	}
	h.logger.Info().Str("tenant", tenant).Str("user_id", userID).Int("fields", len(fields)).Msg("Profile updated")
	return nil
}
