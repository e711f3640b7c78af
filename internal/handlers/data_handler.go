// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 8:49:12 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/interfaces"
	"github.com/ternarybob/msgvault/internal/models"
)

// DataHandler serves the query surface the UI reads from
type DataHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewDataHandler creates a new DataHandler instance
func NewDataHandler(storage interfaces.StorageManager, logger arbor.ILogger) *DataHandler {
	return &DataHandler{
		storage: storage,
		logger:  logger,
	}
}

type listingSummary struct {
	*models.Listing
	ConversationCount int        `json:"conversation_count"`
	TotalMessages     int        `json:"total_messages"`
	LastActivity      *time.Time `json:"last_activity"`
}

type counterpartySummary struct {
	*models.Counterparty
	ConversationCount int        `json:"conversation_count"`
	TotalMessages     int        `json:"total_messages"`
	LastActivity      *time.Time `json:"last_activity"`
}

type messageWithImages struct {
	*models.Message
	Images []*models.MessageImage `json:"images"`
}

type conversationDetail struct {
	*models.Conversation
	Listing      *models.Listing      `json:"listing,omitempty"`
	Counterparty *models.Counterparty `json:"counterparty,omitempty"`
	MessageCount int                  `json:"message_count"`
}

// GetStats handles GET /api/stats
func (h *DataHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	store, ok := h.tenantStore(w, r)
	if !ok {
		return
	}

	stats := models.StatsResult{}
	var err error
	if stats.Listings, err = store.Listings().Count(); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats.Counterparties, err = store.Counterparties().Count(); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats.Conversations, err = store.Conversations().Count(); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats.Messages, err = store.Messages().Count(); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats.Images, err = store.Images().Count(); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// GetListings handles GET /api/listings
func (h *DataHandler) GetListings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	store, ok := h.tenantStore(w, r)
	if !ok {
		return
	}

	listings, err := store.Listings().GetAll()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summaries := make([]listingSummary, 0, len(listings))
	for _, listing := range listings {
		convs, err := store.Conversations().GetByListing(listing.ID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		total, last := h.aggregateConversations(store, convs)
		summaries = append(summaries, listingSummary{
			Listing:           listing,
			ConversationCount: len(convs),
			TotalMessages:     total,
			LastActivity:      last,
		})
	}

	sortByActivity(summaries, func(s listingSummary) *time.Time { return s.LastActivity })
	WriteJSON(w, http.StatusOK, summaries)
}

// GetCounterparties handles GET /api/counterparties
func (h *DataHandler) GetCounterparties(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	store, ok := h.tenantStore(w, r)
	if !ok {
		return
	}

	cps, err := store.Counterparties().GetAll()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summaries := make([]counterpartySummary, 0, len(cps))
	for _, cp := range cps {
		convs, err := store.Conversations().GetByCounterparty(cp.UserID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		total, last := h.aggregateConversations(store, convs)
		summaries = append(summaries, counterpartySummary{
			Counterparty:      cp,
			ConversationCount: len(convs),
			TotalMessages:     total,
			LastActivity:      last,
		})
	}

	sortByActivity(summaries, func(s counterpartySummary) *time.Time { return s.LastActivity })
	WriteJSON(w, http.StatusOK, summaries)
}

// GetConversations handles GET /api/conversations with optional
// listing_id / counterparty_id filters
func (h *DataHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	store, ok := h.tenantStore(w, r)
	if !ok {
		return
	}

	var (
		convs []*models.Conversation
		err   error
	)
	switch {
	case r.URL.Query().Get("listing_id") != "":
		convs, err = store.Conversations().GetByListing(r.URL.Query().Get("listing_id"))
	case r.URL.Query().Get("counterparty_id") != "":
		convs, err = store.Conversations().GetByCounterparty(r.URL.Query().Get("counterparty_id"))
	default:
		convs, err = store.Conversations().GetAll()
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sort.Slice(convs, func(i, j int) bool { return convs[i].UpdatedAt.After(convs[j].UpdatedAt) })
	WriteJSON(w, http.StatusOK, convs)
}

// GetConversationDetail handles GET /api/conversations/{id}
func (h *DataHandler) GetConversationDetail(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	store, ok := h.tenantStore(w, r)
	if !ok {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "conversation ID is required")
		return
	}

	conv, err := store.Conversations().Get(id)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	detail := conversationDetail{Conversation: conv}
	if conv.ListingID != "" {
		detail.Listing, _ = store.Listings().Get(conv.ListingID)
	}
	if conv.CounterpartyID != "" {
		detail.Counterparty, _ = store.Counterparties().Get(conv.CounterpartyID)
	}
	detail.MessageCount, _ = store.Messages().CountByConversation(conv.ID)

	WriteJSON(w, http.StatusOK, detail)
}

// GetMessages handles GET /api/messages?conversation_id=
func (h *DataHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	store, ok := h.tenantStore(w, r)
	if !ok {
		return
	}

	convID := r.URL.Query().Get("conversation_id")
	if convID == "" {
		WriteError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	msgs, err := store.Messages().GetByConversation(convID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]messageWithImages, 0, len(msgs))
	for _, msg := range msgs {
		imgs, err := store.Images().GetByMessage(msg.ID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if imgs == nil {
			imgs = []*models.MessageImage{}
		}
		out = append(out, messageWithImages{Message: msg, Images: imgs})
	}

	WriteJSON(w, http.StatusOK, out)
}

func (h *DataHandler) tenantStore(w http.ResponseWriter, r *http.Request) (interfaces.TenantStore, bool) {
	tenant, ok := RequireTenant(w, r)
	if !ok {
		return nil, false
	}
	store, err := h.storage.Tenant(tenant)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return store, true
}

// aggregateConversations sums message counts and tracks the most recent
// update across the given conversations
func (h *DataHandler) aggregateConversations(store interfaces.TenantStore, convs []*models.Conversation) (int, *time.Time) {
	total := 0
	var last *time.Time
	for _, conv := range convs {
		if count, err := store.Messages().CountByConversation(conv.ID); err == nil {
			total += count
		}
		t := conv.UpdatedAt
		if last == nil || t.After(*last) {
			last = &t
		}
	}
	return total, last
}

func sortByActivity[T any](items []T, at func(T) *time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := at(items[i]), at(items[j])
		switch {
		case a != nil && b != nil:
			return a.After(*b)
		case a != nil:
			return true
		default:
			return false
		}
	})
}
