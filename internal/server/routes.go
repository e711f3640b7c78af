// -----------------------------------------------------------------------
// Last Modified: Monday, 31st August 2026 11:05:27 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws/logs", s.app.WSHandler.StreamLogs)

	// API routes - Ingestion (consumed by the scraper process)
	mux.HandleFunc("/api/conversations/save", s.app.IngestHandler.SaveConversation) // POST

	// API routes - Data
	mux.HandleFunc("/api/stats", s.app.DataHandler.GetStats)
	mux.HandleFunc("/api/listings", s.app.DataHandler.GetListings)
	mux.HandleFunc("/api/counterparties", s.app.DataHandler.GetCounterparties)
	mux.HandleFunc("/api/conversations", s.app.DataHandler.GetConversations)
	mux.HandleFunc("/api/conversations/", s.handleConversationRoutes) // GET /{id}
	mux.HandleFunc("/api/messages", s.app.DataHandler.GetMessages)

	// API routes - Counterparty profile (curated fields only)
	mux.HandleFunc("/api/counterparties/field", s.app.ProfileHandler.UpdateField)
	mux.HandleFunc("/api/counterparties/profile", s.app.ProfileHandler.UpdateProfile)

	// API routes - Sync job control
	mux.HandleFunc("/api/sync/start", s.app.SyncHandler.StartSync)
	mux.HandleFunc("/api/sync/status", s.app.SyncHandler.SyncStatus)
	mux.HandleFunc("/api/sync/logs", s.app.StreamHandler.StreamLogs) // SSE

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.GetVersion)
	mux.HandleFunc("/api/health", s.app.APIHandler.GetHealth)

	return mux
}

// handleConversationRoutes dispatches /api/conversations/{id} while
// keeping /api/conversations/save on the ingest handler
func (s *Server) handleConversationRoutes(w http.ResponseWriter, r *http.Request) {
	suffix := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	if suffix == "save" {
		s.app.IngestHandler.SaveConversation(w, r)
		return
	}
	s.app.DataHandler.GetConversationDetail(w, r)
}
