package models

import "time"

// RunStatus values reported by the sync endpoints
const (
	RunStatusIdle    = "idle"
	RunStatusRunning = "running"
	RunStatusStarted = "started"
)

// RunState is the response of the sync status and start endpoints
type RunState struct {
	Status   string `json:"status"`
	PID      int    `json:"pid,omitempty"`
	Elapsed  int64  `json:"elapsed_seconds,omitempty"`
	LastLine string `json:"last_line,omitempty"`
	Message  string `json:"message,omitempty"`
}

// RunResult aggregates one scraper run
type RunResult struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ConversationRef is one sidebar row the scraper discovered
type ConversationRef struct {
	Index    int
	Title    string
	UserName string
	UserID   string
}

// ScrapeJob is the temp config file the runner writes and the scraper
// binary loads (JSON so the file stays readable next to the run log)
type ScrapeJob struct {
	RunID          string    `json:"run_id"`
	Tenant         string    `json:"tenant"`
	Email          string    `json:"email"`
	Password       string    `json:"password"`
	APIEndpoint    string    `json:"api_endpoint"`
	TargetURL      string    `json:"target_url"`
	Site           string    `json:"site"`
	ListingURLBase string    `json:"listing_url_base"`
	MaxPages       int       `json:"max_pages"`
	MaxConvs       int       `json:"max_conversations"`
	Headless       bool      `json:"headless"`
	CreatedAt      time.Time `json:"created_at"`
}

// StatsResult is the per-entity count response
type StatsResult struct {
	Listings       int `json:"listings"`
	Counterparties int `json:"counterparties"`
	Conversations  int `json:"conversations"`
	Messages       int `json:"messages"`
	Images         int `json:"images"`
}
