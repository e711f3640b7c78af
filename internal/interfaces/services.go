package interfaces

import (
	"context"

	"github.com/ternarybob/msgvault/internal/models"
)

// IngestService merges one conversation payload into tenant storage
type IngestService interface {
	Save(ctx context.Context, tenant string, payload *models.ConversationPayload) (*models.IngestResult, error)
}

// RunnerService controls the per-tenant scraper process
type RunnerService interface {
	Start(tenant string) (*models.RunState, error)
	Status(tenant string) (*models.RunState, error)
	LogPath(tenant string) string
	PIDAlive(pid int) bool
}

// Notifier delivers a new-message notification. Implementations are
// fire-and-forget; errors are logged by the caller, never retried.
type Notifier interface {
	NotifyNewMessages(ctx context.Context, tenant string, conversationID string, newMessages int) error
}
