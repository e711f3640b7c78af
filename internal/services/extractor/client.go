package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/msgvault/internal/models"
)

// APIClient posts scraped payloads to the archive server
type APIClient struct {
	endpoint string
	tenant   string
	client   *http.Client
}

// NewAPIClient creates a client for the ingest endpoint
func NewAPIClient(endpoint, tenant string) *APIClient {
	return &APIClient{
		endpoint: endpoint,
		tenant:   tenant,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SaveConversation submits one payload. Only a "saved" status counts as
// success; anything else is an error for this conversation.
func (c *APIClient) SaveConversation(ctx context.Context, payload *models.ConversationPayload) (*models.IngestResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", c.tenant)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("save request failed: %w", err)
	}
	defer resp.Body.Close()

	var result models.IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode save response (HTTP %d): %w", resp.StatusCode, err)
	}
	if result.Status != "saved" {
		return nil, fmt.Errorf("save rejected (HTTP %d, status %q)", resp.StatusCode, result.Status)
	}
	return &result, nil
}
