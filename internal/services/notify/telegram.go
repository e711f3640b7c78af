package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/common"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier announces new messages via a Telegram bot. Delivery
// is best effort; a failed send is the caller's log line and nothing
// more.
type TelegramNotifier struct {
	config *common.Config
	client *http.Client
	logger arbor.ILogger
}

// NewTelegramNotifier returns nil when notifications are disabled or no
// bot token is configured; callers treat a nil notifier as "off"
func NewTelegramNotifier(config *common.Config, logger arbor.ILogger) *TelegramNotifier {
	if !config.Telegram.Enabled || config.Telegram.BotToken == "" {
		return nil
	}
	return &TelegramNotifier{
		config: config,
		client: &http.Client{Timeout: config.Telegram.Timeout},
		logger: logger,
	}
}

// NotifyNewMessages sends one message to the tenant's chat
func (n *TelegramNotifier) NotifyNewMessages(ctx context.Context, tenant, conversationID string, newMessages int) error {
	tc := n.config.Tenant(tenant)
	if tc == nil || tc.TelegramChatID == "" {
		return nil
	}

	text := fmt.Sprintf("📬 <b>%d</b> nouveau(x) message(s) dans la conversation %s", newMessages, conversationID)
	body, err := json.Marshal(map[string]string{
		"chat_id":    tc.TelegramChatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, n.config.Telegram.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram send rejected: HTTP %d", resp.StatusCode)
	}

	n.logger.Debug().Str("tenant", tenant).Str("conversation", conversationID).Msg("Telegram notification sent")
	return nil
}
