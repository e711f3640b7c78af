package badger

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/msgvault/internal/interfaces"
	"github.com/ternarybob/msgvault/internal/models"
)

// MessageStorage implements the MessageStorage interface for Badger
type MessageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMessageStorage creates a new MessageStorage instance
func NewMessageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MessageStorage {
	return &MessageStorage{
		db:     db,
		logger: logger,
	}
}

func (s *MessageStorage) Get(id string) (*models.Message, error) {
	var msg models.Message
	if err := s.db.Store().Get(id, &msg); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("message not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

// GetByConversation returns the conversation's messages sorted by normalized
// timestamp, unparsable timestamps last in external-ID order
func (s *MessageStorage) GetByConversation(conversationID string) ([]*models.Message, error) {
	var msgs []models.Message
	if err := s.db.Store().Find(&msgs, badgerhold.Where("ConversationID").Eq(conversationID).Index("ConversationID")); err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}

	result := make([]*models.Message, len(msgs))
	for i := range msgs {
		result[i] = &msgs[i]
	}
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		switch {
		case a.SentAt != nil && b.SentAt != nil:
			if !a.SentAt.Equal(*b.SentAt) {
				return a.SentAt.Before(*b.SentAt)
			}
			return lessByExternalID(a.ID, b.ID)
		case a.SentAt != nil:
			return true
		case b.SentAt != nil:
			return false
		default:
			return lessByExternalID(a.ID, b.ID)
		}
	})
	return result, nil
}

func (s *MessageStorage) Count() (int, error) {
	count, err := s.db.Store().Count(&models.Message{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return int(count), nil
}

func (s *MessageStorage) CountByConversation(conversationID string) (int, error) {
	count, err := s.db.Store().Count(&models.Message{}, badgerhold.Where("ConversationID").Eq(conversationID).Index("ConversationID"))
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return int(count), nil
}

func (s *MessageStorage) TxGet(txn *badgerdb.Txn, id string) (*models.Message, error) {
	var msg models.Message
	if err := s.db.Store().TxGet(txn, id, &msg); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

func (s *MessageStorage) TxUpsert(txn *badgerdb.Txn, msg *models.Message) error {
	if msg.ID == "" {
		return fmt.Errorf("message ID is required")
	}

	now := time.Now()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now

	if err := s.db.Store().TxUpsert(txn, msg.ID, msg); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// TxLatestByConversation picks the message with the highest external ID.
// Source-site IDs are numeric and monotonic, so this matches "most recently
// inserted"; non-numeric IDs fall back to a lexical comparison.
func (s *MessageStorage) TxLatestByConversation(txn *badgerdb.Txn, conversationID string) (*models.Message, error) {
	var msgs []models.Message
	if err := s.db.Store().TxFind(txn, &msgs, badgerhold.Where("ConversationID").Eq(conversationID).Index("ConversationID")); err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	latest := &msgs[0]
	for i := 1; i < len(msgs); i++ {
		if lessByExternalID(latest.ID, msgs[i].ID) {
			latest = &msgs[i]
		}
	}
	return latest, nil
}

// TxIDsByConversation lists every stored message ID of the conversation,
// including ones the site no longer serves in its responses
func (s *MessageStorage) TxIDsByConversation(txn *badgerdb.Txn, conversationID string) ([]string, error) {
	var msgs []models.Message
	if err := s.db.Store().TxFind(txn, &msgs, badgerhold.Where("ConversationID").Eq(conversationID).Index("ConversationID")); err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	ids := make([]string, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
	}
	return ids, nil
}

func lessByExternalID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
