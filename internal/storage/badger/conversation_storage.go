package badger

import (
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/msgvault/internal/interfaces"
	"github.com/ternarybob/msgvault/internal/models"
)

// ConversationStorage implements the ConversationStorage interface for Badger
type ConversationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewConversationStorage creates a new ConversationStorage instance
func NewConversationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ConversationStorage {
	return &ConversationStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ConversationStorage) Get(id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.Store().Get(id, &conv); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("conversation not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

func (s *ConversationStorage) GetAll() ([]*models.Conversation, error) {
	var convs []models.Conversation
	if err := s.db.Store().Find(&convs, nil); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return toPointers(convs), nil
}

func (s *ConversationStorage) GetByListing(listingID string) ([]*models.Conversation, error) {
	var convs []models.Conversation
	if err := s.db.Store().Find(&convs, badgerhold.Where("ListingID").Eq(listingID)); err != nil {
		return nil, fmt.Errorf("failed to find conversations by listing: %w", err)
	}
	return toPointers(convs), nil
}

func (s *ConversationStorage) GetByCounterparty(userID string) ([]*models.Conversation, error) {
	var convs []models.Conversation
	if err := s.db.Store().Find(&convs, badgerhold.Where("CounterpartyID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to find conversations by counterparty: %w", err)
	}
	return toPointers(convs), nil
}

func (s *ConversationStorage) Count() (int, error) {
	count, err := s.db.Store().Count(&models.Conversation{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return int(count), nil
}

func (s *ConversationStorage) TxGet(txn *badgerdb.Txn, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.Store().TxGet(txn, id, &conv); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

func (s *ConversationStorage) TxUpsert(txn *badgerdb.Txn, conv *models.Conversation) error {
	if conv.ID == "" {
		return fmt.Errorf("conversation ID is required")
	}

	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now

	if err := s.db.Store().TxUpsert(txn, conv.ID, conv); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func toPointers(convs []models.Conversation) []*models.Conversation {
	result := make([]*models.Conversation, len(convs))
	for i := range convs {
		result[i] = &convs[i]
	}
	return result
}
