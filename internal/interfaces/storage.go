// -----------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026 9:14:07 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/ternarybob/msgvault/internal/models"
)

// ListingStorage - interface for listing persistence
type ListingStorage interface {
	Get(id string) (*models.Listing, error)
	GetAll() ([]*models.Listing, error)
	Count() (int, error)

	// Tx variants run inside an ingest transaction
	TxGet(txn *badger.Txn, id string) (*models.Listing, error)
	TxUpsert(txn *badger.Txn, listing *models.Listing) error
}

// CounterpartyStorage - interface for counterparty persistence
type CounterpartyStorage interface {
	Get(userID string) (*models.Counterparty, error)
	GetAll() ([]*models.Counterparty, error)
	Count() (int, error)
	Update(cp *models.Counterparty) error

	TxGet(txn *badger.Txn, userID string) (*models.Counterparty, error)
	TxUpsert(txn *badger.Txn, cp *models.Counterparty) error
}

// ConversationStorage - interface for conversation persistence
type ConversationStorage interface {
	Get(id string) (*models.Conversation, error)
	GetAll() ([]*models.Conversation, error)
	GetByListing(listingID string) ([]*models.Conversation, error)
	GetByCounterparty(userID string) ([]*models.Conversation, error)
	Count() (int, error)

	TxGet(txn *badger.Txn, id string) (*models.Conversation, error)
	TxUpsert(txn *badger.Txn, conv *models.Conversation) error
}

// MessageStorage - interface for message persistence
type MessageStorage interface {
	Get(id string) (*models.Message, error)
	GetByConversation(conversationID string) ([]*models.Message, error)
	Count() (int, error)
	CountByConversation(conversationID string) (int, error)

	TxGet(txn *badger.Txn, id string) (*models.Message, error)
	TxUpsert(txn *badger.Txn, msg *models.Message) error
	// TxLatestByConversation returns the highest-ID message of a
	// conversation, or nil when it has none
	TxLatestByConversation(txn *badger.Txn, conversationID string) (*models.Message, error)
	// TxIDsByConversation lists every stored message ID of the conversation
	TxIDsByConversation(txn *badger.Txn, conversationID string) ([]string, error)
}

// ImageStorage - interface for message image persistence
type ImageStorage interface {
	GetByMessage(messageID string) ([]*models.MessageImage, error)
	Count() (int, error)

	TxInsertIfAbsent(txn *badger.Txn, img *models.MessageImage) (inserted bool, err error)
	// TxURLsForMessages collects the stored image URLs of the given
	// messages (dedup set for DOM-harvested images)
	TxURLsForMessages(txn *badger.Txn, messageIDs []string) (map[string]bool, error)
}

// TenantStore bundles the per-tenant stores plus raw transaction access
type TenantStore interface {
	Listings() ListingStorage
	Counterparties() CounterpartyStorage
	Conversations() ConversationStorage
	Messages() MessageStorage
	Images() ImageStorage

	// Update runs fn inside one writable Badger transaction
	Update(fn func(txn *badger.Txn) error) error
	Close() error
}

// StorageManager provisions isolated tenant stores on first use
type StorageManager interface {
	Tenant(name string) (TenantStore, error)
	Close() error
}
