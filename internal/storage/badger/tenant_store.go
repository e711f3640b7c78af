package badger

import (
	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/interfaces"
)

// TenantStore bundles one tenant's entity stores over a shared connection
type TenantStore struct {
	db             *BadgerDB
	listings       interfaces.ListingStorage
	counterparties interfaces.CounterpartyStorage
	conversations  interfaces.ConversationStorage
	messages       interfaces.MessageStorage
	images         interfaces.ImageStorage
}

// NewTenantStore opens the tenant database and wires its stores
func NewTenantStore(logger arbor.ILogger, path string, resetOnStartup bool) (interfaces.TenantStore, error) {
	db, err := NewBadgerDB(logger, path, resetOnStartup)
	if err != nil {
		return nil, err
	}

	return &TenantStore{
		db:             db,
		listings:       NewListingStorage(db, logger),
		counterparties: NewCounterpartyStorage(db, logger),
		conversations:  NewConversationStorage(db, logger),
		messages:       NewMessageStorage(db, logger),
		images:         NewImageStorage(db, logger),
	}, nil
}

func (t *TenantStore) Listings() interfaces.ListingStorage            { return t.listings }
func (t *TenantStore) Counterparties() interfaces.CounterpartyStorage { return t.counterparties }
func (t *TenantStore) Conversations() interfaces.ConversationStorage  { return t.conversations }
func (t *TenantStore) Messages() interfaces.MessageStorage            { return t.messages }
func (t *TenantStore) Images() interfaces.ImageStorage                { return t.images }

func (t *TenantStore) Update(fn func(txn *badgerdb.Txn) error) error {
	return t.db.Update(fn)
}

func (t *TenantStore) Close() error {
	return t.db.Close()
}
