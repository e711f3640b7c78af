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

// ListingStorage implements the ListingStorage interface for Badger
type ListingStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewListingStorage creates a new ListingStorage instance
func NewListingStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ListingStorage {
	return &ListingStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ListingStorage) Get(id string) (*models.Listing, error) {
	var listing models.Listing
	if err := s.db.Store().Get(id, &listing); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("listing not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

func (s *ListingStorage) GetAll() ([]*models.Listing, error) {
	var listings []models.Listing
	if err := s.db.Store().Find(&listings, nil); err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	result := make([]*models.Listing, len(listings))
	for i := range listings {
		result[i] = &listings[i]
	}
	return result, nil
}

func (s *ListingStorage) Count() (int, error) {
	count, err := s.db.Store().Count(&models.Listing{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return int(count), nil
}

func (s *ListingStorage) TxGet(txn *badgerdb.Txn, id string) (*models.Listing, error) {
	var listing models.Listing
	if err := s.db.Store().TxGet(txn, id, &listing); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

func (s *ListingStorage) TxUpsert(txn *badgerdb.Txn, listing *models.Listing) error {
	if listing.ID == "" {
		return fmt.Errorf("listing ID is required")
	}

	now := time.Now()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	listing.UpdatedAt = now

	if err := s.db.Store().TxUpsert(txn, listing.ID, listing); err != nil {
		return fmt.Errorf("failed to save listing: %w", err)
	}
	return nil
}
