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

// CounterpartyStorage implements the CounterpartyStorage interface for Badger
type CounterpartyStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCounterpartyStorage creates a new CounterpartyStorage instance
func NewCounterpartyStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CounterpartyStorage {
	return &CounterpartyStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CounterpartyStorage) Get(userID string) (*models.Counterparty, error) {
	var cp models.Counterparty
	if err := s.db.Store().Get(userID, &cp); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("counterparty not found: %s", userID)
		}
		return nil, fmt.Errorf("failed to get counterparty: %w", err)
	}
	return &cp, nil
}

func (s *CounterpartyStorage) GetAll() ([]*models.Counterparty, error) {
	var cps []models.Counterparty
	if err := s.db.Store().Find(&cps, nil); err != nil {
		return nil, fmt.Errorf("failed to list counterparties: %w", err)
	}
	result := make([]*models.Counterparty, len(cps))
	for i := range cps {
		result[i] = &cps[i]
	}
	return result, nil
}

func (s *CounterpartyStorage) Count() (int, error) {
	count, err := s.db.Store().Count(&models.Counterparty{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count counterparties: %w", err)
	}
	return int(count), nil
}

// Update persists curated-field edits outside of any ingest transaction
func (s *CounterpartyStorage) Update(cp *models.Counterparty) error {
	if cp.UserID == "" {
		return fmt.Errorf("counterparty user ID is required")
	}
	cp.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(cp.UserID, cp); err != nil {
		return fmt.Errorf("failed to update counterparty: %w", err)
	}
	return nil
}

func (s *CounterpartyStorage) TxGet(txn *badgerdb.Txn, userID string) (*models.Counterparty, error) {
	var cp models.Counterparty
	if err := s.db.Store().TxGet(txn, userID, &cp); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get counterparty: %w", err)
	}
	return &cp, nil
}

func (s *CounterpartyStorage) TxUpsert(txn *badgerdb.Txn, cp *models.Counterparty) error {
	if cp.UserID == "" {
		return fmt.Errorf("counterparty user ID is required")
	}

	now := time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now

	if err := s.db.Store().TxUpsert(txn, cp.UserID, cp); err != nil {
		return fmt.Errorf("failed to save counterparty: %w", err)
	}
	return nil
}
