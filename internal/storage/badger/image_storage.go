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

// ImageStorage implements the ImageStorage interface for Badger
type ImageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewImageStorage creates a new ImageStorage instance
func NewImageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ImageStorage {
	return &ImageStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ImageStorage) GetByMessage(messageID string) ([]*models.MessageImage, error) {
	var imgs []models.MessageImage
	if err := s.db.Store().Find(&imgs, badgerhold.Where("MessageID").Eq(messageID).Index("MessageID")); err != nil {
		return nil, fmt.Errorf("failed to find images: %w", err)
	}
	result := make([]*models.MessageImage, len(imgs))
	for i := range imgs {
		result[i] = &imgs[i]
	}
	return result, nil
}

func (s *ImageStorage) Count() (int, error) {
	count, err := s.db.Store().Count(&models.MessageImage{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return int(count), nil
}

// TxInsertIfAbsent inserts the image unless its (message, url) pair already
// exists. Duplicate pairs are a no-op, not an error.
func (s *ImageStorage) TxInsertIfAbsent(txn *badgerdb.Txn, img *models.MessageImage) (bool, error) {
	if img.MessageID == "" || img.FullURL == "" {
		return false, fmt.Errorf("image requires message ID and URL")
	}
	img.Key = models.ImageKey(img.MessageID, img.FullURL)

	var existing models.MessageImage
	err := s.db.Store().TxGet(txn, img.Key, &existing)
	if err == nil {
		return false, nil
	}
	if err != badgerhold.ErrNotFound {
		return false, fmt.Errorf("failed to check image: %w", err)
	}

	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now()
	}
	if err := s.db.Store().TxInsert(txn, img.Key, img); err != nil {
		return false, fmt.Errorf("failed to save image: %w", err)
	}
	return true, nil
}

func (s *ImageStorage) TxURLsForMessages(txn *badgerdb.Txn, messageIDs []string) (map[string]bool, error) {
	urls := make(map[string]bool)
	if len(messageIDs) == 0 {
		return urls, nil
	}

	ids := make([]interface{}, len(messageIDs))
	for i, id := range messageIDs {
		ids[i] = id
	}

	var imgs []models.MessageImage
	if err := s.db.Store().TxFind(txn, &imgs, badgerhold.Where("MessageID").In(ids...).Index("MessageID")); err != nil {
		return nil, fmt.Errorf("failed to collect image URLs: %w", err)
	}
	for i := range imgs {
		urls[imgs[i].FullURL] = true
	}
	return urls, nil
}
