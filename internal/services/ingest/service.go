// -----------------------------------------------------------------------
// Last Modified: Thursday, 27th August 2026 3:52:44 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package ingest

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/interfaces"
	"github.com/ternarybob/msgvault/internal/models"
)

// Service merges scraped conversation payloads into tenant storage.
// One payload is one transaction; a failed payload persists nothing.
type Service struct {
	storage  interfaces.StorageManager
	notifier interfaces.Notifier
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewService creates the ingest service. notifier may be nil.
func NewService(storage interfaces.StorageManager, notifier interfaces.Notifier, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		notifier: notifier,
		validate: validator.New(),
		logger:   logger,
	}
}

// Save validates and merges one conversation payload.
// Merge order: listing, counterparty, conversation, messages, images.
// A listing upsert failure drops the linkage for this payload only.
func (s *Service) Save(ctx context.Context, tenant string, payload *models.ConversationPayload) (*models.IngestResult, error) {
	if err := s.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}

	store, err := s.storage.Tenant(tenant)
	if err != nil {
		return nil, err
	}

	result := &models.IngestResult{
		Status:         "saved",
		ConversationID: payload.ConversationID.String(),
	}

	err = store.Update(func(txn *badgerdb.Txn) error {
		listingID := s.mergeListing(txn, store, payload)

		if err := s.mergeCounterparty(txn, store, payload); err != nil {
			return err
		}
		if err := s.mergeConversation(txn, store, payload, listingID); err != nil {
			return err
		}
		if err := s.mergeMessages(txn, store, payload, result); err != nil {
			return err
		}
		return s.mergeHarvestedImages(txn, store, payload, result)
	})
	if err != nil {
		return nil, fmt.Errorf("ingest failed for conversation %s: %w", payload.ConversationID, err)
	}

	s.logger.Info().
		Str("tenant", tenant).
		Str("conversation", result.ConversationID).
		Int("messages", result.MessagesCount).
		Int("new", result.NewMessages).
		Int("images", result.ImagesCount).
		Int("skipped", result.Skipped).
		Msg("Conversation saved")

	if result.NewMessages > 0 && s.notifier != nil {
		go func() {
			if err := s.notifier.NotifyNewMessages(context.Background(), tenant, result.ConversationID, result.NewMessages); err != nil {
				s.logger.Warn().Err(err).Str("tenant", tenant).Msg("Notification failed")
			}
		}()
	}

	return result, nil
}

// mergeListing upserts the referenced listing and returns its normalized ID.
// Returns "" when the payload has no listing or the upsert fails; the
// conversation is then stored without linkage.
func (s *Service) mergeListing(txn *badgerdb.Txn, store interfaces.TenantStore, payload *models.ConversationPayload) string {
	rawID := payload.AnnonceID.String()
	if rawID == "" {
		return ""
	}

	id, deleted := models.NormalizeListingID(rawID)
	existing, err := store.Listings().TxGet(txn, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("listing", id).Msg("Listing lookup failed, dropping linkage")
		return ""
	}

	listing := &models.Listing{
		ID:        id,
		URL:       payload.AnnonceURL,
		Title:     payload.Info.Title,
		Site:      payload.Info.Site,
		IsDeleted: deleted,
	}
	if existing != nil {
		listing.CreatedAt = existing.CreatedAt
		listing.Description = existing.Description
	}
	// Non-empty incoming description wins; an omission never clears
	// a previously captured one
	if payload.AnnonceDesc != "" {
		listing.Description = payload.AnnonceDesc
	}

	if err := store.Listings().TxUpsert(txn, listing); err != nil {
		s.logger.Warn().Err(err).Str("listing", id).Msg("Listing upsert failed, dropping linkage")
		return ""
	}
	return id
}

// mergeCounterparty refreshes the site-supplied display name only. The
// curated profile fields are owned by the profile endpoints and must
// survive every ingest untouched.
func (s *Service) mergeCounterparty(txn *badgerdb.Txn, store interfaces.TenantStore, payload *models.ConversationPayload) error {
	userID := payload.UserID.String()
	existing, err := store.Counterparties().TxGet(txn, userID)
	if err != nil {
		return err
	}

	cp := &models.Counterparty{UserID: userID}
	if existing != nil {
		*cp = *existing
	}
	if payload.Info.User != "" {
		cp.UserName = payload.Info.User
	}

	return store.Counterparties().TxUpsert(txn, cp)
}

// mergeConversation applies first-writer-wins to the listing linkage
func (s *Service) mergeConversation(txn *badgerdb.Txn, store interfaces.TenantStore, payload *models.ConversationPayload, listingID string) error {
	convID := payload.ConversationID.String()
	existing, err := store.Conversations().TxGet(txn, convID)
	if err != nil {
		return err
	}

	conv := &models.Conversation{
		ID:             convID,
		CounterpartyID: payload.UserID.String(),
		ListingID:      listingID,
	}
	if existing != nil {
		conv.CreatedAt = existing.CreatedAt
		if existing.ListingID != "" {
			conv.ListingID = existing.ListingID
		}
	}

	return store.Conversations().TxUpsert(txn, conv)
}

func (s *Service) mergeMessages(txn *badgerdb.Txn, store interfaces.TenantStore, payload *models.ConversationPayload, result *models.IngestResult) error {
	convID := payload.ConversationID.String()

	for i := range payload.Messages {
		pm := &payload.Messages[i]
		msgID := pm.ID.String()
		if msgID == "" {
			result.Skipped++
			continue
		}

		existing, err := store.Messages().TxGet(txn, msgID)
		if err != nil {
			return err
		}

		sentAt := NormalizeTimestamp(pm.CreatedAt)
		msg := &models.Message{
			ID:             msgID,
			ConversationID: convID,
			FromMe:         bool(pm.MyMessage),
			Text:           pm.Content,
			SentAtRaw:      pm.CreatedAt,
			SentAt:         sentAt,
			SourceUserID:   pm.From.String(),
			Status:         pm.Status,
		}
		if existing != nil {
			msg.CreatedAt = existing.CreatedAt
		} else {
			result.NewMessages++
		}

		if err := store.Messages().TxUpsert(txn, msg); err != nil {
			return err
		}
		result.MessagesCount++

		for j := range pm.Medias {
			url := pm.Medias[j].Versions.Original.URL
			if url == "" {
				continue
			}
			inserted, err := store.Images().TxInsertIfAbsent(txn, &models.MessageImage{
				MessageID: msgID,
				FullURL:   url,
			})
			if err != nil {
				return err
			}
			if inserted {
				result.ImagesCount++
			}
		}
	}
	return nil
}

// mergeHarvestedImages attaches the DOM-scraped fallback images to the
// conversation's most recently inserted message, skipping URLs already
// stored anywhere in the conversation.
func (s *Service) mergeHarvestedImages(txn *badgerdb.Txn, store interfaces.TenantStore, payload *models.ConversationPayload, result *models.IngestResult) error {
	if len(payload.Images) == 0 {
		return nil
	}

	latest, err := store.Messages().TxLatestByConversation(txn, payload.ConversationID.String())
	if err != nil {
		return err
	}
	if latest == nil {
		return nil
	}

	// The dedup set spans the whole conversation, not just the messages
	// this payload carries; the site trims old messages from its responses
	msgIDs, err := store.Messages().TxIDsByConversation(txn, payload.ConversationID.String())
	if err != nil {
		return err
	}
	stored, err := store.Images().TxURLsForMessages(txn, msgIDs)
	if err != nil {
		return err
	}

	for i := range payload.Images {
		url := payload.Images[i].Full
		if url == "" || stored[url] {
			continue
		}
		inserted, err := store.Images().TxInsertIfAbsent(txn, &models.MessageImage{
			MessageID: latest.ID,
			FullURL:   url,
		})
		if err != nil {
			return err
		}
		if inserted {
			result.ImagesCount++
			stored[url] = true
		}
	}
	return nil
}
