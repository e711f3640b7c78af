package badger

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/interfaces"
	"github.com/ternarybob/msgvault/internal/models"
)

func newTestStore(t *testing.T) interfaces.TenantStore {
	tmpDir, err := ioutil.TempDir("", "badger-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewTenantStore(arbor.NewLogger(), tmpDir, false)
	if err != nil {
		t.Fatalf("Failed to open tenant store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMessageRoundTripInTransaction(t *testing.T) {
	store := newTestStore(t)

	sentAt := time.Date(2026, 8, 20, 9, 15, 0, 0, time.UTC)
	err := store.Update(func(txn *badgerdb.Txn) error {
		return store.Messages().TxUpsert(txn, &models.Message{
			ID:             "100",
			ConversationID: "c1",
			Text:           "bonjour",
			SentAt:         &sentAt,
		})
	})
	if err != nil {
		t.Fatalf("Failed to save message: %v", err)
	}

	msg, err := store.Messages().Get("100")
	if err != nil {
		t.Fatalf("Failed to get message: %v", err)
	}
	if msg.Text != "bonjour" || msg.ConversationID != "c1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.CreatedAt.IsZero() || msg.UpdatedAt.IsZero() {
		t.Fatal("timestamps should be set on upsert")
	}
}

func TestTxGetMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(func(txn *badgerdb.Txn) error {
		listing, err := store.Listings().TxGet(txn, "missing")
		if err != nil {
			return err
		}
		if listing != nil {
			t.Fatal("missing listing should be nil, not an error")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLatestByConversationPrefersHighestNumericID(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(func(txn *badgerdb.Txn) error {
		for _, id := range []string{"9", "100", "21"} {
			if err := store.Messages().TxUpsert(txn, &models.Message{ID: id, ConversationID: "c1"}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = store.Update(func(txn *badgerdb.Txn) error {
		latest, err := store.Messages().TxLatestByConversation(txn, "c1")
		if err != nil {
			return err
		}
		if latest == nil || latest.ID != "100" {
			t.Fatalf("expected message 100, got %+v", latest)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestIDsByConversationCoversAllStoredMessages(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(func(txn *badgerdb.Txn) error {
		for _, m := range []*models.Message{
			{ID: "1", ConversationID: "c1"},
			{ID: "2", ConversationID: "c1"},
			{ID: "3", ConversationID: "c2"},
		} {
			if err := store.Messages().TxUpsert(txn, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = store.Update(func(txn *badgerdb.Txn) error {
		ids, err := store.Messages().TxIDsByConversation(txn, "c1")
		if err != nil {
			return err
		}
		if len(ids) != 2 {
			t.Fatalf("expected 2 IDs for c1, got %v", ids)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestImageInsertIfAbsentIsNoOpOnDuplicate(t *testing.T) {
	store := newTestStore(t)

	img := &models.MessageImage{MessageID: "m1", FullURL: "https://cdn.example/a.jpg"}
	err := store.Update(func(txn *badgerdb.Txn) error {
		inserted, err := store.Images().TxInsertIfAbsent(txn, img)
		if err != nil {
			return err
		}
		if !inserted {
			t.Fatal("first insert should report inserted")
		}

		again, err := store.Images().TxInsertIfAbsent(txn, &models.MessageImage{MessageID: "m1", FullURL: "https://cdn.example/a.jpg"})
		if err != nil {
			return err
		}
		if again {
			t.Fatal("duplicate pair must be a no-op")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	count, err := store.Images().Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 image, got %d", count)
	}
}

func TestConversationFilters(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(func(txn *badgerdb.Txn) error {
		convs := []*models.Conversation{
			{ID: "c1", ListingID: "l1", CounterpartyID: "u1"},
			{ID: "c2", ListingID: "l1", CounterpartyID: "u2"},
			{ID: "c3", ListingID: "l2", CounterpartyID: "u1"},
		}
		for _, conv := range convs {
			if err := store.Conversations().TxUpsert(txn, conv); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	byListing, err := store.Conversations().GetByListing("l1")
	if err != nil {
		t.Fatal(err)
	}
	if len(byListing) != 2 {
		t.Fatalf("expected 2 conversations for l1, got %d", len(byListing))
	}

	byUser, err := store.Conversations().GetByCounterparty("u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(byUser) != 2 {
		t.Fatalf("expected 2 conversations for u1, got %d", len(byUser))
	}
}

func TestMessagesSortedByNormalizedTimestamp(t *testing.T) {
	store := newTestStore(t)

	early := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	err := store.Update(func(txn *badgerdb.Txn) error {
		msgs := []*models.Message{
			{ID: "3", ConversationID: "c1", SentAt: &late},
			{ID: "1", ConversationID: "c1", SentAt: &early},
			{ID: "2", ConversationID: "c1"}, // unparsable timestamp
		}
		for _, msg := range msgs {
			if err := store.Messages().TxUpsert(txn, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	msgs, err := store.Messages().GetByConversation("c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "1" || msgs[1].ID != "3" || msgs[2].ID != "2" {
		t.Fatalf("unexpected order: %s, %s, %s", msgs[0].ID, msgs[1].ID, msgs[2].ID)
	}
}
