package ingest

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/common"
	"github.com/ternarybob/msgvault/internal/models"
	"github.com/ternarybob/msgvault/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Manager) {
	tmpDir, err := ioutil.TempDir("", "ingest-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = tmpDir

	logger := arbor.NewLogger()
	mgr := storage.NewManager(cfg, logger)
	t.Cleanup(func() { mgr.Close() })

	return NewService(mgr, nil, logger), mgr
}

func basePayload() *models.ConversationPayload {
	return &models.ConversationPayload{
		ConversationID: "4242",
		UserID:         "777",
		Info: models.PayloadInfo{
			Title: "Vends VTT taille M",
			User:  "Mireille",
			Site:  "annonces.nc",
		},
		Messages: []models.PayloadMessage{
			{ID: "100", MyMessage: false, Content: "Bonjour, toujours disponible ?", CreatedAt: "2026-08-20 09:15:00", From: "777", Status: "read"},
			{ID: "101", MyMessage: true, Content: "Oui, toujours", CreatedAt: "2026-08-20 09:20:00", From: "1", Status: "read"},
		},
		AnnonceID:   "555",
		AnnonceURL:  "https://annonces.nc/annonce/555",
		AnnonceDesc: "VTT en bon etat, peu servi",
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	first, err := svc.Save(ctx, "alice", basePayload())
	require.NoError(t, err)
	assert.Equal(t, "saved", first.Status)
	assert.Equal(t, 2, first.NewMessages)
	assert.Equal(t, 2, first.MessagesCount)

	second, err := svc.Save(ctx, "alice", basePayload())
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewMessages)
	assert.Equal(t, 2, second.MessagesCount)

	store, err := mgr.Tenant("alice")
	require.NoError(t, err)

	count, err := store.Messages().Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	imgCount, err := store.Images().Count()
	require.NoError(t, err)
	assert.Equal(t, 0, imgCount)
}

func TestCuratedFieldsSurviveReingest(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "alice", basePayload())
	require.NoError(t, err)

	store, err := mgr.Tenant("alice")
	require.NoError(t, err)

	cp, err := store.Counterparties().Get("777")
	require.NoError(t, err)
	cp.Phone = "+687 123456"
	cp.Commentaire = "vendeuse fiable"
	require.NoError(t, store.Counterparties().Update(cp))

	payload := basePayload()
	payload.Info.User = "Mireille B."
	_, err = svc.Save(ctx, "alice", payload)
	require.NoError(t, err)

	cp, err = store.Counterparties().Get("777")
	require.NoError(t, err)
	assert.Equal(t, "Mireille B.", cp.UserName, "display name refreshes")
	assert.Equal(t, "+687 123456", cp.Phone, "curated phone untouched")
	assert.Equal(t, "vendeuse fiable", cp.Commentaire, "curated comment untouched")
}

func TestListingDescriptionNeverCleared(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "alice", basePayload())
	require.NoError(t, err)

	payload := basePayload()
	payload.AnnonceDesc = ""
	_, err = svc.Save(ctx, "alice", payload)
	require.NoError(t, err)

	store, err := mgr.Tenant("alice")
	require.NoError(t, err)
	listing, err := store.Listings().Get("555")
	require.NoError(t, err)
	assert.Equal(t, "VTT en bon etat, peu servi", listing.Description)

	payload.AnnonceDesc = "VTT revise, pneus neufs"
	_, err = svc.Save(ctx, "alice", payload)
	require.NoError(t, err)

	listing, err = store.Listings().Get("555")
	require.NoError(t, err)
	assert.Equal(t, "VTT revise, pneus neufs", listing.Description, "non-empty incoming wins")
}

func TestListingLinkageFirstWriterWins(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "alice", basePayload())
	require.NoError(t, err)

	payload := basePayload()
	payload.AnnonceID = "999"
	_, err = svc.Save(ctx, "alice", payload)
	require.NoError(t, err)

	store, err := mgr.Tenant("alice")
	require.NoError(t, err)
	conv, err := store.Conversations().Get("4242")
	require.NoError(t, err)
	assert.Equal(t, "555", conv.ListingID, "linkage never overwritten")
}

func TestLinkageSetWhenPreviouslyEmpty(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	payload := basePayload()
	payload.AnnonceID = ""
	_, err := svc.Save(ctx, "alice", payload)
	require.NoError(t, err)

	store, err := mgr.Tenant("alice")
	require.NoError(t, err)
	conv, err := store.Conversations().Get("4242")
	require.NoError(t, err)
	assert.Equal(t, "", conv.ListingID)

	_, err = svc.Save(ctx, "alice", basePayload())
	require.NoError(t, err)

	conv, err = store.Conversations().Get("4242")
	require.NoError(t, err)
	assert.Equal(t, "555", conv.ListingID, "empty linkage fills in")
}

func TestMessageIdentityIsGlobal(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "alice", basePayload())
	require.NoError(t, err)

	// Same message ID arriving under a different conversation updates
	// the existing row instead of duplicating it
	other := basePayload()
	other.ConversationID = "5000"
	other.Messages = []models.PayloadMessage{
		{ID: "100", Content: "edited content", CreatedAt: "2026-08-21 10:00:00", From: "777", Status: "read"},
	}
	res, err := svc.Save(ctx, "alice", other)
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewMessages)

	store, err := mgr.Tenant("alice")
	require.NoError(t, err)
	count, err := store.Messages().Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	msg, err := store.Messages().Get("100")
	require.NoError(t, err)
	assert.Equal(t, "edited content", msg.Text)
	assert.Equal(t, "5000", msg.ConversationID)
}

func TestMessagesWithoutIDAreSkipped(t *testing.T) {
	svc, _ := newTestService(t)

	payload := basePayload()
	payload.Messages = append(payload.Messages, models.PayloadMessage{Content: "orphan"})

	res, err := svc.Save(context.Background(), "alice", payload)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.MessagesCount)
}

func TestMissingIdentifiersRejectWholePayload(t *testing.T) {
	svc, mgr := newTestService(t)

	payload := basePayload()
	payload.UserID = ""
	_, err := svc.Save(context.Background(), "alice", payload)
	require.Error(t, err)

	store, err := mgr.Tenant("alice")
	require.NoError(t, err)
	count, err := store.Conversations().Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count, "nothing persisted on validation failure")
}

func TestHarvestedImagesAttachToLatestMessage(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	payload := basePayload()
	payload.Messages[0].Medias = []models.PayloadMedia{
		{Versions: models.MediaVersions{Original: models.MediaVersion{URL: "https://cdn.annonces.nc/img/a.jpg"}}},
	}
	payload.Images = []models.PayloadImage{
		{Full: "https://cdn.annonces.nc/img/a.jpg", Thumbnail: "https://cdn.annonces.nc/img/tiny_a.jpg"},
		{Full: "https://cdn.annonces.nc/img/b.jpg", Thumbnail: "https://cdn.annonces.nc/img/tiny_b.jpg"},
	}

	res, err := svc.Save(ctx, "alice", payload)
	require.NoError(t, err)
	// a.jpg from media, b.jpg from the DOM harvest; a.jpg not re-added
	assert.Equal(t, 2, res.ImagesCount)

	store, err := mgr.Tenant("alice")
	require.NoError(t, err)
	imgs, err := store.Images().GetByMessage("101")
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Equal(t, "https://cdn.annonces.nc/img/b.jpg", imgs[0].FullURL)
}

func TestHarvestedImageDedupSpansTrimmedHistory(t *testing.T) {
	svc, mgr := newTestService(t)
	ctx := context.Background()

	first := basePayload()
	first.Images = []models.PayloadImage{
		{Full: "https://cdn.annonces.nc/img/x.jpg", Thumbnail: "https://cdn.annonces.nc/img/tiny_x.jpg"},
	}
	res, err := svc.Save(ctx, "alice", first)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImagesCount)

	// The site trims older messages from later responses; the re-served
	// DOM image is already stored on message 101 and must not reattach
	second := basePayload()
	second.Messages = []models.PayloadMessage{
		{ID: "200", Content: "nouveau", CreatedAt: "2026-08-22 08:00:00", From: "777", Status: "read"},
	}
	second.Images = []models.PayloadImage{
		{Full: "https://cdn.annonces.nc/img/x.jpg", Thumbnail: "https://cdn.annonces.nc/img/tiny_x.jpg"},
	}
	res, err = svc.Save(ctx, "alice", second)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ImagesCount)

	store, err := mgr.Tenant("alice")
	require.NoError(t, err)
	count, err := store.Images().Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one stored copy across the conversation")

	imgs, err := store.Images().GetByMessage("200")
	require.NoError(t, err)
	assert.Empty(t, imgs)
}

func TestDeletedListingPrefix(t *testing.T) {
	svc, mgr := newTestService(t)

	payload := basePayload()
	payload.AnnonceID = "deleted_555"
	_, err := svc.Save(context.Background(), "alice", payload)
	require.NoError(t, err)

	store, err := mgr.Tenant("alice")
	require.NoError(t, err)
	listing, err := store.Listings().Get("555")
	require.NoError(t, err)
	assert.True(t, listing.IsDeleted)

	conv, err := store.Conversations().Get("4242")
	require.NoError(t, err)
	assert.Equal(t, "555", conv.ListingID)
}

func TestPayloadToleratesNumericIDs(t *testing.T) {
	raw := `{"conversation_id": 4242, "user_id": 777, "messages": [{"id": 100, "my_message": 1, "content": "ok"}]}`
	var payload models.ConversationPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.Equal(t, "4242", payload.ConversationID.String())
	assert.Equal(t, "777", payload.UserID.String())
	assert.Equal(t, "100", payload.Messages[0].ID.String())
	assert.True(t, bool(payload.Messages[0].MyMessage))
}

func TestNormalizeTimestamp(t *testing.T) {
	if ts := NormalizeTimestamp("2026-08-20 09:15:00"); ts == nil {
		t.Fatal("expected space-separated layout to parse")
	}
	if ts := NormalizeTimestamp("2026-08-20T09:15:00Z"); ts == nil {
		t.Fatal("expected RFC3339 to parse")
	}
	if ts := NormalizeTimestamp("il y a 3 jours"); ts != nil {
		t.Fatalf("expected relative text to yield nil, got %v", ts)
	}
	if ts := NormalizeTimestamp(""); ts != nil {
		t.Fatal("expected empty input to yield nil")
	}
}
