package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/msgvault/internal/common"
)

func testSelectors() *common.ScraperSelectors {
	cfg := common.NewDefaultConfig()
	return &cfg.Scraper.Selectors
}

func TestExtractUserID(t *testing.T) {
	assert.Equal(t, "1234", ExtractUserID("Utilisateur 1234"))
	assert.Equal(t, "8", ExtractUserID("vendu par Utilisateur 8 hier"))
	assert.Equal(t, "", ExtractUserID("Mireille"))
}

func TestExtractListingID(t *testing.T) {
	assert.Equal(t, "98765", ExtractListingID(" Annonce 98765 "))
	assert.Equal(t, "", ExtractListingID("Annonce supprimee"))
}

func TestFullImageURL(t *testing.T) {
	assert.Equal(t,
		"https://cdn.annonces.nc/img/photo.jpg",
		FullImageURL("https://cdn.annonces.nc/img/tiny_photo.jpg"))
	// URLs without the thumbnail marker pass through untouched
	assert.Equal(t,
		"https://cdn.annonces.nc/img/photo.jpg",
		FullImageURL("https://cdn.annonces.nc/img/photo.jpg"))
}

func TestMatchMessagesURL(t *testing.T) {
	assert.Equal(t, "4242", MatchMessagesURL("https://annonces.nc/api/conversations/4242/messages?page=1"))
	assert.Equal(t, "", MatchMessagesURL("https://annonces.nc/api/conversations"))
	assert.Equal(t, "", MatchMessagesURL("https://annonces.nc/api/conversations/4242"))
}

func TestParseConversationRow(t *testing.T) {
	row := `<div class="clickable">
		<span class="text-dark text-sm">Vends VTT taille M</span>
		<span class="font-weight-normal position-relative">Mireille</span>
		<small>Utilisateur 777</small>
	</div>`

	ref, err := ParseConversationRow(row, testSelectors())
	require.NoError(t, err)
	assert.Equal(t, "Vends VTT taille M", ref.Title)
	assert.Equal(t, "Mireille", ref.UserName)
	assert.Equal(t, "777", ref.UserID)
}

func TestHarvestImagesDeduplicates(t *testing.T) {
	pane := `<div class="chat-content">
		<annonces-image><img src="https://cdn.annonces.nc/img/tiny_a.jpg"></annonces-image>
		<annonces-image><img src="https://cdn.annonces.nc/img/tiny_a.jpg"></annonces-image>
		<annonces-image><img src="https://cdn.annonces.nc/img/tiny_b.jpg"></annonces-image>
		<annonces-image><img></annonces-image>
	</div>`

	images, err := HarvestImages(pane, testSelectors())
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "https://cdn.annonces.nc/img/a.jpg", images[0].Full)
	assert.Equal(t, "https://cdn.annonces.nc/img/tiny_a.jpg", images[0].Thumbnail)
	assert.Equal(t, "https://cdn.annonces.nc/img/b.jpg", images[1].Full)
}

func TestDescriptionMarkdown(t *testing.T) {
	md := DescriptionMarkdown("<p>VTT <strong>excellent etat</strong></p><p>Pneus neufs</p>")
	assert.Contains(t, md, "**excellent etat**")
	assert.Contains(t, md, "Pneus neufs")
}

func TestParseMessagesBody(t *testing.T) {
	bare := []byte(`[{"id": 1, "content": "salut", "my_message": true}]`)
	msgs, err := parseMessagesBody(bare)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "1", msgs[0].ID.String())
	assert.True(t, bool(msgs[0].MyMessage))

	wrapped := []byte(`{"messages": [{"id": "2", "content": "ok"}]}`)
	msgs, err = parseMessagesBody(wrapped)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "2", msgs[0].ID.String())

	data := []byte(`{"data": [{"id": 3}]}`)
	msgs, err = parseMessagesBody(data)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	_, err = parseMessagesBody([]byte(`not json`))
	assert.Error(t, err)
}
