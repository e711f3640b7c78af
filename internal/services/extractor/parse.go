package extractor

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/msgvault/internal/common"
	"github.com/ternarybob/msgvault/internal/models"
)

var (
	userIDPattern  = regexp.MustCompile(`Utilisateur (\d+)`)
	listingPattern = regexp.MustCompile(`Annonce (\d+)`)
)

var mdConverter = md.NewConverter("", true, nil)

// ParseConversationRow extracts title, display name and counterparty ID
// from one sidebar row's outer HTML
func ParseConversationRow(html string, sel *common.ScraperSelectors) (models.ConversationRef, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.ConversationRef{}, err
	}

	ref := models.ConversationRef{
		Title:    strings.TrimSpace(doc.Find(sel.ConvTitle).First().Text()),
		UserName: strings.TrimSpace(doc.Find(sel.ConvUser).First().Text()),
	}
	ref.UserID = ExtractUserID(doc.Text())
	return ref, nil
}

// ExtractUserID pulls the numeric counterparty ID out of the site's
// "Utilisateur <id>" label
func ExtractUserID(text string) string {
	if m := userIDPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ExtractListingID pulls the listing ID out of the panel badge
// ("Annonce <id>")
func ExtractListingID(text string) string {
	if m := listingPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// FullImageURL derives the full-resolution URL from the thumbnail URL.
// The site serves thumbnails under a "tiny_" filename prefix.
func FullImageURL(thumbnail string) string {
	return strings.Replace(thumbnail, "/tiny_", "/", 1)
}

// HarvestImages collects attachment images from the open chat pane's
// outer HTML, deduplicated by full-resolution URL
func HarvestImages(html string, sel *common.ScraperSelectors) ([]models.PayloadImage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var images []models.PayloadImage
	doc.Find(sel.Images).Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			return
		}
		full := FullImageURL(src)
		if seen[full] {
			return
		}
		seen[full] = true
		images = append(images, models.PayloadImage{Full: full, Thumbnail: src})
	})
	return images, nil
}

// DescriptionMarkdown converts the listing panel's description HTML to
// markdown, falling back to the raw text when conversion fails
func DescriptionMarkdown(html string) string {
	out, err := mdConverter.ConvertString(html)
	if err != nil {
		doc, derr := goquery.NewDocumentFromReader(strings.NewReader(html))
		if derr != nil {
			return strings.TrimSpace(html)
		}
		return strings.TrimSpace(doc.Text())
	}
	return strings.TrimSpace(out)
}
