package models

import (
	"strings"
	"time"
)

// DeletedListingPrefix marks listings whose external ID carries the
// source site's tombstone prefix.
const DeletedListingPrefix = "deleted_"

// Listing represents a classified ad a conversation is attached to
type Listing struct {
	ID          string    `json:"id" badgerhold:"key"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Site        string    `json:"site"`
	Description string    `json:"description"`
	IsDeleted   bool      `json:"is_deleted"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeListingID strips the tombstone prefix and reports whether it
// was present
func NormalizeListingID(raw string) (id string, deleted bool) {
	if strings.HasPrefix(raw, DeletedListingPrefix) {
		return strings.TrimPrefix(raw, DeletedListingPrefix), true
	}
	return raw, false
}

// Counterparty is the other participant of a conversation. UserID and
// UserName come from the source site; the remaining fields are curated
// locally and are never touched by ingestion.
type Counterparty struct {
	UserID      string    `json:"user_id" badgerhold:"key"`
	UserName    string    `json:"user_name"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Facebook    string    `json:"facebook"`
	Whatsapp    string    `json:"whatsapp"`
	Commentaire string    `json:"commentaire"`
	PhotoURL    string    `json:"photo_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CuratedFields is the set of counterparty fields editable through the
// profile endpoints
var CuratedFields = map[string]bool{
	"name":        true,
	"phone":       true,
	"facebook":    true,
	"whatsapp":    true,
	"commentaire": true,
	"photo_url":   true,
}

// Conversation links a counterparty to a listing. ListingID is set by the
// first payload that carries one and never overwritten afterwards.
type Conversation struct {
	ID             string    `json:"id" badgerhold:"key"`
	ListingID      string    `json:"listing_id"`
	CounterpartyID string    `json:"counterparty_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Message is a single chat message. The external message ID is globally
// unique across conversations, so the key carries no conversation scope.
type Message struct {
	ID             string     `json:"id" badgerhold:"key"`
	ConversationID string     `json:"conversation_id" badgerhold:"index"`
	FromMe         bool       `json:"from_me"`
	Text           string     `json:"text"`
	SentAtRaw      string     `json:"sent_at_raw"`
	SentAt         *time.Time `json:"sent_at"`
	SourceUserID   string     `json:"source_user_id"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MessageImage records one image attached to a message. Key is
// MessageID + "|" + FullURL so a re-ingest of the same image is a no-op.
type MessageImage struct {
	Key       string    `json:"key" badgerhold:"key"`
	MessageID string    `json:"message_id" badgerhold:"index"`
	FullURL   string    `json:"full_url"`
	LocalPath string    `json:"local_path"`
	CreatedAt time.Time `json:"created_at"`
}

// ImageKey builds the MessageImage storage key
func ImageKey(messageID, fullURL string) string {
	return messageID + "|" + fullURL
}
