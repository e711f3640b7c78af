package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts JSON numbers, strings and null interchangeably.
// The source site is inconsistent about whether IDs arrive quoted.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = ""
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// FlexBool accepts true/false, 0/1 and "0"/"1"
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch s {
	case "true", "1":
		*f = true
	case "false", "0", "null", "":
		*f = false
	default:
		if n, err := strconv.Atoi(s); err == nil {
			*f = n != 0
			return nil
		}
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = FlexBool(v)
	}
	return nil
}

// ConversationPayload is the JSON body the scraper posts per conversation
type ConversationPayload struct {
	ConversationID FlexString       `json:"conversation_id" validate:"required"`
	UserID         FlexString       `json:"user_id" validate:"required"`
	Info           PayloadInfo      `json:"info"`
	Messages       []PayloadMessage `json:"messages"`
	Images         []PayloadImage   `json:"images"`
	AnnonceID      FlexString       `json:"annonce_id"`
	AnnonceURL     string           `json:"annonce_url"`
	AnnonceDesc    string           `json:"annonce_description"`
}

type PayloadInfo struct {
	Title string `json:"title"`
	User  string `json:"user"`
	Site  string `json:"site"`
}

// PayloadMessage mirrors one entry of the intercepted message-list response,
// passed through verbatim by the scraper
type PayloadMessage struct {
	ID        FlexString     `json:"id"`
	MyMessage FlexBool       `json:"my_message"`
	Content   string         `json:"content"`
	CreatedAt string         `json:"created_at"`
	From      FlexString     `json:"from"`
	Status    string         `json:"status"`
	Medias    []PayloadMedia `json:"medias"`
}

type PayloadMedia struct {
	Versions MediaVersions `json:"versions"`
}

type MediaVersions struct {
	Original MediaVersion `json:"original"`
}

type MediaVersion struct {
	URL string `json:"url"`
}

// PayloadImage is a DOM-harvested attachment image; Full is derived from
// Thumbnail by the scraper
type PayloadImage struct {
	Full      string `json:"full"`
	Thumbnail string `json:"thumbnail"`
}

// IngestResult is the response body for a saved payload
type IngestResult struct {
	Status         string `json:"status"`
	ConversationID string `json:"conversation_id"`
	MessagesCount  int    `json:"messages_count"`
	NewMessages    int    `json:"new_messages"`
	ImagesCount    int    `json:"images_count"`
	Skipped        int    `json:"skipped"`
}
