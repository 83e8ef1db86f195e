package feed

import (
	"time"
)

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
	PublishedAt *time.Time
}

// Item is one harvested feed entry, the raw material of a request.
type Item struct {
	GUID        string
	ContentHash string
	Title       string
	Link        string
	Description string
	Content     string
	PublishedAt time.Time // zero when the feed carries no date
	Authors     []string
	Categories  []string
}

// Filter is one adaptor filter rule. An item must contain one of Includes,
// when given, and none of Excludes.
type Filter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

var filterFields = map[string]bool{
	"title":       true,
	"description": true,
	"content":     true,
	"authors":     true,
	"link":        true,
	"categories":  true,
}

func IsValidFilterField(field string) bool {
	return filterFields[field]
}
