package feed

import (
	"time"
)

// Item is one normalized feed entry. Items are rebuilt on every fetch and
// never persisted on their own.
type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	ImageURL    string // empty when no image could be resolved
	PublishedAt *time.Time
}
