package story

import (
	"time"
)

type Type string

const (
	TypeStatic  Type = "static"
	TypeDynamic Type = "dynamic"
)

type Format string

const (
	FormatPortrait  Format = "portrait"
	FormatLandscape Format = "landscape"
)

// Layout describes the canvas frames are synthesized for.
type Layout struct {
	Format      Format `json:"format" yaml:"format"`
	DeviceFrame string `json:"device_frame,omitempty" yaml:"device_frame"`
}

func (l Layout) IsLandscape() bool {
	return l.Format == FormatLandscape
}

type Story struct {
	ID         string
	Title      string
	Type       Type
	Layout     Layout
	FeedConfig *FeedConfig
	Frames     []Frame
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsDynamic reports whether frames of the story are generated from a feed.
func (s *Story) IsDynamic() bool {
	return s.Type == TypeDynamic && s.FeedConfig != nil
}

type FeedConfig struct {
	FeedURL               string             `json:"feed_url" yaml:"feed_url"`
	UpdateIntervalMinutes int                `json:"update_interval_minutes" yaml:"update_interval_minutes"`
	MaxItems              int                `json:"max_items" yaml:"max_items"`
	AllowRepetition       bool               `json:"allow_repetition" yaml:"allow_repetition"`
	IsActive              bool               `json:"is_active" yaml:"is_active"`
	LastUpdatedAt         *time.Time         `json:"last_updated_at,omitempty" yaml:"-"`
	NextUpdateAt          *time.Time         `json:"next_update_at,omitempty" yaml:"-"`
	AdInsertion           *AdInsertionPolicy `json:"ad_insertion,omitempty" yaml:"ad_insertion"`
}

// AdInsertionPolicy travels with the feed config but is owned by the ad
// placement settings, never by the feed refresh.
type AdInsertionPolicy struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Frequency int    `json:"frequency" yaml:"frequency"`
	AdUnitID  string `json:"ad_unit_id,omitempty" yaml:"ad_unit_id"`
}

// Frame types

type Frame struct {
	Order      int         `json:"order"`
	Type       string      `json:"type"`
	Background *Background `json:"background,omitempty"`
	Elements   []Element   `json:"elements"`
	Link       string      `json:"link,omitempty"`
}

type Background struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Element struct {
	Type    string    `json:"type"`
	Content string    `json:"content"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	Width   float64   `json:"width"`
	Height  float64   `json:"height"`
	Style   TextStyle `json:"style"`
}

type TextStyle struct {
	FontSize        int    `json:"font_size"`
	FontWeight      string `json:"font_weight"`
	Color           string `json:"color"`
	BackgroundColor string `json:"background_color"`
	TextAlign       string `json:"text_align"`
	Padding         int    `json:"padding"`
}
