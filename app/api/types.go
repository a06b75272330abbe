package api

import (
	"context"

	"github.com/lysyi3m/story-comb/app/database"
	"github.com/lysyi3m/story-comb/app/story"
	"github.com/lysyi3m/story-comb/app/updates"
)

type UpdateService interface {
	ValidateFeedURL(ctx context.Context, feedURL string) bool
	GetProcessingStatus(ctx context.Context, storyID string) (*story.ProcessingStatus, error)
	ConfigureFeed(ctx context.Context, storyID string, config story.FeedConfig) error
	DisableFeed(ctx context.Context, storyID string) error
	TriggerImmediateUpdate(ctx context.Context, storyID string) (string, error)
	QueueStats(ctx context.Context) (database.JobStats, error)
	DeleteStory(ctx context.Context, storyID string) error
}

var _ UpdateService = (*updates.Service)(nil)

type Handler struct {
	service UpdateService
}

type validateRequest struct {
	FeedURL string `json:"feed_url" binding:"required"`
}

type feedConfigRequest struct {
	FeedURL               string                   `json:"feed_url" binding:"required"`
	UpdateIntervalMinutes int                      `json:"update_interval_minutes"`
	MaxItems              int                      `json:"max_items"`
	AllowRepetition       bool                     `json:"allow_repetition"`
	IsActive              *bool                    `json:"is_active"`
	AdInsertion           *story.AdInsertionPolicy `json:"ad_insertion"`
}

func (r feedConfigRequest) toFeedConfig() story.FeedConfig {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	return story.FeedConfig{
		FeedURL:               r.FeedURL,
		UpdateIntervalMinutes: r.UpdateIntervalMinutes,
		MaxItems:              r.MaxItems,
		AllowRepetition:       r.AllowRepetition,
		IsActive:              active,
		AdInsertion:           r.AdInsertion,
	}
}
