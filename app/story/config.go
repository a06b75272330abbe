package story

import (
	"fmt"
	"net/url"
	"time"
)

const (
	MinUpdateIntervalMinutes = 5
	MinMaxItems              = 1
	MaxMaxItems              = 50
)

func (c *FeedConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is missing", ErrInvalidFeedConfig)
	}

	if c.FeedURL == "" {
		return fmt.Errorf("%w: feed URL is required", ErrInvalidFeedConfig)
	}

	u, err := url.Parse(c.FeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: feed URL must be an absolute http(s) URL", ErrInvalidFeedConfig)
	}

	if c.UpdateIntervalMinutes < MinUpdateIntervalMinutes {
		return fmt.Errorf("%w: update interval must be at least %d minutes", ErrInvalidFeedConfig, MinUpdateIntervalMinutes)
	}

	if c.MaxItems < MinMaxItems || c.MaxItems > MaxMaxItems {
		return fmt.Errorf("%w: max items must be between %d and %d", ErrInvalidFeedConfig, MinMaxItems, MaxMaxItems)
	}

	return nil
}

func (c *FeedConfig) Interval() time.Duration {
	return time.Duration(c.UpdateIntervalMinutes) * time.Minute
}

// MergeRefresh returns the config to persist after a successful refresh.
// Feed identity comes from the job payload, everything else (activity flag,
// ad insertion policy) from the currently stored config.
func (c FeedConfig) MergeRefresh(payload FeedConfig, now time.Time) FeedConfig {
	merged := c
	merged.FeedURL = payload.FeedURL
	merged.UpdateIntervalMinutes = payload.UpdateIntervalMinutes
	merged.MaxItems = payload.MaxItems
	merged.AllowRepetition = payload.AllowRepetition

	next := now.Add(payload.Interval())
	merged.LastUpdatedAt = &now
	merged.NextUpdateAt = &next

	return merged
}
