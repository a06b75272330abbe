package story

import "context"

// Store is the story persistence contract consumed by the update pipeline.
// GetStory returns nil, nil when the story does not exist.
type Store interface {
	GetStory(ctx context.Context, id string) (*Story, error)
	ReplaceFrames(ctx context.Context, storyID string, frames []Frame) error
	UpdateFeedConfig(ctx context.Context, storyID string, config FeedConfig) error
	ListActiveDynamicStories(ctx context.Context) ([]Story, error)
}
