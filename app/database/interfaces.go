package database

import (
	"context"
	"time"

	"github.com/lysyi3m/story-comb/app/story"
)

type StoryRepository interface {
	story.Store

	UpsertStory(ctx context.Context, s *story.Story) error
	DeleteStory(ctx context.Context, id string) error
}

type JobRepository interface {
	Enqueue(ctx context.Context, job Job) error
	Claim(ctx context.Context, now time.Time) (*Job, error)
	Complete(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, runAt time.Time, lastError string) error
	Fail(ctx context.Context, id string, lastError string) error

	HasWaiting(ctx context.Context, identityKey string) (bool, error)
	DeleteWaiting(ctx context.Context, identityKey string) (int64, error)
	RequeueActive(ctx context.Context) (int64, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
	Stats(ctx context.Context) (JobStats, error)
}
