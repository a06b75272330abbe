package status

import (
	"context"
	"time"

	"github.com/lysyi3m/story-comb/app/story"
)

// Store keeps the latest ProcessingStatus per story. Get returns nil, nil
// when no record exists or it has expired.
type Store interface {
	Set(ctx context.Context, s story.ProcessingStatus) error
	Get(ctx context.Context, storyID string) (*story.ProcessingStatus, error)
	Delete(ctx context.Context, storyID string) error
}

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
