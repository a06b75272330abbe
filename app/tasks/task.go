package tasks

import (
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/story-comb/app/database"
	"github.com/lysyi3m/story-comb/app/story"
)

const (
	DefaultMaxAttempts = 3
)

// IdentityKey is the recurring registration key of a story. It depends on
// the story ID alone.
func IdentityKey(storyID string) string {
	return "story:" + storyID
}

// NewJob builds a waiting job. Only recurring runs carry the identity key;
// one-shot runs are independent of the story's registration.
func NewJob(kind database.JobKind, storyID string, payload story.FeedConfig, maxAttempts int) database.Job {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var identityKey string
	if kind == database.JobKindRecurring {
		identityKey = IdentityKey(storyID)
	}

	return database.Job{
		ID:          uuid.NewString(),
		StoryID:     storyID,
		Kind:        kind,
		IdentityKey: identityKey,
		Payload:     payload,
		Status:      database.JobStatusWaiting,
		MaxAttempts: maxAttempts,
		RunAt:       time.Now(),
	}
}
