package database

import (
	"time"

	"github.com/lysyi3m/story-comb/app/story"
)

type JobKind string

const (
	JobKindImmediate JobKind = "immediate"
	JobKindRecurring JobKind = "recurring"
)

type JobStatus string

const (
	JobStatusWaiting   JobStatus = "waiting"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one queued pipeline execution. Payload is the feed config snapshot
// taken when the job was enqueued.
type Job struct {
	ID          string
	StoryID     string
	Kind        JobKind
	IdentityKey string
	Payload     story.FeedConfig
	Status      JobStatus
	Attempts    int
	MaxAttempts int
	RunAt       time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type JobStats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
