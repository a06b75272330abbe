package tasks

import (
	"context"

	"github.com/lysyi3m/story-comb/app/database"
	"github.com/lysyi3m/story-comb/app/story"
)

// Handler executes one claimed job. A *story.GuardExit error means the story
// is no longer eligible; the scheduler completes the job and drops the
// story's recurring registration.
type Handler interface {
	Handle(ctx context.Context, job database.Job) error
}

// SchedulerInterface is the job scheduling contract used by the update
// service and the application entry point.
//
//	scheduler := NewScheduler(jobRepo, orchestrator, OptionsFromCfg(cfg.Get()))
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.ScheduleRecurring(ctx, storyID, config)
type SchedulerInterface interface {
	Start() error
	Stop()

	ScheduleImmediate(ctx context.Context, storyID string, config story.FeedConfig) (string, error)
	ScheduleRecurring(ctx context.Context, storyID string, config story.FeedConfig) error
	Cancel(ctx context.Context, storyID string) error
	IsRegistered(storyID string) bool
	Stats(ctx context.Context) (database.JobStats, error)
}
