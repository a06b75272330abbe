package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/lysyi3m/story-comb/app/database"
	"github.com/lysyi3m/story-comb/app/feed"
	"github.com/lysyi3m/story-comb/app/metrics"
	"github.com/lysyi3m/story-comb/app/status"
	"github.com/lysyi3m/story-comb/app/story"
	"github.com/lysyi3m/story-comb/app/tasks"
)

var _ tasks.Handler = (*Orchestrator)(nil)

type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]feed.Item, error)
	ResolveLeadImages(ctx context.Context, items []feed.Item) []feed.Item
}

// Orchestrator runs one feed refresh for a story: fetch, select, synthesize,
// replace frames and record the refresh, with a status write per stage.
type Orchestrator struct {
	stories     story.Store
	statuses    status.Store
	locker      status.Locker
	reader      FeedFetcher
	selector    *feed.Selector
	synthesizer *feed.Synthesizer
	lockTTL     time.Duration
	now         func() time.Time
}

func NewOrchestrator(stories story.Store, statuses status.Store, locker status.Locker, reader FeedFetcher,
	selector *feed.Selector, synthesizer *feed.Synthesizer, lockTTL time.Duration) *Orchestrator {
	return &Orchestrator{
		stories:     stories,
		statuses:    statuses,
		locker:      locker,
		reader:      reader,
		selector:    selector,
		synthesizer: synthesizer,
		lockTTL:     lockTTL,
		now:         time.Now,
	}
}

func (o *Orchestrator) Handle(ctx context.Context, job database.Job) error {
	storyID := job.StoryID

	s, err := o.stories.GetStory(ctx, storyID)
	if err != nil {
		return fmt.Errorf("failed to load story %s: %w", storyID, err)
	}

	if s == nil {
		o.clearStatus(ctx, storyID)
		return story.NewGuardExit(storyID, story.ErrStoryGone)
	}

	if !s.IsDynamic() {
		return story.NewGuardExit(storyID, story.ErrStoryIneligible)
	}

	if !s.FeedConfig.IsActive {
		return story.NewGuardExit(storyID, story.ErrStoryInactive)
	}

	if err := job.Payload.Validate(); err != nil {
		o.writeStatus(ctx, story.Failed(storyID, 0, err.Error()))
		return err
	}

	progress := 0
	o.writeStatus(ctx, story.Processing(storyID, progress, "Fetching feed..."))

	frames, err := o.run(ctx, s, job.Payload, &progress)
	if err != nil {
		if errors.Is(err, story.ErrStoryGone) {
			o.clearStatus(ctx, storyID)
		}
		if story.IsGuardExit(err) {
			return err
		}
		o.writeStatus(ctx, story.Failed(storyID, progress, err.Error()))
		return err
	}

	metrics.AddFramesGenerated(len(frames))

	o.writeStatus(ctx, story.Completed(storyID, len(frames), len(frames),
		fmt.Sprintf("Generated %d frames", len(frames))))

	slog.Info("Story refreshed", "story_id", storyID, "frames", len(frames), "feed", job.Payload.FeedURL)

	return nil
}

// run performs the fetch-to-persist stages. progress tracks the last
// reported percentage so a failure is reported where the run stopped.
func (o *Orchestrator) run(ctx context.Context, s *story.Story, payload story.FeedConfig, progress *int) ([]story.Frame, error) {
	start := time.Now()
	items, err := o.reader.Fetch(ctx, payload.FeedURL)
	metrics.ObserveFeedFetch(time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}

	*progress = 30
	o.writeStatus(ctx, story.Processing(s.ID, *progress, fmt.Sprintf("Found %d items, generating frames...", len(items))))

	selected := o.selector.Run(items, payload.MaxItems, payload.AllowRepetition)
	selected = o.reader.ResolveLeadImages(ctx, selected)
	frames := lo.Map(selected, func(item feed.Item, index int) story.Frame {
		return o.synthesizer.Run(item, index, s.Layout)
	})

	token, err := o.locker.TryLock(ctx, s.ID, o.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire story lease: %w", err)
	}
	defer func() {
		if err := o.locker.Unlock(context.WithoutCancel(ctx), s.ID, token); err != nil {
			slog.Warn("Failed to release story lease", "story_id", s.ID, "error", err)
		}
	}()

	if err := o.stories.ReplaceFrames(ctx, s.ID, frames); err != nil {
		if errors.Is(err, story.ErrStoryGone) {
			return nil, story.NewGuardExit(s.ID, story.ErrStoryGone)
		}
		return nil, fmt.Errorf("failed to replace frames: %w", err)
	}

	*progress = 80
	o.writeStatus(ctx, story.Processing(s.ID, *progress, "Updating story configuration..."))

	current, err := o.stories.GetStory(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload story: %w", err)
	}
	if current == nil {
		return nil, story.NewGuardExit(s.ID, story.ErrStoryGone)
	}

	stored := payload
	if current.FeedConfig != nil {
		stored = *current.FeedConfig
	}

	merged := stored.MergeRefresh(payload, o.now())
	if err := o.stories.UpdateFeedConfig(ctx, s.ID, merged); err != nil {
		if errors.Is(err, story.ErrStoryGone) {
			return nil, story.NewGuardExit(s.ID, story.ErrStoryGone)
		}
		return nil, fmt.Errorf("failed to update feed config: %w", err)
	}

	return frames, nil
}

// writeStatus never fails the run; status is advisory.
func (o *Orchestrator) writeStatus(ctx context.Context, s story.ProcessingStatus) {
	if err := o.statuses.Set(ctx, s); err != nil {
		slog.Warn("Failed to write processing status", "story_id", s.StoryID, "phase", s.Phase, "error", err)
	}
}

func (o *Orchestrator) clearStatus(ctx context.Context, storyID string) {
	if err := o.statuses.Delete(ctx, storyID); err != nil {
		slog.Warn("Failed to clear processing status", "story_id", storyID, "error", err)
	}
}
