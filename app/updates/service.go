package updates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/story-comb/app/database"
	"github.com/lysyi3m/story-comb/app/status"
	"github.com/lysyi3m/story-comb/app/story"
	"github.com/lysyi3m/story-comb/app/tasks"
)

type FeedValidator interface {
	Validate(ctx context.Context, feedURL string) bool
}

type StoryStore interface {
	GetStory(ctx context.Context, id string) (*story.Story, error)
	UpdateFeedConfig(ctx context.Context, storyID string, config story.FeedConfig) error
	ListActiveDynamicStories(ctx context.Context) ([]story.Story, error)
	DeleteStory(ctx context.Context, id string) error
}

// Service is the entry point for everything outside the pipeline: config
// changes, manual refreshes, status polling and startup re-arming.
type Service struct {
	stories   StoryStore
	statuses  status.Store
	scheduler tasks.SchedulerInterface
	validator FeedValidator
	now       func() time.Time
}

func NewService(stories StoryStore, statuses status.Store, scheduler tasks.SchedulerInterface, validator FeedValidator) *Service {
	return &Service{
		stories:   stories,
		statuses:  statuses,
		scheduler: scheduler,
		validator: validator,
		now:       time.Now,
	}
}

func (s *Service) ValidateFeedURL(ctx context.Context, feedURL string) bool {
	return s.validator.Validate(ctx, feedURL)
}

// GetProcessingStatus returns nil when no run was observed recently.
func (s *Service) GetProcessingStatus(ctx context.Context, storyID string) (*story.ProcessingStatus, error) {
	return s.statuses.Get(ctx, storyID)
}

// ScheduleUpdate applies a feed config to the scheduler. An active config
// arms the recurring refresh and queues an immediate run; an inactive one
// cancels it.
func (s *Service) ScheduleUpdate(ctx context.Context, storyID string, config story.FeedConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	if !config.IsActive {
		return s.scheduler.Cancel(ctx, storyID)
	}

	if err := s.scheduler.ScheduleRecurring(ctx, storyID, config); err != nil {
		return err
	}

	if _, err := s.scheduler.ScheduleImmediate(ctx, storyID, config); err != nil {
		return err
	}

	return nil
}

// ConfigureFeed stores a new feed config for a story and schedules it. The
// stored ad insertion policy is kept when the update carries none. The config
// is saved first: if scheduling then fails the caller gets the error and the
// stored active config is armed by Rearm on the next start.
func (s *Service) ConfigureFeed(ctx context.Context, storyID string, config story.FeedConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	current, err := s.loadDynamicStory(ctx, storyID)
	if err != nil {
		return err
	}

	if config.AdInsertion == nil && current.FeedConfig != nil {
		config.AdInsertion = current.FeedConfig.AdInsertion
	}
	if current.FeedConfig != nil {
		config.LastUpdatedAt = current.FeedConfig.LastUpdatedAt
		config.NextUpdateAt = current.FeedConfig.NextUpdateAt
	}

	if err := s.stories.UpdateFeedConfig(ctx, storyID, config); err != nil {
		return fmt.Errorf("failed to save feed config: %w", err)
	}

	return s.ScheduleUpdate(ctx, storyID, config)
}

func (s *Service) CancelUpdates(ctx context.Context, storyID string) error {
	return s.scheduler.Cancel(ctx, storyID)
}

// DisableFeed marks the story feed inactive and stops its refreshes.
func (s *Service) DisableFeed(ctx context.Context, storyID string) error {
	current, err := s.loadDynamicStory(ctx, storyID)
	if err != nil {
		return err
	}

	if current.FeedConfig != nil && current.FeedConfig.IsActive {
		config := *current.FeedConfig
		config.IsActive = false
		if err := s.stories.UpdateFeedConfig(ctx, storyID, config); err != nil {
			return fmt.Errorf("failed to save feed config: %w", err)
		}
	}

	return s.scheduler.Cancel(ctx, storyID)
}

// TriggerImmediateUpdate queues a one-shot refresh with the stored config.
// Returns the job ID.
func (s *Service) TriggerImmediateUpdate(ctx context.Context, storyID string) (string, error) {
	current, err := s.loadDynamicStory(ctx, storyID)
	if err != nil {
		return "", err
	}

	if current.FeedConfig == nil {
		return "", story.ErrStoryIneligible
	}
	if !current.FeedConfig.IsActive {
		return "", story.ErrStoryInactive
	}

	return s.scheduler.ScheduleImmediate(ctx, storyID, *current.FeedConfig)
}

func (s *Service) QueueStats(ctx context.Context) (database.JobStats, error) {
	return s.scheduler.Stats(ctx)
}

// DeleteStory removes the story and everything the pipeline keeps for it.
func (s *Service) DeleteStory(ctx context.Context, storyID string) error {
	if err := s.scheduler.Cancel(ctx, storyID); err != nil {
		return err
	}

	if err := s.stories.DeleteStory(ctx, storyID); err != nil {
		return err
	}

	if err := s.statuses.Delete(ctx, storyID); err != nil {
		slog.Warn("Failed to clear processing status", "story_id", storyID, "error", err)
	}

	return nil
}

// Rearm registers the recurring refresh of every active dynamic story and
// queues an immediate run for stories whose next refresh is overdue. Stories
// with configs that no longer validate are skipped.
func (s *Service) Rearm(ctx context.Context) (int, error) {
	stories, err := s.stories.ListActiveDynamicStories(ctx)
	if err != nil {
		return 0, err
	}

	armed := 0
	for _, st := range stories {
		if st.FeedConfig == nil {
			continue
		}

		if err := s.scheduler.ScheduleRecurring(ctx, st.ID, *st.FeedConfig); err != nil {
			slog.Warn("Failed to re-arm recurring refresh", "story_id", st.ID, "error", err)
			continue
		}
		armed++

		if next := st.FeedConfig.NextUpdateAt; next == nil || !next.After(s.now()) {
			if _, err := s.scheduler.ScheduleImmediate(ctx, st.ID, *st.FeedConfig); err != nil {
				slog.Warn("Failed to queue overdue refresh", "story_id", st.ID, "error", err)
			}
		}
	}

	slog.Info("Recurring refreshes re-armed", "count", armed, "stories", len(stories))

	return armed, nil
}

func (s *Service) loadDynamicStory(ctx context.Context, storyID string) (*story.Story, error) {
	current, err := s.stories.GetStory(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load story %s: %w", storyID, err)
	}
	if current == nil {
		return nil, story.ErrStoryGone
	}
	if current.Type != story.TypeDynamic {
		return nil, story.ErrStoryIneligible
	}
	return current, nil
}
