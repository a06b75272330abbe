package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"

	"github.com/lysyi3m/story-comb/app/cfg"
	"github.com/lysyi3m/story-comb/app/database"
	"github.com/lysyi3m/story-comb/app/metrics"
	"github.com/lysyi3m/story-comb/app/story"
)

var _ SchedulerInterface = (*Scheduler)(nil)

const (
	maxRetryDelay  = 5 * time.Minute
	jobRetention   = 24 * time.Hour
	pruneInterval  = time.Hour
	bookkeepingTTL = 10 * time.Second
)

type Options struct {
	WorkerCount  int
	PollInterval time.Duration
	JobTimeout   time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
}

func OptionsFromCfg(c *cfg.Cfg) Options {
	return Options{
		WorkerCount:  c.WorkerCount,
		PollInterval: c.SchedulerInterval,
		JobTimeout:   c.JobTimeout,
		MaxAttempts:  c.MaxAttempts,
		RetryDelay:   c.RetryDelay,
	}
}

type registration struct {
	entryID cron.EntryID
	payload story.FeedConfig
	armedAt time.Time
}

type Scheduler struct {
	jobRepo database.JobRepository
	handler Handler
	opts    Options
	cron    *cron.Cron

	mu            sync.Mutex
	registrations map[string]registration

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(jobRepo database.JobRepository, handler Handler, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 5 * time.Minute
	}

	return &Scheduler{
		jobRepo:       jobRepo,
		handler:       handler,
		opts:          opts,
		cron:          cron.New(),
		registrations: make(map[string]registration),
		wake:          make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (s *Scheduler) Start() error {
	requeued, err := s.jobRepo.RequeueActive(s.ctx)
	if err != nil {
		return fmt.Errorf("failed to recover active jobs: %w", err)
	}
	if requeued > 0 {
		slog.Info("Recovered interrupted jobs", "count", requeued)
	}

	s.cron.Start()

	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.pruneJobs()
			}
		}
	}()

	slog.Info("Scheduler started", "workers", s.opts.WorkerCount, "poll_interval", s.opts.PollInterval)

	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

// ScheduleImmediate enqueues a one-shot run with zero delay.
func (s *Scheduler) ScheduleImmediate(ctx context.Context, storyID string, config story.FeedConfig) (string, error) {
	job := NewJob(database.JobKindImmediate, storyID, config, s.opts.MaxAttempts)

	if err := s.jobRepo.Enqueue(ctx, job); err != nil {
		return "", fmt.Errorf("%w: %w", story.ErrSchedulerUnavailable, err)
	}

	slog.Debug("Immediate job enqueued", "story_id", storyID, "job_id", job.ID)

	s.notify()

	return job.ID, nil
}

// ScheduleRecurring registers a run every config interval, replacing any
// registration the story already has. The first run happens one interval
// after registration.
func (s *Scheduler) ScheduleRecurring(ctx context.Context, storyID string, config story.FeedConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	key := IdentityKey(storyID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.registrations[key]; ok {
		s.cron.Remove(existing.entryID)
		delete(s.registrations, key)
	}

	entryID := s.cron.Schedule(cron.Every(config.Interval()), cron.FuncJob(func() {
		s.tick(storyID)
	}))

	s.registrations[key] = registration{entryID: entryID, payload: config, armedAt: time.Now()}
	metrics.SetRecurringRegistrations(len(s.registrations))

	slog.Info("Recurring refresh registered", "story_id", storyID, "interval", config.Interval())

	return nil
}

// Cancel drops the story's recurring registration and any recurring run still
// waiting in the queue. Cancelling an unregistered story is a no-op. One-shot
// runs already queued are left alone.
func (s *Scheduler) Cancel(ctx context.Context, storyID string) error {
	return s.cancelArmedBefore(ctx, storyID, time.Time{})
}

// cancelArmedBefore cancels like Cancel, but keeps a registration armed after
// since. A zero since cancels unconditionally.
func (s *Scheduler) cancelArmedBefore(ctx context.Context, storyID string, since time.Time) error {
	key := IdentityKey(storyID)

	s.mu.Lock()
	existing, ok := s.registrations[key]
	if ok && !since.IsZero() && existing.armedAt.After(since) {
		s.mu.Unlock()
		slog.Info("Recurring refresh re-armed during run, keeping it", "story_id", storyID)
		return nil
	}
	if ok {
		s.cron.Remove(existing.entryID)
		delete(s.registrations, key)
		metrics.SetRecurringRegistrations(len(s.registrations))
	}
	s.mu.Unlock()

	deleted, err := s.jobRepo.DeleteWaiting(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %w", story.ErrSchedulerUnavailable, err)
	}

	if ok || deleted > 0 {
		slog.Info("Recurring refresh cancelled", "story_id", storyID, "dropped_jobs", deleted)
	}

	return nil
}

func (s *Scheduler) IsRegistered(storyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.registrations[IdentityKey(storyID)]
	return ok
}

// Registrations returns the identity keys with an armed recurring refresh.
func (s *Scheduler) Registrations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := lo.Keys(s.registrations)
	slices.Sort(keys)
	return keys
}

func (s *Scheduler) Stats(ctx context.Context) (database.JobStats, error) {
	stats, err := s.jobRepo.Stats(ctx)
	if err != nil {
		return database.JobStats{}, fmt.Errorf("%w: %w", story.ErrSchedulerUnavailable, err)
	}
	return stats, nil
}

// tick enqueues a recurring run unless the previous one is still waiting.
func (s *Scheduler) tick(storyID string) {
	key := IdentityKey(storyID)

	s.mu.Lock()
	reg, ok := s.registrations[key]
	s.mu.Unlock()

	if !ok {
		return
	}

	waiting, err := s.jobRepo.HasWaiting(s.ctx, key)
	if err != nil {
		slog.Error("Failed to check pending recurring job", "story_id", storyID, "error", err)
		return
	}
	if waiting {
		slog.Debug("Recurring job still waiting, skipping tick", "story_id", storyID)
		return
	}

	job := NewJob(database.JobKindRecurring, storyID, reg.payload, s.opts.MaxAttempts)
	if err := s.jobRepo.Enqueue(s.ctx, job); err != nil {
		slog.Error("Failed to enqueue recurring job", "story_id", storyID, "error", err)
		return
	}

	s.notify()
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		if s.ctx.Err() != nil {
			return
		}

		job, err := s.jobRepo.Claim(s.ctx, time.Now())
		if err != nil && s.ctx.Err() == nil {
			slog.Error("Failed to claim job", "worker_id", id, "error", err)
		}

		if job != nil {
			s.executeJob(id, job)
			continue
		}

		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) executeJob(workerID int, job *database.Job) {
	start := time.Now()

	jobCtx, cancel := context.WithTimeout(s.ctx, s.opts.JobTimeout)
	err := s.handler.Handle(jobCtx, *job)
	cancel()

	// Bookkeeping must land even when the scheduler is stopping
	ctx, done := context.WithTimeout(context.Background(), bookkeepingTTL)
	defer done()

	attempt := job.Attempts + 1
	kind := string(job.Kind)

	switch {
	case err == nil:
		if completeErr := s.jobRepo.Complete(ctx, job.ID); completeErr != nil {
			slog.Error("Failed to mark job completed", "job_id", job.ID, "error", completeErr)
		}
		metrics.IncJobProcessed(kind, metrics.ResultCompleted)
		slog.Info("Job completed", "worker_id", workerID, "kind", kind, "story_id", job.StoryID, "job_id", job.ID, "duration", time.Since(start))

	case story.IsGuardExit(err):
		slog.Info("Job exited on guard", "worker_id", workerID, "kind", kind, "story_id", job.StoryID, "job_id", job.ID, "reason", err)

		if cancelErr := s.cancelArmedBefore(ctx, job.StoryID, start); cancelErr != nil {
			slog.Error("Failed to cancel recurring refresh", "story_id", job.StoryID, "error", cancelErr)
		}
		if completeErr := s.jobRepo.Complete(ctx, job.ID); completeErr != nil {
			slog.Error("Failed to mark job completed", "job_id", job.ID, "error", completeErr)
		}
		metrics.IncJobProcessed(kind, metrics.ResultSkipped)

	case story.IsPermanent(err) || attempt >= job.MaxAttempts:
		slog.Error("Job failed", "worker_id", workerID, "kind", kind, "story_id", job.StoryID, "job_id", job.ID, "attempt", attempt, "max_attempts", job.MaxAttempts, "error", err)

		if failErr := s.jobRepo.Fail(ctx, job.ID, err.Error()); failErr != nil {
			slog.Error("Failed to mark job failed", "job_id", job.ID, "error", failErr)
		}
		metrics.IncJobProcessed(kind, metrics.ResultFailed)

	default:
		delay := s.retryDelay(attempt)

		slog.Warn("Job retry scheduled", "worker_id", workerID, "kind", kind, "story_id", job.StoryID, "job_id", job.ID, "attempt", attempt, "max_attempts", job.MaxAttempts, "delay", delay.String(), "error", err)

		if retryErr := s.jobRepo.Retry(ctx, job.ID, time.Now().Add(delay), err.Error()); retryErr != nil {
			slog.Error("Failed to reschedule job", "job_id", job.ID, "error", retryErr)
		}
		metrics.IncJobProcessed(kind, metrics.ResultRetried)
	}
}

// retryDelay is the wait before the next attempt after attempt failures:
// RetryDelay, then doubling.
func (s *Scheduler) retryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.RetryDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxRetryDelay
	b.MaxElapsedTime = 0
	b.Reset()

	var delay time.Duration
	for i := 0; i < attempt; i++ {
		delay = b.NextBackOff()
	}

	if delay == backoff.Stop {
		return maxRetryDelay
	}
	return delay
}

func (s *Scheduler) pruneJobs() {
	pruned, err := s.jobRepo.Prune(s.ctx, time.Now().Add(-jobRetention))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("Failed to prune finished jobs", "error", err)
		}
		return
	}
	if pruned > 0 {
		slog.Debug("Pruned finished jobs", "count", pruned)
	}
}
