package story

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFeedConfig    = errors.New("invalid feed config")
	ErrSchedulerUnavailable = errors.New("scheduler unavailable")

	ErrStoryGone       = errors.New("story no longer exists")
	ErrStoryIneligible = errors.New("story is not a dynamic story")
	ErrStoryInactive   = errors.New("story feed is inactive")
)

// GuardExit ends a job early without failing it. The recurring registration
// of the story is dropped and nothing is retried.
type GuardExit struct {
	StoryID string
	Reason  error
}

func (e *GuardExit) Error() string {
	return fmt.Sprintf("story %s: %v", e.StoryID, e.Reason)
}

func (e *GuardExit) Unwrap() error {
	return e.Reason
}

func NewGuardExit(storyID string, reason error) *GuardExit {
	return &GuardExit{StoryID: storyID, Reason: reason}
}

func IsGuardExit(err error) bool {
	var exit *GuardExit
	return errors.As(err, &exit)
}

// IsPermanent reports whether retrying err can never succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidFeedConfig)
}
