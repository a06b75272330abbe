package status

import (
	"context"
	"sync"
	"time"

	"github.com/lysyi3m/story-comb/app/story"
)

type memoryEntry struct {
	status    story.ProcessingStatus
	expiresAt time.Time
}

// MemoryStore is the single-process Store used when no Redis address is
// configured. Expired entries are dropped on read and swept on every write.
type MemoryStore struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Set(ctx context.Context, status story.ProcessingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}

	s.entries[status.StoryID] = memoryEntry{
		status:    status,
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, storyID string) (*story.ProcessingStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[storyID]
	if !ok {
		return nil, nil
	}

	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, storyID)
		return nil, nil
	}

	status := entry.status
	return &status, nil
}

func (s *MemoryStore) Delete(ctx context.Context, storyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, storyID)
	return nil
}
