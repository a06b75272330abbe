package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/story-comb/app/story"
)

var _ StoryRepository = (*StoryRepositoryImpl)(nil)

type StoryRepositoryImpl struct {
	db  *DB
	now func() time.Time
}

func NewStoryRepository(db *DB) *StoryRepositoryImpl {
	return &StoryRepositoryImpl{db: db, now: time.Now}
}

// GetStory returns the story with its frames in order, or nil when absent.
func (r *StoryRepositoryImpl) GetStory(ctx context.Context, id string) (*story.Story, error) {
	var (
		s          story.Story
		layout     string
		feedConfig sql.NullString
		createdAt  int64
		updatedAt  int64
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, type, layout, feed_config, created_at, updated_at
		FROM stories
		WHERE id = ?
	`, id).Scan(&s.ID, &s.Title, &s.Type, &layout, &feedConfig, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}

	if err := decodeStoryColumns(&s, layout, feedConfig); err != nil {
		return nil, err
	}
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)

	frames, err := r.getFrames(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Frames = frames

	return &s, nil
}

func (r *StoryRepositoryImpl) getFrames(ctx context.Context, storyID string) ([]story.Frame, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT data FROM frames WHERE story_id = ? ORDER BY position
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get frames: %w", err)
	}
	defer rows.Close()

	frames := []story.Frame{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan frame row: %w", err)
		}

		var frame story.Frame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			return nil, fmt.Errorf("failed to decode frame: %w", err)
		}
		frames = append(frames, frame)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating frame rows: %w", err)
	}

	return frames, nil
}

// ReplaceFrames swaps the whole frame list in one transaction. Returns
// story.ErrStoryGone when the story no longer exists.
func (r *StoryRepositoryImpl) ReplaceFrames(ctx context.Context, storyID string, frames []story.Frame) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE stories SET updated_at = ? WHERE id = ?
	`, toMillis(r.now()), storyID)
	if err != nil {
		return fmt.Errorf("failed to touch story: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return story.ErrStoryGone
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM frames WHERE story_id = ?`, storyID); err != nil {
		return fmt.Errorf("failed to delete frames: %w", err)
	}

	for i, frame := range frames {
		data, err := json.Marshal(frame)
		if err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO frames (story_id, position, data) VALUES (?, ?, ?)
		`, storyID, i, string(data)); err != nil {
			return fmt.Errorf("failed to insert frame %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit frames: %w", err)
	}

	return nil
}

// UpdateFeedConfig overwrites the stored feed config. Returns
// story.ErrStoryGone when the story no longer exists.
func (r *StoryRepositoryImpl) UpdateFeedConfig(ctx context.Context, storyID string, config story.FeedConfig) error {
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode feed config: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE stories SET feed_config = ?, updated_at = ? WHERE id = ?
	`, string(data), toMillis(r.now()), storyID)
	if err != nil {
		return fmt.Errorf("failed to update feed config: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return story.ErrStoryGone
	}

	return nil
}

func (r *StoryRepositoryImpl) ListActiveDynamicStories(ctx context.Context) ([]story.Story, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, type, layout, feed_config, created_at, updated_at
		FROM stories
		WHERE type = ?
		  AND feed_config IS NOT NULL
		  AND json_extract(feed_config, '$.is_active') = 1
		ORDER BY id
	`, story.TypeDynamic)
	if err != nil {
		return nil, fmt.Errorf("failed to list dynamic stories: %w", err)
	}
	defer rows.Close()

	var stories []story.Story
	for rows.Next() {
		var (
			s          story.Story
			layout     string
			feedConfig sql.NullString
			createdAt  int64
			updatedAt  int64
		)

		if err := rows.Scan(&s.ID, &s.Title, &s.Type, &layout, &feedConfig, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		if err := decodeStoryColumns(&s, layout, feedConfig); err != nil {
			return nil, err
		}
		s.CreatedAt = fromMillis(createdAt)
		s.UpdatedAt = fromMillis(updatedAt)

		stories = append(stories, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating story rows: %w", err)
	}

	return stories, nil
}

// UpsertStory inserts or updates story metadata and feed config. Frames and
// refresh timestamps of an existing story are kept.
func (r *StoryRepositoryImpl) UpsertStory(ctx context.Context, s *story.Story) error {
	layout, err := json.Marshal(s.Layout)
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}

	existing, err := r.GetStory(ctx, s.ID)
	if err != nil {
		return err
	}

	var feedConfig sql.NullString
	if s.FeedConfig != nil {
		config := *s.FeedConfig
		if existing != nil && existing.FeedConfig != nil {
			config.LastUpdatedAt = existing.FeedConfig.LastUpdatedAt
			config.NextUpdateAt = existing.FeedConfig.NextUpdateAt
		}

		data, err := json.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to encode feed config: %w", err)
		}
		feedConfig = sql.NullString{String: string(data), Valid: true}
	}

	now := toMillis(r.now())

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO stories (id, title, type, layout, feed_config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			type = excluded.type,
			layout = excluded.layout,
			feed_config = excluded.feed_config,
			updated_at = excluded.updated_at
	`, s.ID, s.Title, s.Type, string(layout), feedConfig, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert story %s: %w", s.ID, err)
	}

	return nil
}

func (r *StoryRepositoryImpl) DeleteStory(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete story %s: %w", id, err)
	}
	return nil
}

func decodeStoryColumns(s *story.Story, layout string, feedConfig sql.NullString) error {
	if err := json.Unmarshal([]byte(layout), &s.Layout); err != nil {
		return fmt.Errorf("failed to decode layout of story %s: %w", s.ID, err)
	}

	if feedConfig.Valid {
		var config story.FeedConfig
		if err := json.Unmarshal([]byte(feedConfig.String), &config); err != nil {
			return fmt.Errorf("failed to decode feed config of story %s: %w", s.ID, err)
		}
		s.FeedConfig = &config
	}

	return nil
}
