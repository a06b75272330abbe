package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lysyi3m/story-comb/app/story"
)

type mockUpserter struct {
	stories map[string]*story.Story
	err     error
}

func (m *mockUpserter) UpsertStory(ctx context.Context, s *story.Story) error {
	if m.err != nil {
		return m.err
	}
	if m.stories == nil {
		m.stories = make(map[string]*story.Story)
	}
	m.stories[s.ID] = s
	return nil
}

func writeSeed(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoaderLoadsDynamicStory(t *testing.T) {
	tempDir := t.TempDir()

	writeSeed(t, tempDir, "news.yml", `
title: "Morning news"
layout:
  format: landscape
  device_frame: tablet
feed:
  feed_url: "https://example.com/feed.xml"
  update_interval_minutes: 15
  max_items: 5
  allow_repetition: true
  is_active: true
  ad_insertion:
    enabled: true
    frequency: 3
    ad_unit_id: "unit-1"
`)

	store := &mockUpserter{}
	stories, err := NewLoader(tempDir, store).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(stories) != 1 {
		t.Fatalf("Expected 1 story, got %d", len(stories))
	}

	s := store.stories["news"]
	if s == nil {
		t.Fatal("Expected story 'news' to be saved")
	}
	if s.Type != story.TypeDynamic {
		t.Errorf("Expected type inferred as dynamic, got %s", s.Type)
	}
	if !s.Layout.IsLandscape() || s.Layout.DeviceFrame != "tablet" {
		t.Errorf("Expected landscape tablet layout, got %+v", s.Layout)
	}
	if s.FeedConfig.UpdateIntervalMinutes != 15 || s.FeedConfig.MaxItems != 5 || !s.FeedConfig.AllowRepetition {
		t.Errorf("Unexpected feed config: %+v", s.FeedConfig)
	}
	if s.FeedConfig.AdInsertion == nil || s.FeedConfig.AdInsertion.Frequency != 3 {
		t.Errorf("Expected ad insertion policy, got %+v", s.FeedConfig.AdInsertion)
	}
}

func TestLoaderDefaults(t *testing.T) {
	tempDir := t.TempDir()

	writeSeed(t, tempDir, "about.yml", `title: "About us"`)

	store := &mockUpserter{}
	if _, err := NewLoader(tempDir, store).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := store.stories["about"]
	if s.Type != story.TypeStatic {
		t.Errorf("Expected static type, got %s", s.Type)
	}
	if s.Layout.Format != story.FormatPortrait {
		t.Errorf("Expected portrait layout, got %s", s.Layout.Format)
	}
}

func TestLoaderRejectsInvalidFeed(t *testing.T) {
	tempDir := t.TempDir()

	writeSeed(t, tempDir, "bad.yml", `
title: "Too fast"
feed:
  feed_url: "https://example.com/feed.xml"
  update_interval_minutes: 1
  max_items: 5
`)

	_, err := NewLoader(tempDir, &mockUpserter{}).Run(context.Background())
	if !errors.Is(err, story.ErrInvalidFeedConfig) {
		t.Fatalf("Expected ErrInvalidFeedConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad.yml") {
		t.Errorf("Expected file name in error, got %v", err)
	}
}

func TestLoaderRejectsDynamicWithoutFeed(t *testing.T) {
	tempDir := t.TempDir()

	writeSeed(t, tempDir, "empty.yml", `
title: "Dynamic"
type: dynamic
`)

	if _, err := NewLoader(tempDir, &mockUpserter{}).Run(context.Background()); err == nil {
		t.Fatal("Expected error for dynamic story without feed")
	}
}

func TestLoaderInvalidYAML(t *testing.T) {
	tempDir := t.TempDir()

	writeSeed(t, tempDir, "broken.yml", "title: [unclosed")

	if _, err := NewLoader(tempDir, &mockUpserter{}).Run(context.Background()); err == nil {
		t.Fatal("Expected YAML error")
	}
}

func TestLoaderMissingDirectory(t *testing.T) {
	stories, err := NewLoader(filepath.Join(t.TempDir(), "nope"), &mockUpserter{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Expected no error for missing directory, got %v", err)
	}
	if len(stories) != 0 {
		t.Errorf("Expected no stories, got %d", len(stories))
	}
}

func TestLoaderStoreError(t *testing.T) {
	tempDir := t.TempDir()
	writeSeed(t, tempDir, "about.yml", `title: "About us"`)

	storeErr := errors.New("disk full")
	_, err := NewLoader(tempDir, &mockUpserter{err: storeErr}).Run(context.Background())
	if !errors.Is(err, storeErr) {
		t.Fatalf("Expected store error, got %v", err)
	}
}
