package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/story-comb/app/story"
)

// Definition is the YAML shape of a story seed file. The story ID is the
// file name without the .yml extension.
type Definition struct {
	Title      string            `yaml:"title"`
	Type       story.Type        `yaml:"type"`
	Layout     story.Layout      `yaml:"layout"`
	FeedConfig *story.FeedConfig `yaml:"feed"`
}

type Upserter interface {
	UpsertStory(ctx context.Context, s *story.Story) error
}

type Loader struct {
	storiesDir string
	store      Upserter
}

func NewLoader(storiesDir string, store Upserter) *Loader {
	return &Loader{
		storiesDir: storiesDir,
		store:      store,
	}
}

// Run loads every seed file and upserts it. A missing directory is not an
// error. Returns the stories that were written.
func (l *Loader) Run(ctx context.Context) ([]*story.Story, error) {
	if l.storiesDir == "" {
		return nil, nil
	}

	if _, err := os.Stat(l.storiesDir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(l.storiesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}

	stories := make([]*story.Story, 0, len(files))

	for _, file := range files {
		id := strings.TrimSuffix(filepath.Base(file), ".yml")

		s, err := l.LoadStory(id)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.store.UpsertStory(ctx, s); err != nil {
			return nil, fmt.Errorf("failed to save story %s: %w", id, err)
		}

		slog.Debug("Story seeded", "story_id", id, "type", s.Type, "dynamic", s.IsDynamic())

		stories = append(stories, s)
	}

	return stories, nil
}

func (l *Loader) LoadStory(id string) (*story.Story, error) {
	file := filepath.Join(l.storiesDir, id+".yml")

	definition, err := parseDefinition(file)
	if err != nil {
		return nil, err
	}

	s := &story.Story{
		ID:         id,
		Title:      definition.Title,
		Type:       definition.Type,
		Layout:     definition.Layout,
		FeedConfig: definition.FeedConfig,
	}

	if err := validateStory(s); err != nil {
		return nil, fmt.Errorf("invalid story %s: %w", file, err)
	}

	return s, nil
}

func parseDefinition(file string) (*Definition, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var definition Definition
	if err := yaml.Unmarshal(data, &definition); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if definition.Type == "" {
		definition.Type = story.TypeStatic
		if definition.FeedConfig != nil {
			definition.Type = story.TypeDynamic
		}
	}
	if definition.Layout.Format == "" {
		definition.Layout.Format = story.FormatPortrait
	}

	return &definition, nil
}

func validateStory(s *story.Story) error {
	if s.Title == "" {
		return fmt.Errorf("title is required")
	}

	switch s.Type {
	case story.TypeStatic, story.TypeDynamic:
	default:
		return fmt.Errorf("unknown story type: %s", s.Type)
	}

	switch s.Layout.Format {
	case story.FormatPortrait, story.FormatLandscape:
	default:
		return fmt.Errorf("unknown layout format: %s", s.Layout.Format)
	}

	if s.Type == story.TypeDynamic {
		if s.FeedConfig == nil {
			return fmt.Errorf("dynamic story requires a feed section")
		}
		if err := s.FeedConfig.Validate(); err != nil {
			return err
		}
	}

	return nil
}
