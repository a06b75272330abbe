package feed

import (
	"github.com/lysyi3m/story-comb/app/story"
)

const (
	FrameTypeStory      = "story"
	ElementTypeText     = "text"
	BackgroundTypeImage = "image"
)

// textBox is the title block geometry on the layout canvas
// (portrait 360x640, landscape 640x360).
type textBox struct {
	x, y, width, height float64
	fontSize            int
}

var (
	portraitTextBox  = textBox{x: 20, y: 420, width: 320, height: 200, fontSize: 24}
	landscapeTextBox = textBox{x: 20, y: 240, width: 600, height: 100, fontSize: 32}
)

var titleStyle = story.TextStyle{
	FontWeight:      "bold",
	Color:           "#ffffff",
	BackgroundColor: "rgba(0, 0, 0, 0.6)",
	TextAlign:       "left",
	Padding:         16,
}

type Synthesizer struct{}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Run builds the frame for one selected item. Items without an image get no
// background; renderers fall back to their default gradient.
func (s *Synthesizer) Run(item Item, index int, layout story.Layout) story.Frame {
	box := portraitTextBox
	if layout.IsLandscape() {
		box = landscapeTextBox
	}

	style := titleStyle
	style.FontSize = box.fontSize

	frame := story.Frame{
		Order: index,
		Type:  FrameTypeStory,
		Link:  item.Link,
		Elements: []story.Element{
			{
				Type:    ElementTypeText,
				Content: item.Title,
				X:       box.x,
				Y:       box.y,
				Width:   box.width,
				Height:  box.height,
				Style:   style,
			},
		},
	}

	if item.ImageURL != "" {
		frame.Background = &story.Background{
			Type:  BackgroundTypeImage,
			Value: item.ImageURL,
		}
	}

	return frame
}
