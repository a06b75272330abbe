package feed

import (
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// ImageStrategy extracts an image URL from a raw feed item, or returns "".
type ImageStrategy func(item *gofeed.Item) string

// DefaultImageStrategies lists the strategies in priority order: media
// extension fields, image enclosures, then the first <img> in the item HTML.
func DefaultImageStrategies() []ImageStrategy {
	return []ImageStrategy{
		MediaImage,
		EnclosureImage,
		HTMLImage,
	}
}

func ResolveImage(item *gofeed.Item, strategies []ImageStrategy) string {
	for _, strategy := range strategies {
		if url := strings.TrimSpace(strategy(item)); url != "" {
			return url
		}
	}
	return ""
}

func MediaImage(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		if url := mediaURL(media); url != "" {
			return url
		}

		// media:group wraps thumbnails and content on some feeds (YouTube)
		for _, group := range media["group"] {
			if url := mediaURL(group.Children); url != "" {
				return url
			}
		}
	}

	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	if item.ITunesExt != nil && item.ITunesExt.Image != "" {
		return item.ITunesExt.Image
	}

	return ""
}

func mediaURL(elements map[string][]ext.Extension) string {
	for _, thumbnail := range elements["thumbnail"] {
		if url := thumbnail.Attrs["url"]; url != "" {
			return url
		}
	}

	for _, content := range elements["content"] {
		url := content.Attrs["url"]
		if url == "" {
			continue
		}
		if content.Attrs["medium"] == "image" || isImageType(content.Attrs["type"]) {
			return url
		}
	}

	return ""
}

func EnclosureImage(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		if isImageType(enclosure.Type) {
			return enclosure.URL
		}
	}
	return ""
}

var imgSrcPattern = regexp.MustCompile(`(?i)<img[^>]+src\s*=\s*["']([^"']+)["']`)

func HTMLImage(item *gofeed.Item) string {
	for _, html := range []string{item.Description, item.Content} {
		if match := imgSrcPattern.FindStringSubmatch(html); match != nil {
			return match[1]
		}
	}
	return ""
}

func isImageType(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}
