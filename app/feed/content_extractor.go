package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// LeadImage returns the lead image readability finds on an article page
// (og:image and friends). pageURL resolves relative image paths.
func (e *ContentExtractor) LeadImage(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	var base *url.URL
	if pageURL != "" {
		parsed, err := url.Parse(pageURL)
		if err != nil {
			return "", fmt.Errorf("invalid page URL: %w", err)
		}
		base = parsed
	}

	article, err := readability.FromReader(bytes.NewReader(data), base)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	image := strings.TrimSpace(article.Image)
	if image == "" {
		return "", fmt.Errorf("no lead image found")
	}

	slog.Debug("Lead image extracted", "url", pageURL, "image", image)

	return image, nil
}
