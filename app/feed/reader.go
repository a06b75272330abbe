package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Reader struct {
	httpClient *http.Client
	parser     *Parser
	extractor  *ContentExtractor
	userAgent  string
	timeout    time.Duration
}

func NewReader(httpClient *http.Client, parser *Parser, userAgent string, timeout time.Duration) *Reader {
	return &Reader{
		httpClient: httpClient,
		parser:     parser,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// WithLeadImages enables the page lookup in ResolveLeadImages.
func (r *Reader) WithLeadImages(extractor *ContentExtractor) *Reader {
	r.extractor = extractor
	return r
}

// Fetch downloads and parses feedURL. Failures are *FetchError values of kind
// ErrFeedUnreachable, ErrFeedUnparseable or ErrFeedEmpty.
func (r *Reader) Fetch(ctx context.Context, feedURL string) ([]Item, error) {
	start := time.Now()

	data, err := r.fetch(ctx, feedURL, "")
	if err != nil {
		return nil, newFetchError(ErrFeedUnreachable, feedURL, err)
	}

	items, err := r.parser.Run(data)
	if err != nil {
		return nil, newFetchError(ErrFeedUnparseable, feedURL, err)
	}

	if len(items) == 0 {
		return nil, newFetchError(ErrFeedEmpty, feedURL, nil)
	}

	slog.Debug("Feed fetched", "url", feedURL, "items", len(items), "duration", time.Since(start))

	return items, nil
}

// Validate reports whether feedURL can be fetched and parsed. An empty but
// well-formed feed is valid.
func (r *Reader) Validate(ctx context.Context, feedURL string) bool {
	_, err := r.Fetch(ctx, feedURL)
	if err == nil {
		return true
	}

	slog.Debug("Feed validation failed", "url", feedURL, "error", err)

	return errors.Is(err, ErrFeedEmpty)
}

// ResolveLeadImages fills ImageURL from the article page for items the feed
// gave no image. It is a no-op unless lead images are enabled. Pass only the
// items that will be used; each distinct link is fetched once.
func (r *Reader) ResolveLeadImages(ctx context.Context, items []Item) []Item {
	if r.extractor == nil {
		return items
	}

	resolved := make(map[string]string)

	for i := range items {
		if items[i].ImageURL != "" || items[i].Link == "" {
			continue
		}

		if image, ok := resolved[items[i].Link]; ok {
			items[i].ImageURL = image
			continue
		}

		if ctx.Err() != nil {
			return items
		}

		image := r.leadImage(ctx, items[i].Link)
		resolved[items[i].Link] = image
		items[i].ImageURL = image
	}

	return items
}

func (r *Reader) leadImage(ctx context.Context, pageURL string) string {
	data, err := r.fetch(ctx, pageURL, "text/html")
	if err != nil {
		slog.Debug("Failed to fetch item page", "url", pageURL, "error", err)
		return ""
	}

	image, err := r.extractor.LeadImage(data, pageURL)
	if err != nil {
		slog.Debug("No lead image for item", "url", pageURL, "error", err)
		return ""
	}

	return image
}

func (r *Reader) fetch(ctx context.Context, url string, wantContentType string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if wantContentType != "" {
		contentType := resp.Header.Get("Content-Type")
		if !strings.Contains(strings.ToLower(contentType), wantContentType) {
			return nil, fmt.Errorf("unexpected content type: %s", contentType)
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
