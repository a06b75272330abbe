package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const testFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item><title>First</title><link>https://example.com/1</link><guid>1</guid></item>
    <item><title>Second</title><link>https://example.com/2</link><guid>2</guid></item>
  </channel>
</rss>`

const emptyFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Nothing yet</title>
  </channel>
</rss>`

func newTestReader(timeout time.Duration) *Reader {
	return NewReader(&http.Client{}, NewParser(), "story-comb-test", timeout)
}

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestReaderFetch(t *testing.T) {
	var userAgent string
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	})

	items, err := newTestReader(5*time.Second).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(items) != 2 || items[0].Title != "First" || items[1].Title != "Second" {
		t.Errorf("Expected [First Second], got %+v", items)
	}
	if userAgent != "story-comb-test" {
		t.Errorf("Expected configured user agent, got %q", userAgent)
	}
}

func TestReaderFetchHTTPError(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := newTestReader(5*time.Second).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrFeedUnreachable) {
		t.Fatalf("Expected ErrFeedUnreachable, got: %v", err)
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.URL != server.URL {
		t.Errorf("Expected FetchError for %s, got %v", server.URL, err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("Expected status code in message, got: %v", err)
	}
}

func TestReaderFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := newTestReader(50*time.Millisecond).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrFeedUnreachable) {
		t.Fatalf("Expected ErrFeedUnreachable, got: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline cause to be preserved, got: %v", err)
	}
}

func TestReaderFetchUnparseable(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not a feed"))
	})

	_, err := newTestReader(5*time.Second).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrFeedUnparseable) {
		t.Fatalf("Expected ErrFeedUnparseable, got: %v", err)
	}
}

func TestReaderFetchEmpty(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emptyFeed))
	})

	_, err := newTestReader(5*time.Second).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrFeedEmpty) {
		t.Fatalf("Expected ErrFeedEmpty, got: %v", err)
	}
}

func TestReaderValidate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(testFeed)) })
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(emptyFeed)) })
	mux.HandleFunc("/garbage", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>")) })
	mux.HandleFunc("/missing", http.NotFound)

	server := httptest.NewServer(mux)
	defer server.Close()

	reader := newTestReader(5 * time.Second)

	tests := map[string]bool{
		"/ok":      true,
		"/empty":   true,
		"/garbage": false,
		"/missing": false,
	}

	for path, want := range tests {
		if got := reader.Validate(context.Background(), server.URL+path); got != want {
			t.Errorf("Validate(%s) = %v, want %v", path, got, want)
		}
	}
}

func newLeadImageServer(t *testing.T, pageHits *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item><title>Page</title><link>` + server.URL + `/article</link></item>
<item><title>Plain</title><link>` + server.URL + `/plain</link></item>
<item><title>Unused</title><link>` + server.URL + `/unused</link></item>
</channel></rss>`))
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		pageHits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><meta property="og:image" content="https://cdn.example.com/lead.jpg"></head>
<body><article><p>Long enough paragraph of article text for readability to consider it content.</p></article></body></html>`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		pageHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/unused", func(w http.ResponseWriter, r *http.Request) {
		pageHits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html></html>`))
	})

	return server
}

func TestReaderLeadImages(t *testing.T) {
	var pageHits atomic.Int32
	server := newLeadImageServer(t, &pageHits)

	reader := newTestReader(5 * time.Second).WithLeadImages(NewContentExtractor())

	items, err := reader.Fetch(context.Background(), server.URL+"/feed")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if hits := pageHits.Load(); hits != 0 {
		t.Errorf("Expected Fetch not to visit item pages, got %d page fetches", hits)
	}

	// The first item appears twice, as it does when the selector cycles
	selected := []Item{items[0], items[1], items[0]}
	selected = reader.ResolveLeadImages(context.Background(), selected)

	if selected[0].ImageURL != "https://cdn.example.com/lead.jpg" || selected[2].ImageURL != selected[0].ImageURL {
		t.Errorf("Expected lead image from article page, got %q and %q", selected[0].ImageURL, selected[2].ImageURL)
	}
	if selected[1].ImageURL != "" {
		t.Errorf("Expected no image for non-HTML page, got %q", selected[1].ImageURL)
	}
	if hits := pageHits.Load(); hits != 2 {
		t.Errorf("Expected one fetch per distinct selected link, got %d", hits)
	}
}

func TestReaderValidateSkipsItemPages(t *testing.T) {
	var pageHits atomic.Int32
	server := newLeadImageServer(t, &pageHits)

	reader := newTestReader(5 * time.Second).WithLeadImages(NewContentExtractor())

	if !reader.Validate(context.Background(), server.URL+"/feed") {
		t.Fatal("Expected feed to validate")
	}
	if hits := pageHits.Load(); hits != 0 {
		t.Errorf("Expected validation to fetch the feed only, got %d page fetches", hits)
	}
}

func TestReaderResolveLeadImagesDisabled(t *testing.T) {
	var pageHits atomic.Int32
	server := newLeadImageServer(t, &pageHits)

	items := []Item{{Title: "Page", Link: server.URL + "/article"}}
	items = newTestReader(5*time.Second).ResolveLeadImages(context.Background(), items)

	if items[0].ImageURL != "" || pageHits.Load() != 0 {
		t.Errorf("Expected no lookup without lead images enabled, got %q after %d fetches", items[0].ImageURL, pageHits.Load())
	}
}
