package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lysyi3m/story-comb/app/database"
	"github.com/lysyi3m/story-comb/app/story"
)

const testKey = "secret"

type MockUpdateService struct {
	status     *story.ProcessingStatus
	configured map[string]story.FeedConfig
	disabled   []string
	deleted    []string
	err        error
}

func (m *MockUpdateService) ValidateFeedURL(ctx context.Context, feedURL string) bool {
	return strings.HasSuffix(feedURL, ".xml")
}

func (m *MockUpdateService) GetProcessingStatus(ctx context.Context, storyID string) (*story.ProcessingStatus, error) {
	return m.status, m.err
}

func (m *MockUpdateService) ConfigureFeed(ctx context.Context, storyID string, config story.FeedConfig) error {
	if m.err != nil {
		return m.err
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if m.configured == nil {
		m.configured = make(map[string]story.FeedConfig)
	}
	m.configured[storyID] = config
	return nil
}

func (m *MockUpdateService) DisableFeed(ctx context.Context, storyID string) error {
	m.disabled = append(m.disabled, storyID)
	return m.err
}

func (m *MockUpdateService) TriggerImmediateUpdate(ctx context.Context, storyID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "job-1", nil
}

func (m *MockUpdateService) QueueStats(ctx context.Context) (database.JobStats, error) {
	return database.JobStats{Waiting: 2, Active: 1}, m.err
}

func (m *MockUpdateService) DeleteStory(ctx context.Context, storyID string) error {
	m.deleted = append(m.deleted, storyID)
	return m.err
}

func doRequest(t *testing.T, service *MockUpdateService, method, path, body string, withKey bool) *httptest.ResponseRecorder {
	t.Helper()

	router := NewServer(NewHandler(service), testKey)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if withKey {
		req.Header.Set("X-API-Key", testKey)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	service := &MockUpdateService{}

	if w := doRequest(t, service, "GET", "/api/queue/stats", "", false); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}

	router := NewServer(NewHandler(service), testKey)
	req := httptest.NewRequest("GET", "/api/queue/stats", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer key, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/queue/stats", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	router := NewServer(NewHandler(&MockUpdateService{}), "")

	req := httptest.NewRequest("GET", "/api/queue/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when API is disabled, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	w := doRequest(t, &MockUpdateService{}, "GET", "/health", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["queue"]; !ok {
		t.Errorf("Expected queue stats in health, got %v", body)
	}
}

func TestValidateFeed(t *testing.T) {
	w := doRequest(t, &MockUpdateService{}, "POST", "/api/feeds/validate", `{"feed_url":"https://example.com/feed.xml"}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"valid":true`) {
		t.Errorf("Expected valid feed, got %s", w.Body.String())
	}

	w = doRequest(t, &MockUpdateService{}, "POST", "/api/feeds/validate", `{}`, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing URL, got %d", w.Code)
	}
}

func TestGetStatus(t *testing.T) {
	w := doRequest(t, &MockUpdateService{}, "GET", "/api/stories/s1/status", "", true)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without status, got %d", w.Code)
	}

	status := story.Completed("s1", 10, 10, "done")
	w = doRequest(t, &MockUpdateService{status: &status}, "GET", "/api/stories/s1/status", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var got story.ProcessingStatus
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Phase != story.PhaseCompleted || got.TotalFrames == nil || *got.TotalFrames != 10 {
		t.Errorf("Unexpected status: %+v", got)
	}
	if !strings.Contains(w.Body.String(), `"storyId":"s1"`) {
		t.Errorf("Expected wire field storyId, got %s", w.Body.String())
	}
}

func TestConfigureFeed(t *testing.T) {
	service := &MockUpdateService{}

	w := doRequest(t, service, "PUT", "/api/stories/s1/feed",
		`{"feed_url":"https://example.com/feed.xml","update_interval_minutes":15,"max_items":5}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	config := service.configured["s1"]
	if !config.IsActive || config.MaxItems != 5 {
		t.Errorf("Expected active config with 5 items, got %+v", config)
	}

	w = doRequest(t, service, "PUT", "/api/stories/s1/feed",
		`{"feed_url":"https://example.com/feed.xml","update_interval_minutes":1,"max_items":5}`, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid config, got %d", w.Code)
	}
}

func TestRefreshStory(t *testing.T) {
	w := doRequest(t, &MockUpdateService{}, "POST", "/api/stories/s1/refresh", "", true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "job-1") {
		t.Errorf("Expected job id in response, got %s", w.Body.String())
	}

	tests := map[error]int{
		story.ErrStoryGone:            http.StatusNotFound,
		story.ErrStoryInactive:        http.StatusConflict,
		story.ErrStoryIneligible:      http.StatusConflict,
		story.ErrSchedulerUnavailable: http.StatusServiceUnavailable,
	}
	for err, code := range tests {
		w := doRequest(t, &MockUpdateService{err: err}, "POST", "/api/stories/s1/refresh", "", true)
		if w.Code != code {
			t.Errorf("%v: expected %d, got %d", err, code, w.Code)
		}
	}
}

func TestDisableFeedAndDeleteStory(t *testing.T) {
	service := &MockUpdateService{}

	if w := doRequest(t, service, "DELETE", "/api/stories/s1/feed", "", true); w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if len(service.disabled) != 1 || service.disabled[0] != "s1" {
		t.Errorf("Expected s1 to be disabled, got %v", service.disabled)
	}

	if w := doRequest(t, service, "DELETE", "/api/stories/s1", "", true); w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	if len(service.deleted) != 1 {
		t.Errorf("Expected s1 to be deleted, got %v", service.deleted)
	}
}

func TestQueueStats(t *testing.T) {
	w := doRequest(t, &MockUpdateService{}, "GET", "/api/queue/stats", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var stats database.JobStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Waiting != 2 || stats.Active != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
