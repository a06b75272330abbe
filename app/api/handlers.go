package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/story-comb/app/story"
)

func NewHandler(service UpdateService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if stats, err := h.service.QueueStats(c.Request.Context()); err == nil {
		health["queue"] = stats
	} else {
		health["queue_error"] = err.Error()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIValidateFeed(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed_url"})
		return
	}

	valid := h.service.ValidateFeedURL(c.Request.Context(), req.FeedURL)

	c.JSON(http.StatusOK, gin.H{
		"feed_url": req.FeedURL,
		"valid":    valid,
	})
}

func (h *Handler) APIGetStatus(c *gin.Context) {
	id := c.Param("id")

	status, err := h.service.GetProcessingStatus(c.Request.Context(), id)
	if err != nil {
		slog.Error("Status store error", "operation", "get_status", "story_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Status store error"})
		return
	}

	if status == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No recent processing status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) APIConfigureFeed(c *gin.Context) {
	id := c.Param("id")

	var req feedConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	if err := h.service.ConfigureFeed(c.Request.Context(), id, req.toFeedConfig()); err != nil {
		respondError(c, "configure_feed", id, err)
		return
	}

	slog.Info("Feed configured via API", "story_id", id, "feed", req.FeedURL)

	c.JSON(http.StatusOK, gin.H{
		"story_id": id,
		"message":  "Feed configuration saved",
	})
}

func (h *Handler) APIDisableFeed(c *gin.Context) {
	id := c.Param("id")

	if err := h.service.DisableFeed(c.Request.Context(), id); err != nil {
		respondError(c, "disable_feed", id, err)
		return
	}

	slog.Info("Feed disabled via API", "story_id", id)

	c.JSON(http.StatusOK, gin.H{
		"story_id": id,
		"message":  "Feed updates cancelled",
	})
}

func (h *Handler) APIRefreshStory(c *gin.Context) {
	id := c.Param("id")

	jobID, err := h.service.TriggerImmediateUpdate(c.Request.Context(), id)
	if err != nil {
		respondError(c, "refresh_story", id, err)
		return
	}

	slog.Info("Refresh triggered via API", "story_id", id, "job_id", jobID)

	c.JSON(http.StatusAccepted, gin.H{
		"story_id": id,
		"job_id":   jobID,
		"message":  "Refresh queued",
	})
}

func (h *Handler) APIDeleteStory(c *gin.Context) {
	id := c.Param("id")

	if err := h.service.DeleteStory(c.Request.Context(), id); err != nil {
		respondError(c, "delete_story", id, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) APIQueueStats(c *gin.Context) {
	stats, err := h.service.QueueStats(c.Request.Context())
	if err != nil {
		respondError(c, "queue_stats", "", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func respondError(c *gin.Context, operation, storyID string, err error) {
	code := http.StatusInternalServerError

	switch {
	case errors.Is(err, story.ErrInvalidFeedConfig):
		code = http.StatusBadRequest
	case errors.Is(err, story.ErrStoryGone):
		code = http.StatusNotFound
	case errors.Is(err, story.ErrStoryIneligible), errors.Is(err, story.ErrStoryInactive):
		code = http.StatusConflict
	case errors.Is(err, story.ErrSchedulerUnavailable):
		code = http.StatusServiceUnavailable
	}

	if code >= http.StatusInternalServerError {
		slog.Error("API request failed", "operation", operation, "story_id", storyID, "error", err)
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
