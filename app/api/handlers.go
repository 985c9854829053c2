package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tomokif/linkvault/app/ai"
	"github.com/tomokif/linkvault/app/cfg"
	"github.com/tomokif/linkvault/app/database"
	"github.com/tomokif/linkvault/app/feed"
	"github.com/tomokif/linkvault/app/guard"
	"github.com/tomokif/linkvault/app/limiter"
	"github.com/tomokif/linkvault/app/metadata"
)

const defaultMaxFeedsPerUser = 50

func NewHandler(feedRepo database.FeedRepositoryInterface, extractor MetadataExtractorInterface,
	parser FeedParserInterface, engine SyncEngineInterface, aiService AIServiceInterface) *Handler {
	return &Handler{
		feedRepo:        feedRepo,
		extractor:       extractor,
		parser:          parser,
		engine:          engine,
		ai:              aiService,
		maxFeedsPerUser: defaultMaxFeedsPerUser,
	}
}

// statusFromError maps domain error kinds to HTTP status codes. Unknown
// errors fall through to 500.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, guard.ErrInvalidURL),
		errors.Is(err, guard.ErrUnsupportedScheme),
		errors.Is(err, guard.ErrForbiddenHost),
		errors.Is(err, guard.ErrHostResolutionFailed),
		errors.Is(err, ai.ErrEmptyInput),
		errors.Is(err, database.ErrDuplicateFeed):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrBookmarkNotFound):
		return http.StatusNotFound
	case errors.Is(err, metadata.ErrExtraction),
		errors.Is(err, ai.ErrNoContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, limiter.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, metadata.ErrUpstreamFetch),
		errors.Is(err, ai.ErrPageFetch),
		errors.Is(err, feed.ErrFeedParse):
		return http.StatusBadGateway
	case errors.Is(err, metadata.ErrTimeout),
		errors.Is(err, ai.ErrPageTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.GetVersion(),
	})
}

type extractMetadataRequest struct {
	URL string `json:"url"`
}

func (h *Handler) ExtractMetadata(c *gin.Context) {
	var req extractMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	meta, err := h.extractor.Run(c.Request.Context(), req.URL, c.ClientIP())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, meta)
}

func (h *Handler) ListFeeds(c *gin.Context) {
	userID := c.GetString(userIDKey)

	feeds, err := h.feedRepo.GetFeedsByUser(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

type createFeedRequest struct {
	URL string `json:"url"`
}

func (h *Handler) CreateFeed(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var req createFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	count, err := h.feedRepo.GetFeedCountByUser(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Database error", "operation", "count_feeds", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if count >= h.maxFeedsPerUser {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Feed limit reached"})
		return
	}

	// The URL must be a working feed before it is registered; this also
	// yields its metadata for the new row.
	parsed, err := h.parser.Run(c.Request.Context(), req.URL)
	if err != nil {
		abortWithError(c, err)
		return
	}

	created, err := h.feedRepo.CreateFeed(c.Request.Context(), userID, req.URL, parsed.Title, parsed.Description, parsed.SiteURL)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) DeleteFeed(c *gin.Context) {
	userID := c.GetString(userIDKey)
	id := c.Param("id")

	deleted, err := h.feedRepo.DeleteFeed(c.Request.Context(), id, userID)
	if err != nil {
		slog.Error("Database error", "operation", "delete_feed", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ToggleFeed(c *gin.Context) {
	userID := c.GetString(userIDKey)
	id := c.Param("id")

	f := h.getOwnedFeed(c, id, userID)
	if f == nil {
		return
	}

	active := !f.IsActive
	if _, err := h.feedRepo.SetFeedActive(c.Request.Context(), id, userID, active); err != nil {
		slog.Error("Database error", "operation", "toggle_feed", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": active})
}

func (h *Handler) SyncFeed(c *gin.Context) {
	userID := c.GetString(userIDKey)
	id := c.Param("id")

	f := h.getOwnedFeed(c, id, userID)
	if f == nil {
		return
	}

	inserted, err := h.engine.SyncFeed(c.Request.Context(), f)
	if err != nil {
		if _, recordErr := h.engine.RecordSyncError(c.Request.Context(), f, err); recordErr != nil {
			slog.Error("Failed to record feed sync error", "feed_id", id, "error", recordErr)
		}
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":            id,
		"new_bookmarks": inserted,
	})
}

func (h *Handler) SyncAllFeeds(c *gin.Context) {
	result, err := h.engine.SyncAll(c.Request.Context())
	if err != nil {
		slog.Error("Batch feed sync failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sync failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

type summarizeRequest struct {
	BookmarkID string `json:"bookmark_id"`
}

func (h *Handler) Summarize(c *gin.Context) {
	if h.ai == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI features are not configured"})
		return
	}

	userID := c.GetString(userIDKey)

	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BookmarkID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bookmark_id is required"})
		return
	}

	summary, cached, err := h.ai.Summarize(c.Request.Context(), userID, req.BookmarkID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
		"cached":  cached,
	})
}

type suggestTagsRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ExistingTags []string `json:"existing_tags"`
}

func (h *Handler) SuggestTags(c *gin.Context) {
	if h.ai == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI features are not configured"})
		return
	}

	userID := c.GetString(userIDKey)

	var req suggestTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	suggestions, err := h.ai.SuggestTags(c.Request.Context(), userID, req.Title, req.Description, req.ExistingTags)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// getOwnedFeed loads a feed and enforces ownership, writing the error
// response itself. A foreign feed is reported as not found.
func (h *Handler) getOwnedFeed(c *gin.Context, id, userID string) *database.Feed {
	f, err := h.feedRepo.GetFeed(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil
	}
	if f == nil || f.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return nil
	}
	return f
}
