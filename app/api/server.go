package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// NewServer creates the HTTP server with all routes configured
func NewServer(handler *Handler, cronSecret string) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-User-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Routes
	setupRoutes(r, handler, cronSecret)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, cronSecret string) {
	r.GET("/health", handler.GetHealth)

	api := r.Group("/api")

	// Anonymous, IP rate-limited inside the extractor.
	api.POST("/ogp", handler.ExtractMetadata)

	// Batch sync is triggered by an external cron with a shared secret.
	api.POST("/sync", cronAuthMiddleware(cronSecret), handler.SyncAllFeeds)

	// User-scoped endpoints. Authentication happens upstream; the session
	// provider forwards the verified identity as X-User-ID.
	user := api.Group("", userIdentityMiddleware())
	{
		user.GET("/feeds", handler.ListFeeds)
		user.POST("/feeds", handler.CreateFeed)
		user.DELETE("/feeds/:id", handler.DeleteFeed)
		user.PATCH("/feeds/:id/toggle", handler.ToggleFeed)
		user.POST("/feeds/:id/sync", handler.SyncFeed)

		user.POST("/ai/summarize", handler.Summarize)
		user.POST("/ai/suggest-tags", handler.SuggestTags)
	}

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// userIdentityMiddleware requires the forwarded user identity header.
func userIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Provide the user identity in the X-User-ID header",
			})
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// cronAuthMiddleware guards the batch sync endpoint with a shared secret.
// With no secret configured the endpoint is disabled entirely.
func cronAuthMiddleware(cronSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cronSecret == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint disabled"})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		providedSecret := strings.TrimPrefix(authHeader, "Bearer ")

		if providedSecret == "" || providedSecret != cronSecret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid sync secret"})
			c.Abort()
			return
		}

		c.Next()
	}
}
