package database

import (
	"time"
)

// Feed is a user's registered RSS/Atom feed. IsActive flips to false when
// ErrorCount reaches the deactivation threshold via consecutive sync
// failures; a successful sync or an explicit reactivation resets both.
type Feed struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	URL           string     `json:"url"`
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	SiteURL       *string    `json:"site_url"`
	LastFetchedAt *time.Time `json:"last_fetched_at"`
	LastError     *string    `json:"last_error"`
	ErrorCount    int        `json:"error_count"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Bookmark struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Summary     *string   `json:"summary"`
	RSSFeedID   *string   `json:"rss_feed_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewBookmark is an insert-only row produced by the feed sync engine.
type NewBookmark struct {
	UserID      string
	URL         string
	Title       string
	Description *string
	RSSFeedID   string
}
