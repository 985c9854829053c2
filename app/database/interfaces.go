package database

import (
	"context"
	"time"
)

type FeedRepositoryInterface interface {
	GetFeed(ctx context.Context, id string) (*Feed, error)
	GetFeedsByUser(ctx context.Context, userID string) ([]Feed, error)
	GetActiveFeeds(ctx context.Context) ([]Feed, error)
	GetFeedCountByUser(ctx context.Context, userID string) (int, error)

	CreateFeed(ctx context.Context, userID, url string, title, description, siteURL *string) (*Feed, error)
	DeleteFeed(ctx context.Context, id, userID string) (bool, error)
	SetFeedActive(ctx context.Context, id, userID string, active bool) (bool, error)

	MarkSyncSuccess(ctx context.Context, id string, fetchedAt time.Time, title, description, siteURL *string) error
	MarkSyncFailure(ctx context.Context, id string, lastError string, errorCount int, active bool) error
}

type BookmarkRepositoryInterface interface {
	GetBookmark(ctx context.Context, id, userID string) (*Bookmark, error)
	GetExistingURLs(ctx context.Context, userID string, urls []string) (map[string]struct{}, error)
	InsertBookmarks(ctx context.Context, bookmarks []NewBookmark) error
	SetSummary(ctx context.Context, id, summary string) error
}
