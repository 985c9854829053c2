package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var _ FeedRepositoryInterface = (*FeedRepository)(nil)

// FeedRepository handles database operations for rss_feeds rows.
type FeedRepository struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedRepository {
	return &FeedRepository{db: db}
}

const feedColumns = `id, user_id, url, title, description, site_url,
	last_fetched_at, last_error, error_count, is_active, created_at, updated_at`

func scanFeed(row interface{ Scan(...any) error }) (*Feed, error) {
	var feed Feed
	err := row.Scan(
		&feed.ID, &feed.UserID, &feed.URL, &feed.Title, &feed.Description, &feed.SiteURL,
		&feed.LastFetchedAt, &feed.LastError, &feed.ErrorCount, &feed.IsActive,
		&feed.CreatedAt, &feed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

func (r *FeedRepository) GetFeed(ctx context.Context, id string) (*Feed, error) {
	feed, err := scanFeed(r.db.QueryRowContext(ctx, `
		SELECT `+feedColumns+`
		FROM rss_feeds
		WHERE id = $1
	`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return feed, nil
}

func (r *FeedRepository) GetFeedsByUser(ctx context.Context, userID string) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+feedColumns+`
		FROM rss_feeds
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds for user: %w", err)
	}
	defer rows.Close()

	return collectFeeds(rows)
}

func (r *FeedRepository) GetActiveFeeds(ctx context.Context) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+feedColumns+`
		FROM rss_feeds
		WHERE is_active = 1
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active feeds: %w", err)
	}
	defer rows.Close()

	return collectFeeds(rows)
}

func collectFeeds(rows *sql.Rows) ([]Feed, error) {
	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

func (r *FeedRepository) GetFeedCountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM rss_feeds WHERE user_id = $1", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}

func (r *FeedRepository) CreateFeed(ctx context.Context, userID, url string, title, description, siteURL *string) (*Feed, error) {
	id := uuid.NewString()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rss_feeds (id, user_id, url, title, description, site_url)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, userID, url, title, description, siteURL)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateFeed
		}
		return nil, fmt.Errorf("failed to create feed: %w", err)
	}

	return r.GetFeed(ctx, id)
}

func (r *FeedRepository) DeleteFeed(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM rss_feeds WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete feed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check deleted rows: %w", err)
	}

	return affected > 0, nil
}

// SetFeedActive toggles a feed; reactivation clears the accumulated error
// state so the scheduled sync picks it up again.
func (r *FeedRepository) SetFeedActive(ctx context.Context, id, userID string, active bool) (bool, error) {
	var result sql.Result
	var err error

	if active {
		result, err = r.db.ExecContext(ctx, `
			UPDATE rss_feeds
			SET is_active = 1, error_count = 0, last_error = NULL, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1 AND user_id = $2
		`, id, userID)
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE rss_feeds
			SET is_active = 0, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1 AND user_id = $2
		`, id, userID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to set feed active status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check updated rows: %w", err)
	}

	return affected > 0, nil
}

// MarkSyncSuccess records a successful sync. Parsed metadata only replaces
// the stored values when non-nil, so a feed transiently missing fields keeps
// its existing title/description/site URL.
func (r *FeedRepository) MarkSyncSuccess(ctx context.Context, id string, fetchedAt time.Time, title, description, siteURL *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE rss_feeds
		SET last_fetched_at = $2,
		    last_error = NULL,
		    error_count = 0,
		    is_active = 1,
		    title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    site_url = COALESCE($5, site_url),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, id, fetchedAt.UTC(), title, description, siteURL)
	if err != nil {
		return fmt.Errorf("failed to record sync success: %w", err)
	}

	return nil
}

func (r *FeedRepository) MarkSyncFailure(ctx context.Context, id string, lastError string, errorCount int, active bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE rss_feeds
		SET last_error = $2,
		    error_count = $3,
		    is_active = $4,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, id, lastError, errorCount, active)
	if err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}

	return nil
}
