package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var _ BookmarkRepositoryInterface = (*BookmarkRepository)(nil)

// BookmarkRepository handles database operations for bookmarks rows. The
// sync engine only ever inserts; it never mutates or deletes bookmarks.
type BookmarkRepository struct {
	db *DB
}

func NewBookmarkRepository(db *DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

func (r *BookmarkRepository) GetBookmark(ctx context.Context, id, userID string) (*Bookmark, error) {
	var b Bookmark
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, url, title, description, summary, rss_feed_id, created_at
		FROM bookmarks
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&b.ID, &b.UserID, &b.URL, &b.Title, &b.Description, &b.Summary, &b.RSSFeedID, &b.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}

	return &b, nil
}

// GetExistingURLs returns which of the given URLs the user already has
// bookmarked. Used by the sync engine for dedup before insertion.
func (r *BookmarkRepository) GetExistingURLs(ctx context.Context, userID string, urls []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(urls) == 0 {
		return existing, nil
	}

	placeholders := make([]string, len(urls))
	args := make([]any, 0, len(urls)+1)
	args = append(args, userID)
	for i, url := range urls {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, url)
	}

	query := `SELECT url FROM bookmarks WHERE user_id = $1 AND url IN (` +
		strings.Join(placeholders, ", ") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing bookmark URLs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark URL: %w", err)
		}
		existing[url] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookmark URLs: %w", err)
	}

	return existing, nil
}

// InsertBookmarks inserts the given rows in one statement.
func (r *BookmarkRepository) InsertBookmarks(ctx context.Context, bookmarks []NewBookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}

	values := make([]string, len(bookmarks))
	args := make([]any, 0, len(bookmarks)*6)
	for i, b := range bookmarks {
		base := i * 6
		values[i] = fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, uuid.NewString(), b.UserID, b.URL, b.Title, b.Description, b.RSSFeedID)
	}

	query := `INSERT INTO bookmarks (id, user_id, url, title, description, rss_feed_id) VALUES ` +
		strings.Join(values, ", ")

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert bookmarks: %w", err)
	}

	return nil
}

func (r *BookmarkRepository) SetSummary(ctx context.Context, id, summary string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE bookmarks SET summary = $2 WHERE id = $1", id, summary)
	if err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}

	return nil
}
