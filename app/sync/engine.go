// Package sync implements the feed synchronization engine: it fetches each
// active feed, filters items against the feed's last-fetch watermark,
// deduplicates against the user's existing bookmarks, inserts the remainder
// as new bookmarks, and maintains the feed's health counters.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tomokif/linkvault/app/database"
	"github.com/tomokif/linkvault/app/feed"
)

const (
	defaultBatchSize       = 5
	defaultDeactivateAfter = 3

	// Stored error messages are capped so a pathological upstream error
	// cannot bloat the feeds table.
	maxErrorMessageLen = 500
)

// FeedParser fetches and normalizes one feed URL.
type FeedParser interface {
	Run(ctx context.Context, feedURL string) (*feed.Parsed, error)
}

// Result summarizes one run over all active feeds.
type Result struct {
	Synced int `json:"synced"`
	Errors int `json:"errors"`
}

type Engine struct {
	parser    FeedParser
	feeds     database.FeedRepositoryInterface
	bookmarks database.BookmarkRepositoryInterface

	batchSize       int
	deactivateAfter int
	now             func() time.Time
}

func NewEngine(parser FeedParser, feeds database.FeedRepositoryInterface, bookmarks database.BookmarkRepositoryInterface, batchSize, deactivateAfter int) *Engine {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if deactivateAfter <= 0 {
		deactivateAfter = defaultDeactivateAfter
	}

	return &Engine{
		parser:          parser,
		feeds:           feeds,
		bookmarks:       bookmarks,
		batchSize:       batchSize,
		deactivateAfter: deactivateAfter,
		now:             time.Now,
	}
}

// SyncFeed fetches one feed and stores its new items as bookmarks,
// returning the number of bookmarks actually inserted. On success the
// feed's watermark advances and its error state resets.
func (e *Engine) SyncFeed(ctx context.Context, f *database.Feed) (int, error) {
	parsed, err := e.parser.Run(ctx, f.URL)
	if err != nil {
		return 0, err
	}

	items := filterNewItems(parsed.Items, f.LastFetchedAt)

	inserted := 0
	if len(items) > 0 {
		items, err = e.dedupe(ctx, f.UserID, items)
		if err != nil {
			return 0, err
		}

		if len(items) > 0 {
			bookmarks := make([]database.NewBookmark, 0, len(items))
			for _, item := range items {
				bookmarks = append(bookmarks, database.NewBookmark{
					UserID:      f.UserID,
					URL:         item.URL,
					Title:       item.Title,
					Description: item.Description,
					RSSFeedID:   f.ID,
				})
			}

			if err := e.bookmarks.InsertBookmarks(ctx, bookmarks); err != nil {
				return 0, fmt.Errorf("insert bookmarks: %w", err)
			}
			inserted = len(bookmarks)
		}
	}

	if err := e.feeds.MarkSyncSuccess(ctx, f.ID, e.now(), parsed.Title, parsed.Description, parsed.SiteURL); err != nil {
		return 0, fmt.Errorf("mark sync success: %w", err)
	}

	return inserted, nil
}

// RecordSyncError bumps the feed's consecutive error count, storing the
// error message, and deactivates the feed once the count reaches the
// threshold. Returns the new error count.
func (e *Engine) RecordSyncError(ctx context.Context, f *database.Feed, syncErr error) (int, error) {
	message := "Unknown error"
	if syncErr != nil && syncErr.Error() != "" {
		message = syncErr.Error()
	}
	if runes := []rune(message); len(runes) > maxErrorMessageLen {
		message = string(runes[:maxErrorMessageLen])
	}

	newCount := f.ErrorCount + 1
	active := newCount < e.deactivateAfter

	if err := e.feeds.MarkSyncFailure(ctx, f.ID, message, newCount, active); err != nil {
		return 0, fmt.Errorf("mark sync failure: %w", err)
	}

	if !active {
		slog.Warn("Feed deactivated after repeated sync failures", "feed_id", f.ID, "url", f.URL, "error_count", newCount)
	}

	return newCount, nil
}

// SyncAll syncs every active feed in concurrent batches. A failing feed
// gets its error recorded and counts toward Result.Errors; it never aborts
// the run.
func (e *Engine) SyncAll(ctx context.Context) (*Result, error) {
	feeds, err := e.feeds.GetActiveFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active feeds: %w", err)
	}

	result := &Result{}

	for start := 0; start < len(feeds); start += e.batchSize {
		end := min(start+e.batchSize, len(feeds))
		batch := feeds[start:end]

		errs := make([]error, len(batch))

		var wg sync.WaitGroup
		for i := range batch {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				inserted, err := e.SyncFeed(ctx, &batch[i])
				if err != nil {
					errs[i] = err
					return
				}
				slog.Debug("Feed synced", "feed_id", batch[i].ID, "url", batch[i].URL, "new_bookmarks", inserted)
			}(i)
		}
		wg.Wait()

		for i, syncErr := range errs {
			if syncErr == nil {
				result.Synced++
				continue
			}

			result.Errors++
			slog.Error("Feed sync failed", "feed_id", batch[i].ID, "url", batch[i].URL, "error", syncErr)
			if _, err := e.RecordSyncError(ctx, &batch[i], syncErr); err != nil {
				slog.Error("Failed to record feed sync error", "feed_id", batch[i].ID, "error", err)
			}
		}
	}

	slog.Info("Feed sync run completed", "total", len(feeds), "synced", result.Synced, "errors", result.Errors)

	return result, nil
}

// filterNewItems keeps items published strictly after the watermark. With
// no watermark (a feed never synced before) everything passes; with a
// watermark, items lacking a published timestamp are skipped since their
// novelty cannot be established.
func filterNewItems(items []feed.ParsedItem, lastFetchedAt *time.Time) []feed.ParsedItem {
	if lastFetchedAt == nil {
		return items
	}

	filtered := make([]feed.ParsedItem, 0, len(items))
	for _, item := range items {
		if item.PublishedAt != nil && item.PublishedAt.After(*lastFetchedAt) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// dedupe drops items whose URL the user already bookmarked, and collapses
// duplicate URLs within the batch itself.
func (e *Engine) dedupe(ctx context.Context, userID string, items []feed.ParsedItem) ([]feed.ParsedItem, error) {
	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.URL)
	}

	existing, err := e.bookmarks.GetExistingURLs(ctx, userID, urls)
	if err != nil {
		return nil, fmt.Errorf("get existing bookmark urls: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	deduped := make([]feed.ParsedItem, 0, len(items))
	for _, item := range items {
		if _, ok := existing[item.URL]; ok {
			continue
		}
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		deduped = append(deduped, item)
	}

	return deduped, nil
}
