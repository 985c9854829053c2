package api

import (
	"context"

	"github.com/tomokif/linkvault/app/ai"
	"github.com/tomokif/linkvault/app/database"
	"github.com/tomokif/linkvault/app/feed"
	"github.com/tomokif/linkvault/app/metadata"
	feedsync "github.com/tomokif/linkvault/app/sync"
)

type MetadataExtractorInterface interface {
	Run(ctx context.Context, rawURL, clientIP string) (*metadata.Metadata, error)
}

type FeedParserInterface interface {
	Run(ctx context.Context, feedURL string) (*feed.Parsed, error)
}

type SyncEngineInterface interface {
	SyncFeed(ctx context.Context, f *database.Feed) (int, error)
	RecordSyncError(ctx context.Context, f *database.Feed, syncErr error) (int, error)
	SyncAll(ctx context.Context) (*feedsync.Result, error)
}

type AIServiceInterface interface {
	Summarize(ctx context.Context, userID, bookmarkID string) (string, bool, error)
	SuggestTags(ctx context.Context, userID, title, description string, existingTags []string) ([]ai.TagSuggestion, error)
}

var _ MetadataExtractorInterface = (*metadata.Extractor)(nil)
var _ FeedParserInterface = (*feed.Parser)(nil)
var _ SyncEngineInterface = (*feedsync.Engine)(nil)
var _ AIServiceInterface = (*ai.Service)(nil)

type Handler struct {
	feedRepo  database.FeedRepositoryInterface
	extractor MetadataExtractorInterface
	parser    FeedParserInterface
	engine    SyncEngineInterface
	// ai is nil when no API key is configured; the AI endpoints then
	// answer 503.
	ai AIServiceInterface

	maxFeedsPerUser int
}
