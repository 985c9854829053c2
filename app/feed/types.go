package feed

import (
	"context"
	"time"
)

// Parsed is a fetched feed normalized for the sync engine. Metadata fields
// are nil when the feed does not provide them so existing stored values can
// be preserved.
type Parsed struct {
	Title       *string
	Description *string
	SiteURL     *string
	Items       []ParsedItem
}

// ParsedItem is a feed entry usable for bookmark creation. Entries without
// a link are dropped during normalization.
type ParsedItem struct {
	Title       string
	URL         string
	Description *string
	PublishedAt *time.Time
}

// HostChecker is the SSRF gate consulted before any feed fetch.
type HostChecker interface {
	ValidateHost(ctx context.Context, hostname string) error
}
