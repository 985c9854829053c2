package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/tomokif/linkvault/app/guard"
)

// ErrFeedParse covers feed-specific failures: unreachable feed URLs,
// non-2xx responses, and responses that are not valid RSS/Atom.
var ErrFeedParse = errors.New("feed parse failed")

const (
	defaultTimeout = 15 * time.Second
	acceptHeader   = "application/rss+xml, application/atom+xml, application/xml, text/xml"

	// Hard cap for stored item descriptions.
	maxDescriptionLen = 500

	maxBodySize = 10 << 20
)

// Parser fetches a feed URL and normalizes it into a Parsed. Every fetch
// passes URL validation and the SSRF host check first; feed fetches are
// never cached, change detection happens via the sync watermark instead.
type Parser struct {
	gofeedParser *gofeed.Parser
	hosts        HostChecker
	client       *http.Client
	userAgent    string
	timeout      time.Duration
}

func NewParser(hosts HostChecker, userAgent string) *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		hosts:        hosts,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		},
		userAgent: userAgent,
		timeout:   defaultTimeout,
	}
}

func (p *Parser) Run(ctx context.Context, feedURL string) (*Parsed, error) {
	u, err := guard.ValidateURL(feedURL)
	if err != nil {
		return nil, err
	}

	if err := p.hosts.ValidateHost(ctx, u.Hostname()); err != nil {
		return nil, err
	}

	data, err := p.fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}

	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedParse, err)
	}

	return p.normalize(parsed), nil
}

func (p *Parser) fetch(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedParse, err)
	}

	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedParse, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFeedParse, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedParse, err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrFeedParse)
	}

	return data, nil
}

func (p *Parser) normalize(f *gofeed.Feed) *Parsed {
	parsed := &Parsed{
		Title:       nilIfEmpty(f.Title),
		Description: nilIfEmpty(f.Description),
		SiteURL:     nilIfEmpty(f.Link),
	}

	parsed.Items = make([]ParsedItem, 0, len(f.Items))
	for _, item := range f.Items {
		if item.Link == "" {
			continue
		}

		normalized := ParsedItem{
			Title:       or(item.Title, item.Link),
			URL:         item.Link,
			Description: nilIfEmpty(truncate(plainText(or(item.Description, item.Content)), maxDescriptionLen)),
		}

		if item.PublishedParsed != nil {
			published := *item.PublishedParsed
			normalized.PublishedAt = &published
		}

		parsed.Items = append(parsed.Items, normalized)
	}

	return parsed
}

// plainText reduces an HTML fragment to readable text: tags become
// spaces, entities are decoded, and whitespace runs collapse.
func plainText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// or mirrors cmp.Or for strings; cmp.Or requires Go 1.22+.
func or(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
