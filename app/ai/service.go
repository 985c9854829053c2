// Package ai implements the summarize and suggest-tags services on top of
// an opaque text-completion boundary. Summaries are persisted on the
// bookmark and served from there on repeat requests.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/tomokif/linkvault/app/database"
	"github.com/tomokif/linkvault/app/guard"
	"github.com/tomokif/linkvault/app/limiter"
)

var (
	ErrBookmarkNotFound = errors.New("bookmark not found")
	ErrNoContent        = errors.New("not enough text content to summarize")
	ErrEmptyInput       = errors.New("title or description is required")
	ErrPageFetch        = errors.New("page fetch failed")
	ErrPageTimeout      = errors.New("page fetch timed out")
)

const (
	pageFetchTimeout = 10 * time.Second
	maxPageBodySize  = 5 << 20
	maxRedirects     = 10

	// The extracted page text is capped before prompting; pages below the
	// minimum carry too little signal for a useful summary.
	maxSummaryInputLen = 4000
	minSummaryInputLen = 50
)

type HostChecker interface {
	ValidateHost(ctx context.Context, hostname string) error
}

// TagSuggestion is one proposed tag. IsExisting marks a case-insensitive
// match against the user's current tags.
type TagSuggestion struct {
	Name       string `json:"name"`
	IsExisting bool   `json:"is_existing"`
}

// Service runs the AI-backed operations. Unlike the metadata extractor it
// follows redirects when fetching pages, but every hop's host passes the
// SSRF check first.
type Service struct {
	completer Completer
	limiter   *limiter.ActionLimiter
	bookmarks database.BookmarkRepositoryInterface
	hosts     HostChecker
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func NewService(completer Completer, lim *limiter.ActionLimiter, bookmarks database.BookmarkRepositoryInterface, hosts HostChecker, userAgent string) *Service {
	return &Service{
		completer: completer,
		limiter:   lim,
		bookmarks: bookmarks,
		hosts:     hosts,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return hosts.ValidateHost(req.Context(), req.URL.Hostname())
			},
		},
		userAgent: userAgent,
		timeout:   pageFetchTimeout,
	}
}

// Summarize returns a model-written summary of the bookmarked page. The
// second return value reports whether a previously stored summary was
// served instead of fetching and summarizing again.
func (s *Service) Summarize(ctx context.Context, userID, bookmarkID string) (string, bool, error) {
	if err := s.limiter.Check(userID, "summarize"); err != nil {
		return "", false, err
	}

	bookmark, err := s.bookmarks.GetBookmark(ctx, bookmarkID, userID)
	if err != nil {
		return "", false, fmt.Errorf("get bookmark: %w", err)
	}
	if bookmark == nil {
		return "", false, fmt.Errorf("%w: %s", ErrBookmarkNotFound, bookmarkID)
	}

	if bookmark.Summary != nil && *bookmark.Summary != "" {
		return *bookmark.Summary, true, nil
	}

	u, err := guard.ValidateURL(bookmark.URL)
	if err != nil {
		return "", false, err
	}
	if err := s.hosts.ValidateHost(ctx, u.Hostname()); err != nil {
		return "", false, err
	}

	html, err := s.fetchPage(ctx, u.String())
	if err != nil {
		return "", false, err
	}

	text := extractText(html)
	if len([]rune(text)) < minSummaryInputLen {
		return "", false, ErrNoContent
	}

	prompt := fmt.Sprintf("Summarize the following web page content in 2-3 sentences. Keep the summary concise and informative.\n\n%s", text)

	summary, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", false, err
	}
	summary = strings.TrimSpace(summary)

	if err := s.bookmarks.SetSummary(ctx, bookmarkID, summary); err != nil {
		return "", false, fmt.Errorf("store summary: %w", err)
	}

	return summary, false, nil
}

// SuggestTags proposes 3-5 tags for a page from its title and description,
// preferring reuse of the user's existing tags.
func (s *Service) SuggestTags(ctx context.Context, userID, title, description string, existingTags []string) ([]TagSuggestion, error) {
	if title == "" && description == "" {
		return nil, ErrEmptyInput
	}

	if err := s.limiter.Check(userID, "suggest-tags"); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Suggest 3-5 tags suitable for organizing a bookmark of the following web page. Keep tag names short (1-3 words).\n")
	if len(existingTags) > 0 {
		fmt.Fprintf(&b, "\nThe user's existing tags: %s\nPrefer reusing existing tags where they fit; suggest new ones as needed.\n", strings.Join(existingTags, ", "))
	}
	fmt.Fprintf(&b, "\nTitle: %s\nDescription: %s\n", orNone(title), orNone(description))
	b.WriteString("\nAnswer with a JSON array only, no explanation:\n[{\"name\": \"tag name\"}, ...]")

	reply, err := s.completer.Complete(ctx, b.String())
	if err != nil {
		return nil, err
	}

	return parseTagSuggestions(reply, existingTags), nil
}

func (s *Service) fetchPage(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageFetch, err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		// A redirect into a private network surfaces through CheckRedirect.
		if errors.Is(err, guard.ErrForbiddenHost) {
			return nil, err
		}
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrPageTimeout, url)
		}
		return nil, fmt.Errorf("%w: %v", ErrPageFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrPageFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBodySize))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrPageTimeout, url)
		}
		return nil, fmt.Errorf("%w: %v", ErrPageFetch, err)
	}

	return body, nil
}

// extractText reduces an HTML page to readable plain text, collapsed to
// single spaces and capped for prompting.
func extractText(html []byte) string {
	var text string
	if article, err := readability.FromReader(bytes.NewReader(html), nil); err == nil {
		text = article.TextContent
	}
	if text == "" {
		text = stripTags(string(html))
	}

	text = strings.Join(strings.Fields(text), " ")

	if runes := []rune(text); len(runes) > maxSummaryInputLen {
		text = string(runes[:maxSummaryInputLen])
	}
	return text
}

// stripTags is the crude fallback for pages where readability finds no
// article body: drop script/style blocks, then everything in angle brackets.
func stripTags(html string) string {
	for _, tag := range []string{"script", "style"} {
		for {
			lower := strings.ToLower(html)
			start := strings.Index(lower, "<"+tag)
			if start < 0 {
				break
			}
			end := strings.Index(lower[start:], "</"+tag+">")
			if end < 0 {
				html = html[:start]
				break
			}
			html = html[:start] + " " + html[start+end+len(tag)+3:]
		}
	}

	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseTagSuggestions(reply string, existingTags []string) []TagSuggestion {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return []TagSuggestion{}
	}

	var parsed []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &parsed); err != nil {
		return []TagSuggestion{}
	}

	existing := make(map[string]struct{}, len(existingTags))
	for _, tag := range existingTags {
		existing[strings.ToLower(tag)] = struct{}{}
	}

	suggestions := make([]TagSuggestion, 0, len(parsed))
	for _, item := range parsed {
		if item.Name == "" {
			continue
		}
		_, isExisting := existing[strings.ToLower(item.Name)]
		suggestions = append(suggestions, TagSuggestion{Name: item.Name, IsExisting: isExisting})
	}
	return suggestions
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
