package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomokif/linkvault/app/guard"
)

type allowAllHosts struct{}

func (allowAllHosts) ValidateHost(ctx context.Context, hostname string) error {
	return nil
}

type denyAllHosts struct{}

func (denyAllHosts) ValidateHost(ctx context.Context, hostname string) error {
	return guard.ErrForbiddenHost
}

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Blog</title>
    <link>https://blog.example.com</link>
    <description>A blog about examples</description>
    <item>
      <title>First Post</title>
      <link>https://blog.example.com/first</link>
      <description>Short description</description>
      <pubDate>Mon, 05 Jan 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <link>https://blog.example.com/untitled</link>
      <description>Entry with no title</description>
    </item>
    <item>
      <title>No Link Here</title>
      <description>This entry has no link and is unusable</description>
    </item>
    <item>
      <title>Long One</title>
      <link>https://blog.example.com/long</link>
      <description>%s</description>
      <pubDate>Sat, 10 Jan 2026 08:30:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
}

func TestParser_Run(t *testing.T) {
	longDescription := strings.Repeat("x", 600)
	server := serveFeed(t, fmt.Sprintf(rssFixture, longDescription))
	defer server.Close()

	parser := NewParser(allowAllHosts{}, "LinkVault RSS Reader/1.0")

	parsed, err := parser.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if parsed.Title == nil || *parsed.Title != "Example Blog" {
		t.Errorf("feed title = %v, want Example Blog", parsed.Title)
	}
	if parsed.SiteURL == nil || *parsed.SiteURL != "https://blog.example.com" {
		t.Errorf("site URL = %v, want https://blog.example.com", parsed.SiteURL)
	}

	// The entry without a link must be dropped.
	if len(parsed.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(parsed.Items))
	}

	first := parsed.Items[0]
	if first.Title != "First Post" || first.URL != "https://blog.example.com/first" {
		t.Errorf("unexpected first item: %+v", first)
	}
	if first.PublishedAt == nil {
		t.Error("first item should have a published timestamp")
	} else {
		want := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
		if !first.PublishedAt.Equal(want) {
			t.Errorf("published at = %v, want %v", first.PublishedAt, want)
		}
	}

	untitled := parsed.Items[1]
	if untitled.Title != "https://blog.example.com/untitled" {
		t.Errorf("missing title should fall back to the link, got %q", untitled.Title)
	}
	if untitled.PublishedAt != nil {
		t.Errorf("missing pubDate should yield nil, got %v", untitled.PublishedAt)
	}

	long := parsed.Items[2]
	if long.Description == nil {
		t.Fatal("long item should have a description")
	}
	if got := len([]rune(*long.Description)); got != 500 {
		t.Errorf("description length = %d, want exactly 500", got)
	}
}

func TestParser_Run_HTMLDescription(t *testing.T) {
	const fixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Markup Blog</title>
    <link>https://blog.example.com</link>
    <item>
      <title>Rich Entry</title>
      <link>https://blog.example.com/rich</link>
      <description><![CDATA[<p>Hello <b>world</b> &amp; friends</p>]]></description>
    </item>
  </channel>
</rss>`
	server := serveFeed(t, fixture)
	defer server.Close()

	parser := NewParser(allowAllHosts{}, "test")

	parsed, err := parser.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(parsed.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(parsed.Items))
	}

	desc := parsed.Items[0].Description
	if desc == nil {
		t.Fatal("item should have a description")
	}
	if *desc != "Hello world & friends" {
		t.Errorf("description = %q, want plain text without markup", *desc)
	}
}

func TestParser_Run_InvalidURL(t *testing.T) {
	parser := NewParser(allowAllHosts{}, "test")

	if _, err := parser.Run(context.Background(), ""); !errors.Is(err, guard.ErrInvalidURL) {
		t.Errorf("empty URL = %v, want ErrInvalidURL", err)
	}
	if _, err := parser.Run(context.Background(), "ftp://example.com/feed"); !errors.Is(err, guard.ErrUnsupportedScheme) {
		t.Errorf("ftp URL = %v, want ErrUnsupportedScheme", err)
	}
}

func TestParser_Run_ForbiddenHost(t *testing.T) {
	server := serveFeed(t, fmt.Sprintf(rssFixture, "d"))
	defer server.Close()

	parser := NewParser(denyAllHosts{}, "test")

	_, err := parser.Run(context.Background(), server.URL)
	if !errors.Is(err, guard.ErrForbiddenHost) {
		t.Errorf("Run = %v, want ErrForbiddenHost", err)
	}
}

func TestParser_Run_InvalidXML(t *testing.T) {
	server := serveFeed(t, "<html><body>not a feed</body></html>")
	defer server.Close()

	parser := NewParser(allowAllHosts{}, "test")

	_, err := parser.Run(context.Background(), server.URL)
	if !errors.Is(err, ErrFeedParse) {
		t.Errorf("Run = %v, want ErrFeedParse", err)
	}
}

func TestParser_Run_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	parser := NewParser(allowAllHosts{}, "test")

	_, err := parser.Run(context.Background(), server.URL)
	if !errors.Is(err, ErrFeedParse) {
		t.Errorf("Run = %v, want ErrFeedParse", err)
	}
}

func TestParser_SendsFeedHeaders(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		fmt.Fprint(w, fmt.Sprintf(rssFixture, "d"))
	}))
	defer server.Close()

	parser := NewParser(allowAllHosts{}, "LinkVault RSS Reader/1.0")
	if _, err := parser.Run(context.Background(), server.URL); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if gotUA != "LinkVault RSS Reader/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if !strings.Contains(gotAccept, "application/rss+xml") {
		t.Errorf("Accept = %q, want RSS/Atom media types", gotAccept)
	}
}
