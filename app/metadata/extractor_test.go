package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomokif/linkvault/app/cache"
	"github.com/tomokif/linkvault/app/guard"
	"github.com/tomokif/linkvault/app/limiter"
)

type hostChecker struct {
	forbidden map[string]bool
}

func (c *hostChecker) ValidateHost(ctx context.Context, hostname string) error {
	if c.forbidden[hostname] {
		return fmt.Errorf("%w: %s", guard.ErrForbiddenHost, hostname)
	}
	return nil
}

func allowAll() *hostChecker {
	return &hostChecker{forbidden: map[string]bool{}}
}

func newTestExtractor(hosts HostChecker) *Extractor {
	return NewExtractor(hosts,
		limiter.NewSlidingWindow(100, time.Minute),
		cache.New[*Metadata](500, time.Hour),
		"Mozilla/5.0 (test)")
}

const ogpPage = `<!DOCTYPE html>
<html>
<head>
  <title>Fallback Title</title>
  <meta property="og:title" content="OGP Title" />
  <meta property="og:description" content="OGP description text" />
  <meta property="og:image" content="/images/card.png" />
</head>
<body>content</body>
</html>`

func TestExtractor_Run(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ogpPage)
	}))
	defer server.Close()

	e := newTestExtractor(allowAll())

	meta, err := e.Run(context.Background(), server.URL+"/page", "1.2.3.4")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if meta.Title == nil || *meta.Title != "OGP Title" {
		t.Errorf("title = %v, want OGP Title", meta.Title)
	}
	if meta.Description == nil || *meta.Description != "OGP description text" {
		t.Errorf("description = %v", meta.Description)
	}
	if meta.Image == nil || *meta.Image != server.URL+"/images/card.png" {
		t.Errorf("image = %v, want resolved absolute URL", meta.Image)
	}
}

func TestExtractor_TitleFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title> Plain Title </title></head><body></body></html>`)
	}))
	defer server.Close()

	e := newTestExtractor(allowAll())

	meta, err := e.Run(context.Background(), server.URL, "1.2.3.4")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if meta.Title == nil || *meta.Title != "Plain Title" {
		t.Errorf("title = %v, want trimmed <title> fallback", meta.Title)
	}
	if meta.Description != nil {
		t.Errorf("description = %v, want nil", meta.Description)
	}
}

func TestExtractor_CacheAvoidsSecondFetch(t *testing.T) {
	var fetchCount atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetchCount.Add(1)
		fmt.Fprint(w, ogpPage)
	}))
	defer server.Close()

	e := newTestExtractor(allowAll())

	for i := 0; i < 2; i++ {
		if _, err := e.Run(context.Background(), server.URL+"/cached", "1.2.3.4"); err != nil {
			t.Fatalf("Run %d failed: %v", i+1, err)
		}
	}

	if got := fetchCount.Load(); got != 1 {
		t.Errorf("fetch count = %d, want 1 (second call served from cache)", got)
	}
}

func TestExtractor_RedirectToPrivateHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://internal.example.com/admin")
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	e := newTestExtractor(&hostChecker{forbidden: map[string]bool{"internal.example.com": true}})

	_, err := e.Run(context.Background(), server.URL, "1.2.3.4")
	if !errors.Is(err, guard.ErrForbiddenHost) {
		t.Errorf("redirect to private host = %v, want ErrForbiddenHost", err)
	}
}

func TestExtractor_RedirectNotFollowed(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Location", "https://elsewhere.example.com/moved")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer server.Close()

	e := newTestExtractor(allowAll())

	_, err := e.Run(context.Background(), server.URL, "1.2.3.4")
	if !errors.Is(err, ErrUpstreamFetch) {
		t.Errorf("redirect = %v, want ErrUpstreamFetch", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, redirect must not be followed", hits.Load())
	}
}

func TestExtractor_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	e := newTestExtractor(allowAll())

	_, err := e.Run(context.Background(), server.URL, "1.2.3.4")
	if !errors.Is(err, ErrUpstreamFetch) {
		t.Errorf("Run = %v, want ErrUpstreamFetch", err)
	}
}

func TestExtractor_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		fmt.Fprint(w, ogpPage)
	}))
	defer server.Close()

	e := newTestExtractor(allowAll())
	e.timeout = 50 * time.Millisecond

	_, err := e.Run(context.Background(), server.URL, "1.2.3.4")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Run = %v, want ErrTimeout", err)
	}
	if errors.Is(err, ErrUpstreamFetch) {
		t.Error("timeout must be distinct from generic upstream failure")
	}
}

func TestExtractor_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ogpPage)
	}))
	defer server.Close()

	e := NewExtractor(allowAll(),
		limiter.NewSlidingWindow(1, time.Minute),
		cache.New[*Metadata](500, time.Hour),
		"test")

	if _, err := e.Run(context.Background(), server.URL+"/a", "9.9.9.9"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	_, err := e.Run(context.Background(), server.URL+"/b", "9.9.9.9")
	if !errors.Is(err, limiter.ErrRateLimitExceeded) {
		t.Errorf("second call = %v, want ErrRateLimitExceeded", err)
	}
}

func TestExtractor_ExtractionFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head></head><body>nothing here</body></html>`)
	}))
	defer server.Close()

	e := newTestExtractor(allowAll())

	_, err := e.Run(context.Background(), server.URL, "1.2.3.4")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("Run = %v, want ErrExtraction", err)
	}
}

func TestExtractor_InvalidInput(t *testing.T) {
	e := newTestExtractor(allowAll())

	if _, err := e.Run(context.Background(), "", "1.2.3.4"); !errors.Is(err, guard.ErrInvalidURL) {
		t.Errorf("empty URL = %v, want ErrInvalidURL", err)
	}
	if _, err := e.Run(context.Background(), "ftp://example.com", "1.2.3.4"); !errors.Is(err, guard.ErrUnsupportedScheme) {
		t.Errorf("ftp URL = %v, want ErrUnsupportedScheme", err)
	}
}
