// Package metadata implements the OGP metadata extractor: a rate-limited,
// SSRF-guarded, cached fetch of a user-supplied page URL followed by
// best-effort scraping of title/description/image from the HTML.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tomokif/linkvault/app/cache"
	"github.com/tomokif/linkvault/app/guard"
	"github.com/tomokif/linkvault/app/limiter"
)

var (
	ErrUpstreamFetch = errors.New("upstream fetch failed")
	ErrTimeout       = errors.New("fetch timed out")
	ErrExtraction    = errors.New("metadata extraction failed")
)

const (
	defaultTimeout = 10 * time.Second

	maxBodySize = 5 << 20
)

// Metadata is the extracted page metadata. Fields are nil when the page
// does not provide them.
type Metadata struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

type HostChecker interface {
	ValidateHost(ctx context.Context, hostname string) error
}

// Extractor fetches a page and extracts its metadata. Redirects are never
// followed: the redirect target's host is validated (so a redirect into a
// private network is reported as an SSRF rejection, not an upstream
// failure) and the call then fails, bounding every invocation to one hop.
type Extractor struct {
	hosts     HostChecker
	limiter   *limiter.SlidingWindow
	cache     *cache.Cache[*Metadata]
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func NewExtractor(hosts HostChecker, lim *limiter.SlidingWindow, c *cache.Cache[*Metadata], userAgent string) *Extractor {
	return &Extractor{
		hosts:   hosts,
		limiter: lim,
		cache:   c,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent: userAgent,
		timeout:   defaultTimeout,
	}
}

// Run validates, rate-limits, and fetches rawURL, returning its metadata.
// clientIP keys the anonymous rate limit; "unknown" when unavailable.
func (e *Extractor) Run(ctx context.Context, rawURL, clientIP string) (*Metadata, error) {
	u, err := guard.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	if clientIP == "" {
		clientIP = "unknown"
	}
	if err := e.limiter.Check(clientIP); err != nil {
		return nil, err
	}

	if err := e.hosts.ValidateHost(ctx, u.Hostname()); err != nil {
		return nil, err
	}

	cacheKey := u.String()
	if cached, ok := e.cache.Get(cacheKey); ok {
		return cached, nil
	}

	meta, err := e.fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	e.cache.Put(cacheKey, meta)
	return meta, nil
}

var redirectStatuses = map[int]bool{
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

func (e *Extractor) fetch(ctx context.Context, u *guard.ValidatedURL) (*Metadata, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}

	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, u.Hostname())
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if redirectStatuses[resp.StatusCode] {
		// The redirect target still gets the SSRF check so a hop into a
		// private network surfaces as ErrForbiddenHost, but the redirect
		// itself is never followed.
		if location := resp.Header.Get("Location"); location != "" {
			redirectURL, resolveErr := u.Resolve(location)
			if resolveErr == nil {
				if err := e.hosts.ValidateHost(ctx, redirectURL.Hostname()); err != nil {
					return nil, err
				}
			}
		}
		return nil, fmt.Errorf("%w: redirect %d not followed", ErrUpstreamFetch, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstreamFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, u.Hostname())
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}

	return scrape(body, u)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
