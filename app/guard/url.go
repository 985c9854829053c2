package guard

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrInvalidURL        = errors.New("invalid URL")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

// ValidatedURL wraps a URL that has passed syntax and scheme validation.
// Every fetch-performing component takes one of these instead of a raw string.
type ValidatedURL struct {
	url *url.URL
}

// ValidateURL checks that raw is a parseable absolute http(s) URL.
func ValidateURL(raw string) (*ValidatedURL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidURL, raw)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}

	return &ValidatedURL{url: u}, nil
}

func (v *ValidatedURL) Scheme() string {
	return v.url.Scheme
}

func (v *ValidatedURL) Hostname() string {
	return v.url.Hostname()
}

func (v *ValidatedURL) String() string {
	return v.url.String()
}

// Resolve resolves a reference (e.g. a Location header) against this URL.
func (v *ValidatedURL) Resolve(ref string) (*url.URL, error) {
	resolved, err := v.url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return resolved, nil
}
