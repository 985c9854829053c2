package guard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrForbiddenHost        = errors.New("access to internal hosts is not allowed")
	ErrHostResolutionFailed = errors.New("failed to resolve hostname")
)

// Ranges that must never be reached from user-supplied URLs.
var privateRanges = buildRanges([]string{
	"127.0.0.0/8",    // IPv4 loopback
	"10.0.0.0/8",     // RFC 1918
	"172.16.0.0/12",  // RFC 1918
	"192.168.0.0/16", // RFC 1918
	"169.254.0.0/16", // link-local
	"0.0.0.0/8",      // "this" network
	"::1/128",        // IPv6 loopback
	"fe80::/10",      // IPv6 link-local
	"fc00::/7",       // IPv6 unique local, covers fd00::/8
})

func buildRanges(cidrs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid private range %q: %v", cidr, err))
		}
		nets = append(nets, ipnet)
	}
	return nets
}

// IsPrivateIP reports whether ip falls in a private, loopback, or
// link-local range.
func IsPrivateIP(ip net.IP) bool {
	for _, ipnet := range privateRanges {
		if ipnet.Contains(ip) {
			return true
		}
	}
	return false
}

type LookupFunc func(ctx context.Context, host string) ([]net.IP, error)

// HostValidator decides whether connecting to a hostname would reach a
// private network. It is the sole SSRF defense: fetch-performing components
// must call ValidateHost for the original URL and again for every redirect
// hop target.
type HostValidator struct {
	lookup LookupFunc
}

func NewHostValidator() *HostValidator {
	return &HostValidator{
		lookup: func(ctx context.Context, host string) ([]net.IP, error) {
			addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, err
			}
			ips := make([]net.IP, len(addrs))
			for i, addr := range addrs {
				ips[i] = addr.IP
			}
			return ips, nil
		},
	}
}

// NewHostValidatorWithLookup constructs a validator with a custom DNS lookup.
func NewHostValidatorWithLookup(lookup LookupFunc) *HostValidator {
	return &HostValidator{lookup: lookup}
}

func (v *HostValidator) ValidateHost(ctx context.Context, hostname string) error {
	host := strings.ToLower(hostname)

	if host == "localhost" || host == "0.0.0.0" {
		return fmt.Errorf("%w: %s", ErrForbiddenHost, host)
	}

	// IP literals are tested directly, no DNS lookup involved. A zone
	// suffix (fe80::1%eth0, possibly percent-encoded) is dropped first so
	// zoned link-local addresses hit the range table.
	literal := host
	if i := strings.IndexByte(literal, '%'); i >= 0 {
		literal = literal[:i]
	}
	if ip := net.ParseIP(literal); ip != nil {
		if IsPrivateIP(ip) {
			return fmt.Errorf("%w: %s", ErrForbiddenHost, host)
		}
		return nil
	}
	if strings.Contains(host, ":") {
		// Colon-bearing but unparseable as an address: not a resolvable
		// name either, so reject rather than hand it to the dialer.
		return fmt.Errorf("%w: %s", ErrForbiddenHost, host)
	}

	ips, err := v.lookup(ctx, host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrHostResolutionFailed, host)
	}

	for _, ip := range ips {
		if IsPrivateIP(ip) {
			return fmt.Errorf("%w: %s resolves to %s", ErrForbiddenHost, host, ip)
		}
	}

	return nil
}
