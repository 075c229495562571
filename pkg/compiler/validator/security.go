package validator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
)

// ErrBlockedAddress is returned when a remote pattern source resolves to an
// internal address
var ErrBlockedAddress = errors.New("access denied")

type blockedRange struct {
	prefix netip.Prefix
	reason string
}

// blockedRanges holds the address ranges a pattern source may not point at
var blockedRanges = []blockedRange{
	{netip.MustParsePrefix("127.0.0.0/8"), "localhost access not allowed"},
	{netip.MustParsePrefix("::1/128"), "localhost access not allowed"},
	{netip.MustParsePrefix("0.0.0.0/8"), "unspecified address not allowed"},
	{netip.MustParsePrefix("10.0.0.0/8"), "private network access not allowed"},
	{netip.MustParsePrefix("172.16.0.0/12"), "private network access not allowed"},
	{netip.MustParsePrefix("192.168.0.0/16"), "private network access not allowed"},
	{netip.MustParsePrefix("fc00::/7"), "private network access not allowed"},
	{netip.MustParsePrefix("169.254.0.0/16"), "link-local access not allowed"},
	{netip.MustParsePrefix("fe80::/10"), "link-local access not allowed"},
}

// Resolver looks up the addresses of a host
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// BlockReason returns why addr is refused, or "" when it is allowed
func BlockReason(addr netip.Addr) string {
	addr = addr.Unmap()
	for _, r := range blockedRanges {
		if r.prefix.Contains(addr) {
			return r.reason
		}
	}
	return ""
}

// IsBlockedIP reports whether the textual address falls in a blocked range.
// Unparseable input is not blocked.
func IsBlockedIP(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	return BlockReason(addr) != ""
}

// CheckHTTPURI refuses http and https URIs whose host is, or resolves to, a
// blocked address. IP literals are checked without a lookup.
func CheckHTTPURI(ctx context.Context, r Resolver, uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid URI: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("expected http or https scheme, got %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URI has no host")
	}

	var addrs []netip.Addr
	if addr, err := netip.ParseAddr(host); err == nil {
		addrs = []netip.Addr{addr}
	} else {
		if r == nil {
			r = net.DefaultResolver
		}
		addrs, err = r.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", host, err)
		}
	}

	for _, addr := range addrs {
		if reason := BlockReason(addr); reason != "" {
			return fmt.Errorf("%w: %s resolves to %s (%s)", ErrBlockedAddress, host, addr, reason)
		}
	}
	return nil
}
