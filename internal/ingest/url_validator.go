package ingest

import (
	"net"
	"net/url"

	"github.com/sophia-systems/csbot/internal/cerrors"
)

// ValidateURL parses u, requires an http(s) scheme and a hostname, resolves
// that hostname, and rejects it if any resolved address is private,
// reserved, loopback, or link-local. Ported from original_source's
// ingestion/loaders/url_validator.py SSRF guard.
func ValidateURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", &cerrors.SSRFViolationError{URL: rawURL}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", &cerrors.SSRFViolationError{URL: rawURL}
	}
	host := parsed.Hostname()
	if host == "" {
		return "", &cerrors.SSRFViolationError{URL: rawURL}
	}

	addrs, err := net.LookupIP(host)
	if err != nil || len(addrs) == 0 {
		return "", &cerrors.SSRFViolationError{URL: rawURL}
	}

	for _, ip := range addrs {
		if isForbiddenIP(ip) {
			return "", &cerrors.SSRFViolationError{URL: rawURL}
		}
	}

	return rawURL, nil
}

func isForbiddenIP(ip net.IP) bool {
	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() ||
		isReservedIPv4(ip)
}

// isReservedIPv4 reports whether ip falls in the IPv4 reserved block
// 240.0.0.0/4 (which includes the limited broadcast address).
func isReservedIPv4(ip net.IP) bool {
	ip4 := ip.To4()
	return ip4 != nil && ip4[0] >= 240
}

// MaxRedirects bounds the Web loader's manual redirect-following loop.
const MaxRedirects = 5
