package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrSkippedLink is returned by Normalize for links that are valid HTML
// but not navigable pages: fragment-only anchors, mailto:, tel:,
// javascript:, and similar schemes. Callers drop these silently.
var ErrSkippedLink = errors.New("link is not a navigable page")

// ErrMalformedLink is returned for links that should have been URLs but
// do not parse into a well-formed absolute URL.
var ErrMalformedLink = errors.New("malformed link")

// Normalize canonicalizes a raw link found on the page at base into an
// absolute, fragment-free http(s) URL.
//
// Rules, applied in order:
//  1. fragment-only links ("#...") are rejected with ErrSkippedLink
//  2. non-navigable schemes (mailto:, tel:, javascript:, data:, ...)
//     are rejected with ErrSkippedLink
//  3. scheme-relative and path-relative links are resolved against base
//  4. the fragment component is stripped
//  5. results that are not well-formed absolute http(s) URLs are
//     rejected with ErrMalformedLink
//
// Normalization is idempotent: feeding a normalized URL back in returns
// it unchanged. Two links that differ only by fragment, or that are
// relative and absolute forms of the same resource, normalize to the
// same string.
func Normalize(raw string, base *url.URL) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty link", ErrSkippedLink)
	}
	if strings.HasPrefix(raw, "#") {
		return "", fmt.Errorf("%w: fragment-only link", ErrSkippedLink)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedLink, err)
	}

	// Relative links inherit the scheme from base, so only explicit
	// non-http(s) schemes are rejected here.
	if parsed.Scheme != "" && parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrSkippedLink, parsed.Scheme)
	}

	resolved := parsed
	if base != nil {
		resolved = base.ResolveReference(parsed)
	}

	resolved.Fragment = ""
	resolved.Scheme = strings.ToLower(resolved.Scheme)
	resolved.Host = strings.ToLower(resolved.Host)

	// Empty path and "/" address the same resource; pick one form so
	// http://example.com and http://example.com/ deduplicate.
	if resolved.Path == "" {
		resolved.Path = "/"
	}

	if !resolved.IsAbs() || resolved.Host == "" {
		return "", fmt.Errorf("%w: not an absolute URL: %q", ErrMalformedLink, raw)
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrSkippedLink, resolved.Scheme)
	}

	return resolved.String(), nil
}

// NormalizeStart normalizes a crawl start URL given on the command line.
// Unlike Normalize it tolerates a missing scheme by assuming https.
func NormalizeStart(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty start URL", ErrMalformedLink)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return Normalize(raw, nil)
}

// SameHost reports whether the target URL is on the given host.
// Crawls never leave the start URL's host.
func SameHost(host, target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
