package urlutil

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"strings"
)

// Normalize produces the canonical form of a URL used as a dedup key:
// no fragment, no query, no www prefix, https assumed when the scheme is missing.
func Normalize(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}

	parsed.Fragment = ""
	parsed.RawQuery = ""
	parsed.Host = strings.TrimPrefix(parsed.Host, "www.")

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}

	return parsed.String()
}

// Hash returns a short stable digest of a normalized URL, used in cache keys.
func Hash(urlStr string) string {
	sum := md5.Sum([]byte(Normalize(urlStr)))
	return fmt.Sprintf("%x", sum)
}

// Host returns the lowercased host of a URL without the www prefix,
// or "" when the URL does not parse.
func Host(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}
