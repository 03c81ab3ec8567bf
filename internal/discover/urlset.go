// Package discover walks the catalog's category hierarchy and builds the
// deduplicated product-URL frontier.
package discover

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher is the slice of the fetch engine discovery needs.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, params url.Values) (*goquery.Document, error)
}

// URLSet is a set of absolute URLs keyed by normalized string equality.
// Concurrent branches produce separate sets; merging happens only in the
// consuming goroutine via Union, so instances are never shared across
// goroutines.
type URLSet map[string]struct{}

// NewURLSet builds a set from the given URLs.
func NewURLSet(urls ...string) URLSet {
	s := make(URLSet, len(urls))
	for _, u := range urls {
		s.Add(u)
	}
	return s
}

// Add inserts a URL after normalization. Empty and unparseable URLs are
// dropped silently.
func (s URLSet) Add(raw string) {
	if raw == "" {
		return
	}
	normalized, err := NormalizeURL(raw)
	if err != nil {
		return
	}
	s[normalized] = struct{}{}
}

// Union folds other into s.
func (s URLSet) Union(other URLSet) {
	for u := range other {
		s[u] = struct{}{}
	}
}

// Values returns the URLs in sorted order.
func (s URLSet) Values() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Len reports the set size.
func (s URLSet) Len() int {
	return len(s)
}

// NormalizeURL standardizes a URL so the same page discovered by two
// branches keys identically: lowercased scheme/host, default ports and
// fragments stripped, query parameters sorted.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	q := u.Query()
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// resolveRef makes href absolute against base. Returns "" for anything
// that cannot be resolved.
func resolveRef(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
