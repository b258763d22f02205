// Package domain holds boundary helpers for upstream content records.
//
// The content source is loosely typed: an image reference may arrive as
// a bare URL string, an array of attachment objects, a single nested
// object, or prose with inline links. Everything is normalized into flat
// lists of candidate URL strings here, so the cache core only ever deals
// with plain http(s) URLs.
package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// inlineURLPattern matches http(s) URLs embedded in prose or markup.
var inlineURLPattern = regexp.MustCompile(`https?://[^\s"'<>()\\]+`)

// IsHTTPURL reports whether s parses as an absolute http or https URL.
func IsHTTPURL(s string) bool {
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Host != ""
}

// CandidateURLs normalizes a loosely-shaped attachment value into the
// list of http(s) URLs it references, in encounter order and without
// duplicates. Unrecognized shapes yield nil.
func CandidateURLs(value interface{}) []string {
	collector := &urlCollector{seen: make(map[string]bool)}
	collector.collect(value)
	return collector.urls
}

type urlCollector struct {
	seen map[string]bool
	urls []string
}

func (c *urlCollector) collect(value interface{}) {
	switch v := value.(type) {
	case string:
		c.collectString(v)

	case []interface{}:
		for _, item := range v {
			c.collect(item)
		}

	case []string:
		for _, item := range v {
			c.collectString(item)
		}

	case map[string]interface{}:
		// Attachment objects carry the full-size image under "url";
		// nested variants (thumbnails, srcset-style maps) are walked too.
		if u, ok := v["url"].(string); ok {
			c.collectString(u)
		}
		for key, nested := range v {
			if key == "url" {
				continue
			}
			c.collect(nested)
		}
	}
}

func (c *urlCollector) collectString(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}

	if IsHTTPURL(s) {
		c.add(s)
		return
	}

	// Not a bare URL; scan for inline links.
	for _, match := range inlineURLPattern.FindAllString(s, -1) {
		match = strings.TrimRight(match, ".,;:!?")
		if IsHTTPURL(match) {
			c.add(match)
		}
	}
}

func (c *urlCollector) add(u string) {
	if c.seen[u] {
		return
	}
	c.seen[u] = true
	c.urls = append(c.urls, u)
}
