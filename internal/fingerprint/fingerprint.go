// SPDX-License-Identifier: MIT

// Package fingerprint implements content-hash deduplication over a sliding
// TTL window. A fingerprint is a deterministic hash of the normalized title,
// canonical URL and a prefix of the normalized content.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"unicode"
)

// ContentPrefixLen bounds how much article body feeds the hash, counted in
// runes. Longer prefixes catch fewer republications with edited tails;
// shorter ones collide on syndicated boilerplate.
const ContentPrefixLen = 512

// Compute returns the hex fingerprint for an article's identifying fields.
func Compute(title, rawURL, content string) string {
	content = contentPrefix(content)
	h := sha256.New()
	h.Write([]byte(Normalize(title)))
	h.Write([]byte{0})
	h.Write([]byte(CanonicalURL(rawURL)))
	h.Write([]byte{0})
	h.Write([]byte(Normalize(content)))
	return hex.EncodeToString(h.Sum(nil))
}

// contentPrefix truncates on rune boundaries so multi-byte text never
// splits mid-character.
func contentPrefix(s string) string {
	n := 0
	for i := range s {
		if n == ContentPrefixLen {
			return s[:i]
		}
		n++
	}
	return s
}

// Normalize lowercases and strips whitespace and punctuation so that trivial
// reformatting does not defeat deduplication.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CanonicalURL reduces a URL to a stable comparison form: lowercased scheme
// and host, default ports removed, fragment dropped, tracking query
// parameters (utm_*, fbclid, gclid) stripped, trailing slash trimmed.
// Unparseable input falls back to plain normalization.
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return Normalize(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") || lower == "fbclid" || lower == "gclid" {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}
