// Package keys builds the Redis keys used by the geocode cache and the catalog.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	geocodePrefix  = "geo:v1"
	locationPrefix = "loc:v1"
	maxAddrKeyLen  = 120
)

// NormalizeAddress is the cache identity of an address: trimmed, lower-cased,
// with whitespace runs collapsed and spaces around commas removed.
func NormalizeAddress(addr string) string {
	s := collapseWhitespace(strings.ToLower(strings.TrimSpace(addr)))
	s = strings.ReplaceAll(s, " ,", ",")
	s = strings.ReplaceAll(s, ", ", ",")
	return s
}

// GeocodeKey returns "geo:v1:<readable prefix>:h=<xxhash64>". The hash covers
// the full normalized address so truncation never merges distinct addresses.
func GeocodeKey(addr string) string {
	norm := NormalizeAddress(addr)
	safe := sanitizeForKey(norm)
	if len(safe) > maxAddrKeyLen {
		safe = safe[:maxAddrKeyLen]
	}
	return fmt.Sprintf("%s:%s:h=%016x", geocodePrefix, safe, xxhash.Sum64String(norm))
}

func LocationKey(id string) string {
	return locationPrefix + ":doc:" + sanitizeForKey(strings.TrimSpace(id))
}

// ordered list of location ids, in insertion order
func LocationIndexKey() string {
	return locationPrefix + ":ids"
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case isASCIIWhitespace(r):
			out = '_'
		case isAlphaNum(r) || r == ',' || r == '_' || r == '-':
			out = r
		default:
			// anything else, including non-ASCII, becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isASCIIWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
