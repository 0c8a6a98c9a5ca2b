// Package keys builds the Redis keys used by the search cache.
package keys

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	searchPrefix = "search"
	indexPrefix  = "searchidx"
)

// Canonical renders a listings query deterministically: keys sorted, values
// trimmed, empty values dropped.
func Canonical(q url.Values) string {
	clean := url.Values{}
	for k, vs := range q {
		for _, v := range vs {
			if v = strings.TrimSpace(v); v != "" {
				clean.Add(k, v)
			}
		}
	}
	return clean.Encode()
}

// SearchKey addresses the cached result of one canonical query within a
// namespace (e.g. the upstream API version).
func SearchKey(namespace, canonical string) string {
	return fmt.Sprintf("%s:%s:f=%016x", searchPrefix, sanitize(namespace), xxhash.Sum64String(canonical))
}

// CellIndexKey is the set of search keys whose bounds cover cell.
func CellIndexKey(res int, cell string) string {
	return fmt.Sprintf("%s:%d:%s", indexPrefix, res, sanitize(cell))
}

// GlobalIndexKey is the set of search keys without bounds.
func GlobalIndexKey() string {
	return indexPrefix + ":global"
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "default"
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := r
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		default:
			out = '-'
		}
		if out == '-' && prev == '-' {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}
