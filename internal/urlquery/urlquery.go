// Package urlquery maps address-bar query strings to parameter sets and back.
package urlquery

import (
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/mohammed-shakir/listing-search/internal/core/model"
)

// reserved, non-filter parameter names
const (
	KeyPage      = "page"
	KeyAddress   = "address"
	KeyOrigin    = "origin"
	KeyBounds    = "bounds"
	KeyMapSearch = "mapSearch"
)

var reserved = []string{KeyPage, KeyAddress, KeyOrigin, KeyBounds, KeyMapSearch}

// IsReserved reports whether key is one of the non-filter parameters that
// filter validation and Reset All always leave in place.
func IsReserved(key string) bool {
	return slices.Contains(reserved, key)
}

// Params is the raw parameter set. Values are always strings; multi-value
// filters are comma-joined.
type Params map[string]string

// Hints names the keys whose values are geographic shapes rather than
// plain comma lists.
type Hints struct {
	LatLng       []string
	LatLngBounds []string
}

var DefaultHints = Hints{
	LatLng:       []string{KeyOrigin},
	LatLngBounds: []string{KeyBounds},
}

// Parse never fails: a hinted key whose value does not parse into its shape
// is dropped, as are keys with empty values.
func Parse(search string, hints Hints) Params {
	out := Params{}
	search = strings.TrimPrefix(strings.TrimSpace(search), "?")
	if search == "" {
		return out
	}
	for pair := range strings.SplitSeq(search, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawVal, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil || key == "" {
			continue
		}
		val, err := url.QueryUnescape(rawVal)
		if err != nil {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			delete(out, key)
			continue
		}
		canon, ok := hints.canonical(key, val)
		if !ok {
			delete(out, key)
			continue
		}
		out[key] = canon
	}
	return out
}

func (h Hints) canonical(key, val string) (string, bool) {
	switch {
	case slices.Contains(h.LatLng, key):
		p, err := model.ParseLatLng(val)
		if err != nil {
			return "", false
		}
		return p.String(), true
	case slices.Contains(h.LatLngBounds, key):
		b, err := model.ParseBounds(val)
		if err != nil {
			return "", false
		}
		return b.String(), true
	default:
		return val, true
	}
}

// Stringify emits keys in sorted order, without a leading '?'.
func Stringify(p Params) string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range slices.Sorted(maps.Keys(p)) {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[k]))
	}
	return b.String()
}

func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// With returns a copy with key set, or removed when value is empty.
func (p Params) With(key, value string) Params {
	out := p.Clone()
	if value == "" {
		delete(out, key)
		return out
	}
	out[key] = value
	return out
}

func (p Params) Without(keys ...string) Params {
	out := p.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func (p Params) Equal(o Params) bool {
	return maps.Equal(p, o)
}

func (p Params) LatLng(key string) (model.LatLng, bool) {
	v, ok := p[key]
	if !ok {
		return model.LatLng{}, false
	}
	ll, err := model.ParseLatLng(v)
	if err != nil {
		return model.LatLng{}, false
	}
	return ll, true
}

func (p Params) Bounds(key string) (model.Bounds, bool) {
	v, ok := p[key]
	if !ok {
		return model.Bounds{}, false
	}
	b, err := model.ParseBounds(v)
	if err != nil {
		return model.Bounds{}, false
	}
	return b, true
}
