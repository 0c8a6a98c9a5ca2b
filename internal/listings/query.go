// Package listings builds listings-API queries from committed search parameters.
package listings

import (
	"net/url"
	"strconv"

	"github.com/mohammed-shakir/listing-search/internal/filters"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

const DefaultPerPage = 24

// projection of the listings API response the search page renders
var (
	Include       = "author,images"
	ListingFields = "title,geolocation,price"
	UserFields    = "profile.displayName,profile.abbreviatedName"
	ImageFields   = "variants.landscape-crop,variants.landscape-crop2x"
)

type QueryConfig struct {
	PerPage        int
	SortByDistance bool
}

// BuildQuery maps committed parameters to listings API query values.
// address and mapSearch are page concerns and are not sent.
func BuildQuery(params urlquery.Params, cfg QueryConfig) url.Values {
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	q := url.Values{}
	for k, v := range params {
		switch k {
		case urlquery.KeyAddress, urlquery.KeyMapSearch, urlquery.KeyPage:
			continue
		case urlquery.KeyOrigin:
			if !cfg.SortByDistance {
				continue
			}
		}
		q.Set(k, v)
	}
	q.Set("page", strconv.Itoa(Page(params)))
	q.Set("perPage", strconv.Itoa(cfg.PerPage))
	q.Set("include", Include)
	q.Set("fields.listing", ListingFields)
	q.Set("fields.user", UserFields)
	q.Set("fields.image", ImageFields)
	q.Set("limit.images", "1")
	return q
}

// Page is the requested result page; anything but a positive integer is 1.
func Page(params urlquery.Params) int {
	n, err := strconv.Atoi(params[urlquery.KeyPage])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// PickSearchParams keeps the parameters that define a search: address,
// bounds, origin when sorting by distance, and valid filters. page and
// mapSearch are dropped.
func PickSearchParams(params urlquery.Params, reg *filters.Registry, sortByDistance bool) urlquery.Params {
	out := urlquery.Params{}
	for k, v := range reg.Validate(params) {
		if !urlquery.IsReserved(k) {
			out[k] = v
		}
	}
	for _, k := range []string{urlquery.KeyAddress, urlquery.KeyBounds} {
		if v := params[k]; v != "" {
			out[k] = v
		}
	}
	if sortByDistance {
		if v := params[urlquery.KeyOrigin]; v != "" {
			out[urlquery.KeyOrigin] = v
		}
	}
	return out
}

// InSync reports whether the results fetched for searchParams belong to the
// search currently in the address bar.
func InSync(urlParams, searchParams urlquery.Params, reg *filters.Registry, sortByDistance bool) bool {
	a := urlquery.Stringify(PickSearchParams(urlParams, reg, sortByDistance))
	b := urlquery.Stringify(PickSearchParams(searchParams, reg, sortByDistance))
	return a == b
}
