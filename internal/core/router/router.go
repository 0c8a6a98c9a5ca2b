package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/mohammed-shakir/listing-search/internal/core/model"
	"github.com/mohammed-shakir/listing-search/internal/filters"
	"github.com/mohammed-shakir/listing-search/internal/listings"
	"github.com/mohammed-shakir/listing-search/internal/session"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

// SearchRequest is a validated search: the committed parameters that define
// it and the listings API query built from them.
type SearchRequest struct {
	Params    urlquery.Params
	Query     url.Values
	Bounds    *model.Bounds
	Origin    *model.LatLng
	MapSearch bool
	// Selected is the number of filters carrying a value.
	Selected int
}

// receives validated search requests and serves them
type SearchHandler interface {
	HandleSearch(ctx context.Context, w http.ResponseWriter, r *http.Request, req SearchRequest)
}

type Options struct {
	Registry *filters.Registry
	Query    listings.QueryConfig
}

// validates input query params and calls the handler
func HandleSearch(logger *slog.Logger, opts Options, h SearchHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, warn, err := ParseSearchRequest(r, opts)
		if warn != "" {
			logger.DebugContext(r.Context(), warn)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.HandleSearch(r.Context(), w, r, req)
	}
}

// HandleFilters serves the filter panel state for the query: each enabled
// filter's value, its options narrowed by category and the selected count.
func HandleFilters(reg *filters.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := urlquery.Parse(r.URL.RawQuery, urlquery.DefaultHints)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(session.Project(reg, params))
	}
}

// ParseSearchRequest never rejects a filter value: malformed filters are
// dropped and reported in warn. Malformed bounds or origin are errors since
// they change which listings match.
func ParseSearchRequest(r *http.Request, opts Options) (SearchRequest, string, error) {
	raw := r.URL.Query()
	var out SearchRequest

	if v := strings.TrimSpace(raw.Get(urlquery.KeyBounds)); v != "" {
		b, err := model.ParseBounds(v)
		if err != nil {
			return SearchRequest{}, "", fmt.Errorf("invalid bounds: %w", err)
		}
		out.Bounds = &b
	}
	if v := strings.TrimSpace(raw.Get(urlquery.KeyOrigin)); v != "" {
		p, err := model.ParseLatLng(v)
		if err != nil {
			return SearchRequest{}, "", fmt.Errorf("invalid origin: %w", err)
		}
		out.Origin = &p
	}

	params := urlquery.Parse(r.URL.RawQuery, urlquery.DefaultHints)
	valid := opts.Registry.Validate(params)

	var dropped []string
	for k := range params {
		if _, ok := valid[k]; !ok {
			dropped = append(dropped, k)
		}
	}
	var warn string
	if len(dropped) > 0 {
		slices.Sort(dropped)
		warn = "dropped invalid search params: " + strings.Join(dropped, ",")
	}

	out.Params = valid
	out.Query = listings.BuildQuery(valid, opts.Query)
	out.MapSearch = valid[urlquery.KeyMapSearch] == "true"
	out.Selected = opts.Registry.SelectedCount(valid)
	return out, warn, nil
}
