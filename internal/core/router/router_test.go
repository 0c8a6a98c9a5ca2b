package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammed-shakir/listing-search/internal/filters"
	"github.com/mohammed-shakir/listing-search/internal/listings"
	"github.com/mohammed-shakir/listing-search/internal/session"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	reg, err := filters.NewRegistry(
		filters.Descriptor{
			ID: "categoryFilter", Kind: filters.SingleSelect, ParamName: "pub_category",
			Options: []filters.Option{{Key: "Venues", Label: "Venues"}, {Key: "Photo Booth", Label: "Photo Booth"}},
		},
		filters.Descriptor{
			ID: "typesFilter", Kind: filters.MultiSelect, ParamName: "pub_types",
			Options: []filters.Option{{Key: "Frozen", Label: "Frozen"}, {Key: "Open-Air", Label: "Open-Air"}},
			Children: &filters.ChildOptions{
				ParentParam: "pub_category",
				Allowed:     map[string][]string{"Photo Booth": {"Open-Air"}},
			},
		},
		filters.Descriptor{ID: "priceFilter", Kind: filters.PriceRange, ParamName: "price", Range: &filters.RangeConfig{Min: 0, Max: 1000, Step: 5}},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return Options{Registry: reg, Query: listings.QueryConfig{PerPage: 10}}
}

type fakeHandler struct {
	last  SearchRequest
	calls int
}

func (f *fakeHandler) HandleSearch(_ context.Context, w http.ResponseWriter, _ *http.Request, req SearchRequest) {
	f.last = req
	f.calls++
	w.WriteHeader(http.StatusNoContent)
}

func TestHandleSearch_Dispatch(t *testing.T) {
	h := &fakeHandler{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hdl := HandleSearch(logger, testOptions(t), h)

	req := httptest.NewRequest(http.MethodGet,
		"/search?pub_category=Venues&price=abc&bounds=60.3,25.1,60.1,24.8&mapSearch=true&page=2&junk=1", nil)
	rr := httptest.NewRecorder()
	hdl(rr, req)

	if rr.Code != http.StatusNoContent || h.calls != 1 {
		t.Fatalf("code=%d calls=%d", rr.Code, h.calls)
	}
	want := urlquery.Params{
		"pub_category": "Venues",
		"bounds":       "60.3,25.1,60.1,24.8",
		"mapSearch":    "true",
		"page":         "2",
	}
	if !h.last.Params.Equal(want) {
		t.Fatalf("params=%v want %v", h.last.Params, want)
	}
	if !h.last.MapSearch || h.last.Bounds == nil || h.last.Bounds.NE.Lat != 60.3 {
		t.Fatalf("req=%+v", h.last)
	}
	q := h.last.Query
	if q.Get("page") != "2" || q.Get("perPage") != "10" || q.Has("mapSearch") || q.Has("price") {
		t.Fatalf("listings query=%v", q)
	}
}

func TestHandleSearch_BadBounds(t *testing.T) {
	h := &fakeHandler{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hdl := HandleSearch(logger, testOptions(t), h)

	for _, target := range []string{"/search?bounds=1,2,3", "/search?origin=91,0"} {
		rr := httptest.NewRecorder()
		hdl(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: code=%d want 400", target, rr.Code)
		}
	}
	if h.calls != 0 {
		t.Fatalf("handler must not run for invalid requests")
	}
}

func TestParseSearchRequest_Warn(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/search?pub_types=Nope&zzz=1", nil)
	out, warn, err := ParseSearchRequest(req, testOptions(t))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if warn != "dropped invalid search params: pub_types,zzz" {
		t.Fatalf("warn=%q", warn)
	}
	if len(out.Params) != 0 || out.MapSearch {
		t.Fatalf("out=%+v", out)
	}
}

func TestHandleFilters(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleFilters(testOptions(t).Registry)(rr, httptest.NewRequest(http.MethodGet, "/filters?pub_category=Photo+Booth&price=10,50", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("code=%d", rr.Code)
	}
	var v session.View
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.SelectedCount != 2 || len(v.Filters) != 3 {
		t.Fatalf("view=%+v", v)
	}
	if opts := v.Filters[1].Options; len(opts) != 1 || opts[0].Key != "Open-Air" {
		t.Fatalf("types options=%v", opts)
	}
}
