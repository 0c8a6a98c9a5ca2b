package mapsync

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mohammed-shakir/listing-search/internal/commit"
	"github.com/mohammed-shakir/listing-search/internal/core/model"
	"github.com/mohammed-shakir/listing-search/internal/filters"
	"github.com/mohammed-shakir/listing-search/internal/routing"
	"github.com/mohammed-shakir/listing-search/internal/timer"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

var (
	categoryDesc = filters.Descriptor{
		ID: "categoryFilter", Kind: filters.SingleSelect, ParamName: "pub_category",
		Options: []filters.Option{{Key: "Venues", Label: "Venues"}},
	}
	helsinki = model.Bounds{NE: model.LatLng{Lat: 60.3, Lng: 25.1}, SW: model.LatLng{Lat: 60.1, Lng: 24.8}}
	espoo    = model.Bounds{NE: model.LatLng{Lat: 60.25, Lng: 24.9}, SW: model.LatLng{Lat: 60.1, Lng: 24.5}}
)

func newSync(t *testing.T, search string, cfg Config) (*Sync, *routing.History, *timer.Fake) {
	t.Helper()
	reg, err := filters.NewRegistry(categoryDesc)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := routing.NewHistory(routing.SearchPagePath, search)
	clk := timer.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	pipe := commit.NewPipeline(h, routing.SearchPagePath, logger)
	return New(clk, pipe, reg, cfg, logger), h, clk
}

func committed(h *routing.History) urlquery.Params {
	return urlquery.Parse(h.Location().Search, urlquery.DefaultHints)
}

func TestSync_DebouncesToLastViewport(t *testing.T) {
	s, h, clk := newSync(t, "pub_category=Venues&page=4&address=Helsinki&origin=1%2C2&junk=x", Config{})

	s.OnSettled(Settled{BoundsChanged: true, Bounds: espoo, Center: espoo.Center()})
	clk.Advance(200 * time.Millisecond)
	s.OnSettled(Settled{BoundsChanged: true, Bounds: helsinki, Center: helsinki.Center()})
	clk.Advance(299 * time.Millisecond)
	if h.Pushes() != 0 {
		t.Fatalf("committed before settle window closed")
	}
	clk.Advance(time.Millisecond)
	if h.Pushes() != 1 {
		t.Fatalf("pushes=%d want 1", h.Pushes())
	}
	want := urlquery.Params{
		"pub_category": "Venues",
		"address":      "Helsinki",
		"bounds":       "60.3,25.1,60.1,24.8",
		"mapSearch":    "true",
	}
	if got := committed(h); !got.Equal(want) {
		t.Fatalf("params=%v want %v", got, want)
	}
}

func TestSync_OriginOnlyWhenSortingByDistance(t *testing.T) {
	s, h, clk := newSync(t, "", Config{SortByDistance: true})

	center := model.LatLng{Lat: 60.2, Lng: 24.95}
	s.OnSettled(Settled{BoundsChanged: true, Bounds: helsinki, Center: center})
	clk.Advance(DefaultWait)
	if got := committed(h)["origin"]; got != "60.2,24.95" {
		t.Fatalf("origin=%q", got)
	}
}

func TestSync_IgnoresUnchangedAndInvalidBounds(t *testing.T) {
	s, h, clk := newSync(t, "", Config{})

	s.OnSettled(Settled{BoundsChanged: false, Bounds: helsinki})
	s.OnSettled(Settled{BoundsChanged: true, Bounds: model.Bounds{NE: helsinki.SW, SW: helsinki.NE}})
	clk.Advance(time.Second)
	if h.Pushes() != 0 || s.Pending() {
		t.Fatalf("pushes=%d pending=%v", h.Pushes(), s.Pending())
	}
}

func TestSync_RouteGuard(t *testing.T) {
	s, h, clk := newSync(t, "", Config{})

	s.OnSettled(Settled{BoundsChanged: true, Bounds: helsinki})
	clk.Advance(100 * time.Millisecond)
	h.Navigate(routing.ListingPagePath, urlquery.Params{"id": "42"})
	clk.Advance(time.Second)
	if h.Pushes() != 1 || h.Location().Pathname != routing.ListingPagePath {
		t.Fatalf("map search fired after leaving the page: %+v", h.Entries())
	}

	s.OnSettled(Settled{BoundsChanged: true, Bounds: helsinki})
	if s.Pending() {
		t.Fatalf("settle armed while off the search page")
	}
}

func TestSync_CloseCancelsPending(t *testing.T) {
	s, h, clk := newSync(t, "", Config{})

	s.OnSettled(Settled{BoundsChanged: true, Bounds: helsinki})
	s.Close()
	clk.Advance(time.Second)
	if h.Pushes() != 0 {
		t.Fatalf("pushes=%d after Close", h.Pushes())
	}
}

func TestSync_SameViewportTwiceNavigatesOnce(t *testing.T) {
	s, h, clk := newSync(t, "", Config{})

	for range 2 {
		s.OnSettled(Settled{BoundsChanged: true, Bounds: helsinki})
		clk.Advance(DefaultWait)
	}
	if h.Pushes() != 1 {
		t.Fatalf("pushes=%d want 1", h.Pushes())
	}
}
