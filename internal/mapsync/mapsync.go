// Package mapsync turns settled map viewports into map searches.
package mapsync

import (
	"log/slog"
	"time"

	"github.com/mohammed-shakir/listing-search/internal/commit"
	"github.com/mohammed-shakir/listing-search/internal/core/model"
	"github.com/mohammed-shakir/listing-search/internal/core/observability"
	"github.com/mohammed-shakir/listing-search/internal/filters"
	"github.com/mohammed-shakir/listing-search/internal/timer"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

const DefaultWait = 300 * time.Millisecond

// Settled is reported by the map widget once the user stops panning or zooming.
type Settled struct {
	BoundsChanged bool
	Bounds        model.Bounds
	Center        model.LatLng
}

type Config struct {
	Wait           time.Duration
	SortByDistance bool
	// Route is the pathname that owns the map; defaults to the pipeline's page path.
	Route string
}

type Sync struct {
	pipe     *commit.Pipeline
	reg      *filters.Registry
	cfg      Config
	logger   *slog.Logger
	debounce *timer.Debouncer[Settled]
}

func New(clock timer.Clock, pipe *commit.Pipeline, reg *filters.Registry, cfg Config, logger *slog.Logger) *Sync {
	if cfg.Wait <= 0 {
		cfg.Wait = DefaultWait
	}
	if cfg.Route == "" {
		cfg.Route = pipe.PagePath()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sync{pipe: pipe, reg: reg, cfg: cfg, logger: logger}
	s.debounce = timer.NewDebouncer(clock, cfg.Wait, s.fire)
	return s
}

// OnSettled schedules a map search for ev. Events without a bounds change,
// with unusable bounds, or arriving while another page is shown are ignored.
func (s *Sync) OnSettled(ev Settled) {
	if !ev.BoundsChanged {
		observability.IncMapSettle("unchanged")
		return
	}
	if err := ev.Bounds.Validate(); err != nil {
		observability.IncMapSettle("invalid")
		s.logger.Debug("map settle ignored", "error", err)
		return
	}
	if !s.onRoute() {
		observability.IncMapSettle("off_route")
		return
	}
	s.debounce.Call(ev)
}

func (s *Sync) Pending() bool { return s.debounce.Pending() }

// Close drops a scheduled map search.
func (s *Sync) Close() {
	if s.debounce.Cancel() {
		observability.IncMapSettle("cancelled")
	}
}

func (s *Sync) onRoute() bool {
	return s.pipe.Location().Pathname == s.cfg.Route
}

func (s *Sync) fire(ev Settled) {
	// the user may have left the search page while the timer was pending
	if !s.onRoute() {
		observability.IncMapSettle("off_route")
		s.logger.Debug("map search dropped; route changed", "pathname", s.pipe.Location().Pathname)
		return
	}
	next := s.Params(s.pipe.Committed(), ev)
	if s.pipe.Replace("map", next) {
		observability.IncMapSettle("committed")
	} else {
		observability.IncMapSettle("noop")
	}
}

// Params builds the map-search parameter set from the committed one: valid
// filters and address are kept, page and the previous origin are dropped.
func (s *Sync) Params(committed urlquery.Params, ev Settled) urlquery.Params {
	next := urlquery.Params{}
	for k, v := range s.reg.Validate(committed) {
		if !urlquery.IsReserved(k) {
			next[k] = v
		}
	}
	if addr := committed[urlquery.KeyAddress]; addr != "" {
		next[urlquery.KeyAddress] = addr
	}
	next[urlquery.KeyBounds] = ev.Bounds.String()
	if s.cfg.SortByDistance {
		next[urlquery.KeyOrigin] = ev.Center.String()
	}
	next[urlquery.KeyMapSearch] = "true"
	return next
}
