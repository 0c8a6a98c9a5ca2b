// Package session composes the state-sync components of one search page.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mohammed-shakir/listing-search/internal/commit"
	"github.com/mohammed-shakir/listing-search/internal/core/model"
	"github.com/mohammed-shakir/listing-search/internal/filters"
	"github.com/mohammed-shakir/listing-search/internal/mapsync"
	"github.com/mohammed-shakir/listing-search/internal/panel"
	"github.com/mohammed-shakir/listing-search/internal/timer"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

type Config struct {
	PagePath       string
	SortByDistance bool
	Breakpoint     int
	Keyword        commit.KeywordConfig
	MapWait        time.Duration
	// Tab is the initial mobile tab ("map" opens the map view).
	Tab string
}

type Deps struct {
	Clock     timer.Clock
	Navigator commit.Navigator
	Viewport  panel.Viewport
	Registry  *filters.Registry
	Logger    *slog.Logger
}

type Session struct {
	cfg      Config
	reg      *filters.Registry
	nav      commit.Navigator
	viewport panel.Viewport
	logger   *slog.Logger

	pipe    *commit.Pipeline
	keyword *commit.KeywordFilter
	panel   *panel.Panel
	layout  *panel.LayoutTracker
	mapView *panel.MapToggle
	mapSync *mapsync.Sync

	mu                sync.Mutex
	topbarBehindModal bool
}

func New(cfg Config, deps Deps) (*Session, error) {
	if deps.Navigator == nil || deps.Registry == nil || deps.Viewport == nil {
		return nil, errors.New("session: navigator, registry and viewport are required")
	}
	if deps.Clock == nil {
		deps.Clock = timer.Real()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.PagePath == "" {
		return nil, errors.New("session: page path is required")
	}
	logger := deps.Logger.With("component", "session")

	s := &Session{
		cfg:      cfg,
		reg:      deps.Registry,
		nav:      deps.Navigator,
		viewport: deps.Viewport,
		logger:   logger,
	}
	s.pipe = commit.NewPipeline(deps.Navigator, cfg.PagePath, logger)
	s.panel = panel.New(s.pipe, s.reg, panel.Hooks{
		OnOpen:      func() { s.setTopbarBehindModal(true) },
		OnClose:     func() { s.setTopbarBehindModal(false) },
		DropPending: func() {
			if s.keyword != nil && s.keyword.Cancel() {
				s.logger.Debug("pending keyword dropped")
			}
		},
	}, logger)
	s.layout = panel.TrackLayout(deps.Viewport, cfg.Breakpoint)
	s.mapView = panel.NewMapToggle(cfg.Tab)
	s.mapSync = mapsync.New(deps.Clock, s.pipe, s.reg, mapsync.Config{
		Wait:           cfg.MapWait,
		SortByDistance: cfg.SortByDistance,
	}, logger)

	for _, d := range s.reg.Descriptors() {
		if d.Kind == filters.Keyword && d.Enabled() {
			s.keyword = commit.NewKeywordFilter(deps.Clock, s.pipe, d, cfg.Keyword, logger)
			s.keyword.Mount()
			break
		}
	}
	return s, nil
}

func (s *Session) Pipeline() *commit.Pipeline { return s.pipe }
func (s *Session) Panel() *panel.Panel { return s.panel }
func (s *Session) MapView() *panel.MapToggle { return s.mapView }
func (s *Session) MapSync() *mapsync.Sync { return s.mapSync }
func (s *Session) Layout() panel.Layout { return s.layout.Layout() }

func (s *Session) Committed() urlquery.Params { return s.pipe.Committed() }

func (s *Session) Filters() View { return Project(s.reg, s.pipe.Committed()) }

func (s *Session) SelectedCount() int { return s.reg.SelectedCount(s.pipe.Committed()) }

func (s *Session) TopbarBehindModal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topbarBehindModal
}

func (s *Session) setTopbarBehindModal(v bool) {
	s.mu.Lock()
	s.topbarBehindModal = v
	s.mu.Unlock()
}

// SubmitFilter commits v for the filter owning paramName. Keyword filters go
// through their debounce policy.
func (s *Session) SubmitFilter(paramName string, v filters.Value) error {
	d, ok := s.reg.Lookup(paramName)
	if !ok {
		return fmt.Errorf("unknown filter param %q", paramName)
	}
	if !d.Enabled() {
		return fmt.Errorf("filter %q is not active", d.ID)
	}
	if v != nil && v.Kind() != d.Kind {
		return fmt.Errorf("filter %q: got %s value, want %s", d.ID, v.Kind(), d.Kind)
	}
	if d.Kind == filters.Keyword && s.keyword != nil {
		t, _ := v.(filters.Text)
		s.keyword.Submit(string(t))
		return nil
	}
	s.pipe.Submit(d, v)
	return nil
}

func (s *Session) SubmitKeyword(text string) {
	if s.keyword == nil {
		s.logger.Debug("keyword submit ignored; no keyword filter")
		return
	}
	s.keyword.Submit(text)
}

// SubmitLocation runs a location search: current filters are kept, the
// location keys are replaced, page and mapSearch are dropped.
func (s *Session) SubmitLocation(address string, origin model.LatLng, bounds *model.Bounds) bool {
	next := urlquery.Params{}
	for k, v := range s.reg.Validate(s.pipe.Committed()) {
		if !urlquery.IsReserved(k) {
			next[k] = v
		}
	}
	if address != "" {
		next[urlquery.KeyAddress] = address
	}
	if s.cfg.SortByDistance && origin.Validate() == nil {
		next[urlquery.KeyOrigin] = origin.String()
	}
	if bounds != nil && bounds.Validate() == nil {
		next[urlquery.KeyBounds] = bounds.String()
	}
	return s.pipe.Replace("location", next)
}

// Close stops every pending timer and detaches from the viewport.
func (s *Session) Close() {
	if s.keyword != nil {
		s.keyword.Unmount()
	}
	s.mapSync.Close()
	s.layout.Close()
}
