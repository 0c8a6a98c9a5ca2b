package session

import (
	"fmt"

	"github.com/mohammed-shakir/listing-search/internal/core/model"
	"github.com/mohammed-shakir/listing-search/internal/filters"
	"github.com/mohammed-shakir/listing-search/internal/mapsync"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

// Event types understood by Dispatch.
const (
	EventFilter      = "filter"
	EventKeyword     = "keyword"
	EventLocation    = "location"
	EventOpenPanel   = "open_panel"
	EventExternal    = "external"
	EventShowResults = "show_results"
	EventCancel      = "cancel"
	EventResetAll    = "reset_all"
	EventMapSettled  = "map_settled"
	EventOpenMap     = "open_map"
	EventCloseMap    = "close_map"
	EventResize      = "resize"
	EventNavigate    = "navigate"
)

// Event is one recorded user or browser action. Values use the address-bar
// encoding (e.g. "10,50" for a price range).
type Event struct {
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Value   string `json:"value,omitempty"`
	Text    string `json:"text,omitempty"`
	Address string `json:"address,omitempty"`
	Origin  string `json:"origin,omitempty"`
	Bounds  string `json:"bounds,omitempty"`
	Changed *bool  `json:"changed,omitempty"`
	Flag    bool   `json:"flag,omitempty"`
	Width   int    `json:"width,omitempty"`
	Path    string `json:"path,omitempty"`
	Search  string `json:"search,omitempty"`
}

// Resizer is implemented by viewports that can be resized from outside.
type Resizer interface {
	Resize(width int)
}

// Dispatch applies ev to the session. Resize events need a viewport that
// implements Resizer.
func (s *Session) Dispatch(ev Event) error {
	switch ev.Type {
	case EventFilter:
		d, ok := s.reg.Lookup(ev.Param)
		if !ok {
			return fmt.Errorf("unknown filter param %q", ev.Param)
		}
		return s.SubmitFilter(ev.Param, filters.Decode(d, ev.Value))
	case EventKeyword:
		s.SubmitKeyword(ev.Text)
	case EventLocation:
		var origin model.LatLng
		if ev.Origin != "" {
			p, err := model.ParseLatLng(ev.Origin)
			if err != nil {
				return fmt.Errorf("location origin: %w", err)
			}
			origin = p
		}
		var bounds *model.Bounds
		if ev.Bounds != "" {
			b, err := model.ParseBounds(ev.Bounds)
			if err != nil {
				return fmt.Errorf("location bounds: %w", err)
			}
			bounds = &b
		}
		s.SubmitLocation(ev.Address, origin, bounds)
	case EventOpenPanel:
		s.panel.Open()
	case EventExternal:
		s.panel.SyncExternal(ev.Flag)
	case EventShowResults:
		s.panel.ShowResults()
	case EventCancel:
		s.panel.Cancel()
	case EventResetAll:
		s.panel.ResetAll()
	case EventMapSettled:
		b, err := model.ParseBounds(ev.Bounds)
		if err != nil {
			return fmt.Errorf("map bounds: %w", err)
		}
		changed := ev.Changed == nil || *ev.Changed
		s.mapSync.OnSettled(mapsync.Settled{BoundsChanged: changed, Bounds: b, Center: b.Center()})
	case EventOpenMap:
		s.mapView.OpenMap()
	case EventCloseMap:
		s.mapView.CloseMap()
	case EventResize:
		r, ok := s.viewport.(Resizer)
		if !ok {
			return fmt.Errorf("resize to %d: viewport is not resizable", ev.Width)
		}
		r.Resize(ev.Width)
	case EventNavigate:
		path := ev.Path
		if path == "" {
			path = s.cfg.PagePath
		}
		s.nav.Navigate(path, urlquery.Parse(ev.Search, urlquery.DefaultHints))
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}
