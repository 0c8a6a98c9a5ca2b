// Package replay drives a search session from a recorded JSON-lines script
// on a manual clock, reporting every navigation the session makes.
package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mohammed-shakir/listing-search/internal/core/model"
	"github.com/mohammed-shakir/listing-search/internal/filters"
	"github.com/mohammed-shakir/listing-search/internal/panel"
	"github.com/mohammed-shakir/listing-search/internal/routing"
	"github.com/mohammed-shakir/listing-search/internal/session"
	"github.com/mohammed-shakir/listing-search/internal/timer"
)

// EventWait advances the manual clock by Ms milliseconds.
const EventWait = "wait"

// Step is one script line: a session event, or a wait.
type Step struct {
	session.Event
	Ms int `json:"ms,omitempty"`
}

type Options struct {
	// URL is the starting address, e.g. "/s?pub_category=Venues".
	URL      string
	Width    int
	Session  session.Config
	Registry *filters.Registry
	Logger   *slog.Logger
}

// Navigation is written for every history push.
type Navigation struct {
	AtMs   int64  `json:"at_ms"`
	Path   string `json:"path"`
	Search string `json:"search"`
}

// Summary is written once the script ends.
type Summary struct {
	Path          string       `json:"path"`
	Search        string       `json:"search"`
	Pushes        int          `json:"pushes"`
	Panel         string       `json:"panel"`
	Layout        string       `json:"layout"`
	MapOpen       bool         `json:"map_open"`
	PendingTimers int          `json:"pending_timers"`
	Filters       session.View `json:"filters"`
}

// Run plays the script from in and writes one JSON line per navigation,
// then the summary. A bad line stops the run with its line number.
func Run(in io.Reader, out io.Writer, opts Options) (Summary, error) {
	if opts.Registry == nil {
		return Summary{}, errors.New("replay: registry is required")
	}
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	path, search := splitURL(opts.URL)
	if opts.Session.PagePath == "" {
		opts.Session.PagePath = routing.SearchPagePath
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := timer.NewFake(start)
	hist := routing.NewHistory(path, search)
	vp := panel.NewManualViewport(opts.Width)

	enc := json.NewEncoder(out)
	var writeErr error
	unlisten := hist.Listen(func(loc model.Location) {
		if writeErr != nil {
			return
		}
		writeErr = enc.Encode(Navigation{
			AtMs:   clk.Now().Sub(start).Milliseconds(),
			Path:   loc.Pathname,
			Search: loc.Search,
		})
	})
	defer unlisten()

	s, err := session.New(opts.Session, session.Deps{
		Clock:     clk,
		Navigator: hist,
		Viewport:  vp,
		Registry:  opts.Registry,
		Logger:    opts.Logger,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("replay: %w", err)
	}
	defer s.Close()

	sc := bufio.NewScanner(in)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		var st Step
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return Summary{}, fmt.Errorf("line %d: decode: %w", line, err)
		}
		if st.Type == EventWait {
			if st.Ms < 0 {
				return Summary{}, fmt.Errorf("line %d: negative wait", line)
			}
			clk.Advance(time.Duration(st.Ms) * time.Millisecond)
		} else if err := s.Dispatch(st.Event); err != nil {
			return Summary{}, fmt.Errorf("line %d: %w", line, err)
		}
		if writeErr != nil {
			return Summary{}, fmt.Errorf("write navigation: %w", writeErr)
		}
	}
	if err := sc.Err(); err != nil {
		return Summary{}, fmt.Errorf("read script: %w", err)
	}

	loc := hist.Location()
	sum := Summary{
		Path:          loc.Pathname,
		Search:        loc.Search,
		Pushes:        hist.Pushes(),
		Panel:         s.Panel().State().String(),
		Layout:        s.Layout().String(),
		MapOpen:       s.MapView().IsOpen(),
		PendingTimers: clk.Pending(),
		Filters:       s.Filters(),
	}
	if err := enc.Encode(sum); err != nil {
		return sum, fmt.Errorf("write summary: %w", err)
	}
	return sum, nil
}

func splitURL(u string) (path, search string) {
	u = strings.TrimSpace(u)
	if u == "" {
		return routing.SearchPagePath, ""
	}
	path, search, _ = strings.Cut(u, "?")
	if path == "" {
		path = routing.SearchPagePath
	}
	return path, search
}
