// Package commit turns widget edits into navigations of the search page.
package commit

import (
	"log/slog"

	"github.com/mohammed-shakir/listing-search/internal/core/model"
	"github.com/mohammed-shakir/listing-search/internal/core/observability"
	"github.com/mohammed-shakir/listing-search/internal/filters"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

// Navigator is the routing layer. It owns the committed parameters; callers
// read them fresh through Location and change them only through Navigate.
type Navigator interface {
	Location() model.Location
	Navigate(path string, params urlquery.Params)
}

type Pipeline struct {
	nav    Navigator
	path   string
	logger *slog.Logger
}

func NewPipeline(nav Navigator, pagePath string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{nav: nav, path: pagePath, logger: logger}
}

func (p *Pipeline) PagePath() string { return p.path }

func (p *Pipeline) Location() model.Location { return p.nav.Location() }

// Committed parses the parameters currently in the address bar.
func (p *Pipeline) Committed() urlquery.Params {
	return urlquery.Parse(p.nav.Location().Search, urlquery.DefaultHints)
}

// Commit merges one parameter into the committed set, or removes it when
// present is false, and navigates.
func (p *Pipeline) Commit(paramName, value string, present bool) bool {
	next := p.Committed()
	if present && value != "" {
		next[paramName] = value
	} else {
		delete(next, paramName)
	}
	return p.Replace("filter", next)
}

// Submit encodes v for d and commits it immediately.
func (p *Pipeline) Submit(d filters.Descriptor, v filters.Value) bool {
	raw, ok := filters.Encode(d, v)
	return p.Commit(d.ParamName, raw, ok)
}

// Replace navigates to params as a whole. Navigating to the set that is
// already committed is skipped.
func (p *Pipeline) Replace(source string, params urlquery.Params) bool {
	if params.Equal(p.Committed()) {
		observability.IncNavigation(source, "noop")
		p.logger.Debug("navigation skipped; params already committed",
			"source", source, "search", urlquery.Stringify(params))
		return false
	}
	p.nav.Navigate(p.path, params.Clone())
	observability.IncNavigation(source, "navigated")
	p.logger.Debug("navigated", "source", source, "path", p.path, "search", urlquery.Stringify(params))
	return true
}
