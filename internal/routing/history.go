// Package routing keeps an in-memory browser-style history of the search page.
package routing

import (
	"maps"
	"slices"
	"sync"

	"github.com/mohammed-shakir/listing-search/internal/core/model"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

// Well-known page routes.
const (
	SearchPagePath  = "/s"
	ListingPagePath = "/l"
)

type History struct {
	mu        sync.Mutex
	entries   []model.Location
	listeners map[int]func(model.Location)
	nextID    int
}

func NewHistory(pathname, search string) *History {
	return &History{
		entries:   []model.Location{{Pathname: pathname, Search: search}},
		listeners: map[int]func(model.Location){},
	}
}

func (h *History) Location() model.Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Navigate pushes a new entry and notifies listeners outside the lock.
func (h *History) Navigate(path string, params urlquery.Params) {
	loc := model.Location{Pathname: path, Search: urlquery.Stringify(params)}
	h.mu.Lock()
	h.entries = append(h.entries, loc)
	ls := make([]func(model.Location), 0, len(h.listeners))
	for _, id := range slices.Sorted(maps.Keys(h.listeners)) {
		ls = append(ls, h.listeners[id])
	}
	h.mu.Unlock()

	for _, f := range ls {
		f(loc)
	}
}

// Listen registers f for every navigation and returns its unsubscribe func.
func (h *History) Listen(f func(model.Location)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = f
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// Entries returns every location, oldest first.
func (h *History) Entries() []model.Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.entries)
}

// Pushes is the number of navigations since construction.
func (h *History) Pushes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries) - 1
}
