package routing

import (
	"testing"

	"github.com/mohammed-shakir/listing-search/internal/core/model"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

func TestHistory_NavigateAndListen(t *testing.T) {
	h := NewHistory(SearchPagePath, "page=2")

	var seen []model.Location
	unsub := h.Listen(func(l model.Location) { seen = append(seen, l) })

	h.Navigate(SearchPagePath, urlquery.Params{"price": "10,50", "pub_category": "Venues"})
	if got := h.Location(); got.Search != "price=10%2C50&pub_category=Venues" {
		t.Fatalf("search=%q", got.Search)
	}
	if len(seen) != 1 {
		t.Fatalf("listener calls=%d want 1", len(seen))
	}

	unsub()
	h.Navigate(ListingPagePath, nil)
	if len(seen) != 1 {
		t.Fatalf("listener called after unsubscribe")
	}
	if h.Pushes() != 2 || len(h.Entries()) != 3 {
		t.Fatalf("pushes=%d entries=%d", h.Pushes(), len(h.Entries()))
	}
	if h.Location().Pathname != ListingPagePath {
		t.Fatalf("pathname=%q", h.Location().Pathname)
	}
}
