package filters

import (
	"testing"
	"time"

	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

var (
	categoryDesc = Descriptor{
		ID: "categoryFilter", Kind: SingleSelect, ParamName: "pub_category",
		Options: []Option{{Key: "Venues", Label: "Venues"}, {Key: "Platters", Label: "Platters"}, {Key: "Photo Booth", Label: "Photo Booth"}},
	}
	typesDesc = Descriptor{
		ID: "typesFilter", Kind: MultiSelect, ParamName: "pub_types",
		Options: []Option{
			{Key: "Frozen", Label: "Frozen"},
			{Key: "Open-Air", Label: "Open-Air"},
			{Key: "Traditional", Label: "Traditional"},
			{Key: "Mirrorless", Label: "Mirrorless"},
		},
		Children: &ChildOptions{
			ParentParam: "pub_category",
			Allowed:     map[string][]string{"Photo Booth": {"Open-Air", "Traditional"}},
		},
	}
	priceDesc   = Descriptor{ID: "priceFilter", Kind: PriceRange, ParamName: "price", Range: &RangeConfig{Min: 0, Max: 1000, Step: 5}}
	datesDesc   = Descriptor{ID: "dateRangeFilter", Kind: DateRange, ParamName: "dates", Active: true}
	keywordDesc = Descriptor{ID: "keywordFilter", Kind: Keyword, ParamName: "keywords", Active: true}
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(categoryDesc, typesDesc, priceDesc, datesDesc, keywordDesc)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []struct {
		d Descriptor
		v Value
	}{
		{categoryDesc, Single("Venues")},
		{typesDesc, Multi{"Open-Air"}},
		{typesDesc, Multi{"Traditional", "Open-Air"}},
		{priceDesc, NewPrice(120, 450)},
		{priceDesc, NewPrice(-5, 0)},
		{datesDesc, NewDates(day(2024, 5, 1), day(2024, 5, 3))},
		{keywordDesc, Text("bouncy castle")},
	}
	for _, c := range cases {
		raw, ok := Encode(c.d, c.v)
		if !ok {
			t.Fatalf("%s: Encode(%v) reported absence", c.d.ID, c.v)
		}
		got := Decode(c.d, raw)
		if !Equal(got, c.v) {
			t.Fatalf("%s: Decode(Encode(%v)) = %v (raw %q)", c.d.ID, c.v, got, raw)
		}
	}
}

func TestEncode_KnownShapes(t *testing.T) {
	if raw, _ := Encode(priceDesc, NewPrice(120, 450)); raw != "120,450" {
		t.Fatalf("price raw=%q", raw)
	}
	if raw, _ := Encode(typesDesc, Multi{"a", "b"}); raw != "a,b" {
		t.Fatalf("multi raw=%q", raw)
	}
	withClock := NewDates(time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC), day(2024, 5, 2))
	if raw, _ := Encode(datesDesc, withClock); raw != "2024-05-01,2024-05-02" {
		t.Fatalf("dates raw=%q", raw)
	}
}

func TestEncode_EmptyIsAbsence(t *testing.T) {
	lo := 10
	empties := []struct {
		d Descriptor
		v Value
	}{
		{categoryDesc, Single("")},
		{typesDesc, Multi{}},
		{typesDesc, Multi(nil)},
		{typesDesc, Multi{"", " "}},
		{priceDesc, Price{}},
		{priceDesc, Price{Min: &lo}},
		{datesDesc, Dates{}},
		{datesDesc, Dates{Span: &DateSpan{Start: day(2024, 1, 1)}}},
		{keywordDesc, Text("")},
		{keywordDesc, Text("   ")},
		{keywordDesc, nil},
		{priceDesc, Single("Venues")},
	}
	for _, c := range empties {
		if raw, ok := Encode(c.d, c.v); ok {
			t.Fatalf("%s: Encode(%#v) = %q, want absence", c.d.ID, c.v, raw)
		}
	}
}

func TestDecode_IsTotal_MalformedRangesAreAbsent(t *testing.T) {
	for _, raw := range []string{"", "1", "1,", ",2", "1,2,3", "a,b", "1.5,2", "10,x", ","} {
		if v := Decode(priceDesc, raw); !v.Empty() {
			t.Fatalf("price %q decoded to %v", raw, v)
		}
	}
	for _, raw := range []string{"", "2024-01-01", "2024-01-01,", "2024-13-01,2024-01-02", "x,y", "2024-01-01T10:00:00Z,2024-01-02", "2024-01-01,2024-01-02,2024-01-03"} {
		if v := Decode(datesDesc, raw); !v.Empty() {
			t.Fatalf("dates %q decoded to %v", raw, v)
		}
	}
	if v := Decode(typesDesc, ""); !v.Empty() {
		t.Fatalf("multi empty decoded to %v", v)
	}
	if v := Decode(typesDesc, "a,,b"); !Equal(v, Multi{"a", "b"}) {
		t.Fatalf("multi with empty token decoded to %v", v)
	}
}

func TestValidate_KeepsKnownAndReservedOnly(t *testing.T) {
	r := testRegistry(t)
	raw := urlquery.Params{
		"pub_category": "Venues",
		"price":        "10,50",
		"keywords":     "tent",
		"page":         "2",
		"address":      "Stockholm",
		"origin":       "1,2",
		"bounds":       "2,2,1,1",
		"mapSearch":    "true",
		"pub_unknown":  "x",
		"sort":         "-price",
	}
	got := r.Validate(raw)
	want := urlquery.Params{
		"pub_category": "Venues",
		"price":        "10,50",
		"keywords":     "tent",
		"page":         "2",
		"address":      "Stockholm",
		"origin":       "1,2",
		"bounds":       "2,2,1,1",
		"mapSearch":    "true",
	}
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestValidate_DropsMalformedValues(t *testing.T) {
	r := testRegistry(t)
	got := r.Validate(urlquery.Params{
		"pub_category": "Spaceships",
		"pub_types":    "Frozen,Bogus",
		"price":        "10",
		"dates":        "tomorrow,later",
	})
	want := urlquery.Params{"pub_types": "Frozen"}
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestPick_FiltersOnly(t *testing.T) {
	r := testRegistry(t)
	got := r.Pick(urlquery.Params{"price": "bad", "page": "1", "other": "x"})
	if !got.Equal(urlquery.Params{"price": "bad"}) {
		t.Fatalf("got %v", got)
	}
}

func TestResetAll_LeavesNonFilterKeys(t *testing.T) {
	r := testRegistry(t)
	got := r.ResetAll(urlquery.Params{"pub_category": "Venues", "price": "10,50", "page": "2"})
	if !got.Equal(urlquery.Params{"page": "2"}) {
		t.Fatalf("got %v", got)
	}
}

func TestSelectedCount(t *testing.T) {
	r := testRegistry(t)
	n := r.SelectedCount(urlquery.Params{"pub_category": "Venues", "price": "oops", "keywords": "x", "page": "3"})
	if n != 2 {
		t.Fatalf("SelectedCount=%d want 2", n)
	}
}

func TestOptionsFor_NarrowsByParentCategory(t *testing.T) {
	r := testRegistry(t)
	d, _ := r.Lookup("pub_types")

	got := r.OptionsFor(d, urlquery.Params{"pub_category": "Photo Booth"})
	if len(got) != 2 || got[0].Key != "Open-Air" || got[1].Key != "Traditional" {
		t.Fatalf("narrowed options = %v", got)
	}
	if all := r.OptionsFor(d, urlquery.Params{"pub_category": "Venues"}); len(all) != 4 {
		t.Fatalf("unmapped parent should keep all options, got %v", all)
	}
	if all := r.OptionsFor(d, urlquery.Params{}); len(all) != 4 {
		t.Fatalf("no parent should keep all options, got %v", all)
	}
}

func TestNewRegistry_Errors(t *testing.T) {
	if _, err := NewRegistry(categoryDesc, categoryDesc); err == nil {
		t.Fatalf("expected duplicate param error")
	}
	if _, err := NewRegistry(Descriptor{ID: "x", Kind: Keyword, ParamName: "page"}); err == nil {
		t.Fatalf("expected reserved param error")
	}
	if _, err := NewRegistry(Descriptor{ID: "x", Kind: Kind(99), ParamName: "x"}); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	if _, err := NewRegistry(Descriptor{ID: "x", Kind: PriceRange, ParamName: "p", Range: &RangeConfig{Min: 5, Max: 1}}); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestInitialValue_AndEnabled(t *testing.T) {
	p := urlquery.Params{"price": "120,450", "dates": "2024-05-01,2024-05-03"}
	if v := InitialValue(priceDesc, p); !Equal(v, NewPrice(120, 450)) {
		t.Fatalf("price initial=%v", v)
	}
	if v := InitialValue(datesDesc, p); !Equal(v, NewDates(day(2024, 5, 1), day(2024, 5, 3))) {
		t.Fatalf("dates initial=%v", v)
	}
	if v := InitialValue(keywordDesc, p); !v.Empty() {
		t.Fatalf("keyword initial=%v", v)
	}
	inactive := keywordDesc
	inactive.Active = false
	if inactive.Enabled() || !priceDesc.Enabled() {
		t.Fatalf("Enabled wrong")
	}
}
