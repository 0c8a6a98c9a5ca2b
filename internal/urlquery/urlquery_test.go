package urlquery

import (
	"testing"
)

func TestParse_PlainAndHinted(t *testing.T) {
	p := Parse("?pub_category=Venues&origin=59.33,18.06&bounds=59.4,18.2,59.3,17.9&keywords=party+tent", DefaultHints)

	want := Params{
		"pub_category": "Venues",
		"origin":       "59.33,18.06",
		"bounds":       "59.4,18.2,59.3,17.9",
		"keywords":     "party tent",
	}
	if !p.Equal(want) {
		t.Fatalf("got %v want %v", p, want)
	}
}

func TestParse_MalformedHintedKeysDropped(t *testing.T) {
	p := Parse("origin=abc&bounds=1,2,3&pub_types=a,b", DefaultHints)
	if _, ok := p["origin"]; ok {
		t.Fatalf("malformed origin should be dropped: %v", p)
	}
	if _, ok := p["bounds"]; ok {
		t.Fatalf("malformed bounds should be dropped: %v", p)
	}
	if p["pub_types"] != "a,b" {
		t.Fatalf("plain list lost: %v", p)
	}
}

func TestParse_WithoutHintsKeepsRawLists(t *testing.T) {
	p := Parse("bounds=1,2,3", Hints{})
	if p["bounds"] != "1,2,3" {
		t.Fatalf("got %v", p)
	}
}

func TestParse_UnknownKeysPassThrough_EmptyDropped(t *testing.T) {
	p := Parse("pub_custom=x&empty=&&=novalue&page=2", DefaultHints)
	want := Params{"pub_custom": "x", "page": "2"}
	if !p.Equal(want) {
		t.Fatalf("got %v want %v", p, want)
	}
}

func TestParse_BadEscapeIsSkipped(t *testing.T) {
	p := Parse("a=%zz&b=ok", DefaultHints)
	if _, ok := p["a"]; ok {
		t.Fatalf("bad escape should be skipped: %v", p)
	}
	if p["b"] != "ok" {
		t.Fatalf("got %v", p)
	}
}

func TestStringify_SortedAndEscaped(t *testing.T) {
	got := Stringify(Params{"z": "1", "a": "x y", "m": "a,b"})
	want := "a=x+y&m=a%2Cb&z=1"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if Stringify(nil) != "" {
		t.Fatalf("empty params must stringify to empty string")
	}
}

func TestRoundTripLaw(t *testing.T) {
	inputs := []string{
		"",
		"?page=3",
		"pub_category=Photo+Booth&pub_types=Open-Air,Traditional&price=10,500",
		"origin=59.330000,18.060000&bounds=59.40,18.2,59.30,17.9&address=Stockholm%2C+Sweden",
		"dates=2024-05-01,2024-05-03&keywords=%2Bplus%26amp&x=%20padded%20",
		"origin=1000,1&bounds=bad",
	}
	for _, s := range inputs {
		first := Parse(s, DefaultHints)
		second := Parse(Stringify(first), DefaultHints)
		if !first.Equal(second) {
			t.Fatalf("round trip failed for %q:\n first=%v\nsecond=%v", s, first, second)
		}
	}
}

func TestWithWithout_DoNotMutate(t *testing.T) {
	base := Params{"a": "1", "b": "2"}
	w := base.With("c", "3")
	if _, ok := base["c"]; ok {
		t.Fatalf("With mutated receiver")
	}
	if w["c"] != "3" {
		t.Fatalf("With did not set: %v", w)
	}
	cleared := w.With("a", "")
	if _, ok := cleared["a"]; ok {
		t.Fatalf("With(empty) must remove key: %v", cleared)
	}
	wo := base.Without("a", "missing")
	if _, ok := wo["a"]; ok || base["a"] != "1" {
		t.Fatalf("Without wrong: base=%v out=%v", base, wo)
	}
}

func TestTypedAccessors(t *testing.T) {
	p := Parse("origin=1.5,2.5&bounds=2,3,1,1", DefaultHints)
	if ll, ok := p.LatLng("origin"); !ok || ll.Lat != 1.5 || ll.Lng != 2.5 {
		t.Fatalf("LatLng: %v %v", ll, ok)
	}
	if b, ok := p.Bounds("bounds"); !ok || b.NE.Lat != 2 || b.SW.Lng != 1 {
		t.Fatalf("Bounds: %v %v", b, ok)
	}
	if _, ok := p.Bounds("missing"); ok {
		t.Fatalf("missing key reported present")
	}
	if !IsReserved("mapSearch") || IsReserved("price") {
		t.Fatalf("IsReserved wrong")
	}
}

func TestIsReserved_FixedSet(t *testing.T) {
	for _, k := range []string{KeyPage, KeyAddress, KeyOrigin, KeyBounds, KeyMapSearch} {
		if !IsReserved(k) {
			t.Fatalf("%q should be reserved", k)
		}
	}
	for _, k := range []string{"", "pub_category", "Page", "bounds "} {
		if IsReserved(k) {
			t.Fatalf("%q should not be reserved", k)
		}
	}
}
