// Package h3mapper maps search viewports and listing locations to H3 cells.
package h3mapper

import (
	"errors"
	"fmt"
	"math"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/listing-search/internal/core/model"
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

// CellForPoint returns the cell containing p at res.
func (m *Mapper) CellForPoint(p model.LatLng, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("point: %w", err)
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lng}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return c.String(), nil
}

// CellsForBounds returns every cell overlapping a viewport box, so that any
// point inside the box maps into the result. The box is grown by a margin of
// one and a half cell edges before the centroid polyfill.
func (m *Mapper) CellsForBounds(b model.Bounds, res int) ([]string, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("bounds: %w", err)
	}
	south, west, north, east := grow(b, res)

	var out []string
	for _, r := range lngRanges(west, east) {
		cells, err := polyfillOne(box(south, r[0], north, r[1]), res)
		if err != nil {
			return nil, err
		}
		out = append(out, cells...)
	}
	for _, p := range []model.LatLng{b.Center(), b.NE, b.SW, {Lat: b.NE.Lat, Lng: b.SW.Lng}, {Lat: b.SW.Lat, Lng: b.NE.Lng}} {
		c, err := m.CellForPoint(p, res)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return sortedUnique(out), nil
}

// average hexagon edge length in km per resolution
var edgeKm = [16]float64{
	1281.256, 483.057, 182.513, 68.979, 26.072, 9.854, 3.725, 1.406,
	0.531, 0.201, 0.076, 0.0287, 0.0108, 0.0041, 0.00154, 0.00058,
}

func grow(b model.Bounds, res int) (south, west, north, east float64) {
	const kmPerDeg = 111.32
	margin := 1.5 * edgeKm[res]
	dLat := margin / kmPerDeg

	south = math.Max(b.SW.Lat-dLat, -90)
	north = math.Min(b.NE.Lat+dLat, 90)

	maxAbsLat := math.Max(math.Abs(south), math.Abs(north))
	cos := math.Cos(maxAbsLat * math.Pi / 180)
	dLng := 180.0
	if cos > 1e-6 {
		dLng = math.Min(margin/(kmPerDeg*cos), 180)
	}
	west, east = b.SW.Lng-dLng, b.NE.Lng+dLng
	span := east - west
	if b.NE.Lng < b.SW.Lng {
		span += 360
	}
	if span >= 360 {
		return south, -180, north, 180
	}
	if west < -180 {
		west += 360
	}
	if east > 180 {
		east -= 360
	}
	return south, west, north, east
}

// lngRanges splits [west, east] at the antimeridian and into pieces no wider
// than 90 degrees; polyfill treats wider loops as crossing the antimeridian.
func lngRanges(west, east float64) [][2]float64 {
	var spans [][2]float64
	if west <= east {
		spans = [][2]float64{{west, east}}
	} else {
		spans = [][2]float64{{west, 180}, {-180, east}}
	}
	var out [][2]float64
	for _, sp := range spans {
		for lo := sp[0]; lo < sp[1]; lo += 90 {
			out = append(out, [2]float64{lo, math.Min(lo+90, sp[1])})
		}
		if sp[0] == sp[1] {
			out = append(out, sp)
		}
	}
	return out
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

func box(south, west, north, east float64) h3.GeoLoop {
	return h3.GeoLoop{
		{Lat: south, Lng: west},
		{Lat: south, Lng: east},
		{Lat: north, Lng: east},
		{Lat: north, Lng: west},
	}
}

// polyfillOne returns unique cells sorted for determinism. A box smaller
// than one cell still yields the cell under its centre.
func polyfillOne(outer h3.GeoLoop, res int) ([]string, error) {
	if len(outer) < 4 {
		return nil, errors.New("outer ring has < 4 vertices")
	}
	indexes, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}
	if len(indexes) == 0 {
		c, err := h3.LatLngToCell(h3.LatLng{
			Lat: (outer[0].Lat + outer[2].Lat) / 2,
			Lng: (outer[0].Lng + outer[2].Lng) / 2,
		}, res)
		if err != nil {
			return nil, fmt.Errorf("h3 cell: %w", err)
		}
		return []string{c.String()}, nil
	}
	out := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, idx.String())
	}
	return sortedUnique(out), nil
}

func sortedUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ToParent returns the ancestor of cell at parentRes. A cell already at
// parentRes is returned unchanged.
func (m *Mapper) ToParent(cell string, parentRes int) (string, error) {
	if err := validateRes(parentRes); err != nil {
		return "", err
	}
	var c h3.Cell
	if err := c.UnmarshalText([]byte(cell)); err != nil {
		return "", fmt.Errorf("parse cell: %w", err)
	}
	if !c.IsValid() {
		return "", fmt.Errorf("invalid h3 cell %q", cell)
	}
	cur := c.Resolution()
	if parentRes > cur {
		return "", fmt.Errorf("parentRes %d must be <= cell resolution %d", parentRes, cur)
	}
	if parentRes == cur {
		return cell, nil
	}
	p, err := c.Parent(parentRes)
	if err != nil {
		return "", fmt.Errorf("h3 parent: %w", err)
	}
	return p.String(), nil
}

// EstimateCells approximates how many cells CellsForBounds would return,
// without running the polyfill.
func (m *Mapper) EstimateCells(b model.Bounds, res int) (int, error) {
	if err := validateRes(res); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, fmt.Errorf("bounds: %w", err)
	}
	const kmPerDeg = 111.32
	south, west, north, east := grow(b, res)
	lngSpan := east - west
	if lngSpan < 0 {
		lngSpan += 360
	}
	if west == -180 && east == 180 {
		lngSpan = 360
	}
	mid := (south + north) / 2
	areaKm2 := (north - south) * kmPerDeg * lngSpan * kmPerDeg * math.Cos(mid*math.Pi/180)
	hexKm2 := 1.5 * math.Sqrt(3) * edgeKm[res] * edgeKm[res]
	n := math.Ceil(math.Abs(areaKm2)/hexKm2) + 5
	if n > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(n), nil
}
