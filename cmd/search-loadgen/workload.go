package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/listing-search/internal/core/model"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

// search is one entry of the request pool.
type search struct {
	Bounds   model.Bounds
	Category string
	Page     int
}

func (s search) Query() url.Values {
	q := url.Values{}
	q.Set(urlquery.KeyBounds, s.Bounds.String())
	q.Set(urlquery.KeyMapSearch, "true")
	if s.Category != "" {
		q.Set("pub_category", s.Category)
	}
	if s.Page > 1 {
		q.Set(urlquery.KeyPage, strconv.Itoa(s.Page))
	}
	return q
}

func box(center model.LatLng, w, h float64) model.Bounds {
	return model.Bounds{
		NE: model.LatLng{Lat: center.Lat + h/2, Lng: center.Lng + w/2},
		SW: model.LatLng{Lat: center.Lat - h/2, Lng: center.Lng - w/2},
	}
}

// makeSearches mixes "hot" city viewports with "cold" random ones.
func makeSearches(count int, categories []string, r *rand.Rand) []search {
	centers := []model.LatLng{
		{Lat: 60.1699, Lng: 24.9384}, // Helsinki
		{Lat: 59.3293, Lng: 18.0686}, // Stockholm
		{Lat: 59.9139, Lng: 10.7522}, // Oslo
		{Lat: 55.6761, Lng: 12.5683}, // Copenhagen
	}
	out := make([]search, 0, count)
	hot := int(math.Max(8, float64(count/4)))

	for i := range hot {
		c := centers[i%len(centers)]
		c.Lat += (r.Float64() - 0.5) * 0.10
		c.Lng += (r.Float64() - 0.5) * 0.20
		out = append(out, search{
			Bounds:   box(c, 0.15+r.Float64()*0.10, 0.08+r.Float64()*0.05),
			Category: pick(categories, r),
		})
	}
	for len(out) < count {
		c := model.LatLng{Lat: 55 + r.Float64()*(66-55), Lng: 5 + r.Float64()*(30-5)}
		out = append(out, search{
			Bounds:   box(c, 0.05+0.2*r.Float64(), 0.05+0.1*r.Float64()),
			Category: pick(categories, r),
			Page:     1 + r.Intn(3),
		})
	}
	return out
}

func pick(options []string, r *rand.Rand) string {
	if len(options) == 0 {
		return ""
	}
	// unfiltered half the time
	if r.Intn(2) == 0 {
		return ""
	}
	return options[r.Intn(len(options))]
}

// loadLocationsCSV reads an id,lat,lng file of listing locations.
func loadLocationsCSV(path string) ([]model.LatLng, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open locations: %w", err)
	}
	defer func() { _ = f.Close() }()
	return readLocations(f)
}

func readLocations(in io.Reader) ([]model.LatLng, error) {
	r := csv.NewReader(in)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	latIdx, okLat := col["lat"]
	lngIdx, okLng := col["lng"]
	if !okLat || !okLng {
		return nil, fmt.Errorf("locations csv: expected columns lat,lng; got %v", header)
	}

	var out []model.LatLng
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		p, err := model.ParseLatLng(rec[latIdx] + "," + rec[lngIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(out)+1, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// searchesFromLocations centres a small viewport on each location.
func searchesFromLocations(locs []model.LatLng, count int) []search {
	if len(locs) == 0 || count <= 0 {
		return nil
	}
	count = min(count, len(locs))
	out := make([]search, 0, count)
	for i := range count {
		out = append(out, search{Bounds: box(locs[i], 0.04, 0.02)})
	}
	return out
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	k := (p / 100.0) * float64(len(sorted)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	d := k - f
	return sorted[i]*(1-d) + sorted[i+1]*d
}
