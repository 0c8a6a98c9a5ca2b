// Package model defines core domain types shared across the service.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type LatLng struct {
	Lat float64
	Lng float64
}

// String representation used in the address bar ("lat,lng")
func (p LatLng) String() string {
	return formatCoord(p.Lat) + "," + formatCoord(p.Lng)
}

func (p LatLng) Validate() error {
	if !(p.Lat >= -90 && p.Lat <= 90) {
		return errors.New("latitude must be in [-90,90]")
	}
	if !(p.Lng >= -180 && p.Lng <= 180) {
		return errors.New("longitude must be in [-180,180]")
	}
	return nil
}

// Bounds is a viewport box given by its north-east and south-west corners.
type Bounds struct {
	NE LatLng
	SW LatLng
}

// String representation "neLat,neLng,swLat,swLng"
func (b Bounds) String() string {
	return b.NE.String() + "," + b.SW.String()
}

func (b Bounds) Validate() error {
	if err := b.NE.Validate(); err != nil {
		return fmt.Errorf("ne: %w", err)
	}
	if err := b.SW.Validate(); err != nil {
		return fmt.Errorf("sw: %w", err)
	}
	if b.NE.Lat < b.SW.Lat {
		return errors.New("ne latitude must not be below sw latitude")
	}
	return nil
}

// Center of the box. Boxes crossing the antimeridian (ne.lng < sw.lng) wrap.
func (b Bounds) Center() LatLng {
	lat := (b.NE.Lat + b.SW.Lat) / 2
	lng := (b.NE.Lng + b.SW.Lng) / 2
	if b.NE.Lng < b.SW.Lng {
		lng += 180
		if lng > 180 {
			lng -= 360
		}
	}
	return LatLng{Lat: lat, Lng: lng}
}

func ParseLatLng(s string) (LatLng, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return LatLng{}, errors.New("expected 2 comma-separated values: lat,lng")
	}
	vals, err := parseFloats(parts)
	if err != nil {
		return LatLng{}, err
	}
	p := LatLng{Lat: vals[0], Lng: vals[1]}
	if err := p.Validate(); err != nil {
		return LatLng{}, err
	}
	return p, nil
}

func ParseBounds(s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, errors.New("expected 4 comma-separated values: neLat,neLng,swLat,swLng")
	}
	vals, err := parseFloats(parts)
	if err != nil {
		return Bounds{}, err
	}
	b := Bounds{
		NE: LatLng{Lat: vals[0], Lng: vals[1]},
		SW: LatLng{Lat: vals[2], Lng: vals[3]},
	}
	if err := b.Validate(); err != nil {
		return Bounds{}, err
	}
	return b, nil
}

func parseFloats(parts []string) ([]float64, error) {
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: parse float: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

// shortest representation that parses back to the same float
func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Location is what the routing layer reports for the current page.
type Location struct {
	Pathname string
	Search   string
}
