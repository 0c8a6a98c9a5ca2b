// Package invalidation defines the listing-change events that drop cached
// searches.
package invalidation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohammed-shakir/listing-search/internal/core/model"
)

// Event reports that a listing was created, changed or removed. A listing
// that moved carries its previous position too, since searches around the
// old spot must drop it.
type Event struct {
	Version   uint64    `json:"version"`
	Op        string    `json:"op"`
	ListingID string    `json:"listing_id"`
	TS        time.Time `json:"ts"`
	Lat       *float64  `json:"lat,omitempty"`
	Lng       *float64  `json:"lng,omitempty"`
	PrevLat   *float64  `json:"prev_lat,omitempty"`
	PrevLng   *float64  `json:"prev_lng,omitempty"`
	Cell      string    `json:"h3_cell,omitempty"`
}

func (e Event) Validate() error {
	switch e.Op {
	case "create", "update", "delete":
	default:
		return errors.New("op must be create|update|delete")
	}
	if strings.TrimSpace(e.ListingID) == "" {
		return errors.New("listing_id is required")
	}
	if e.Version == 0 {
		return errors.New("version must be positive")
	}
	pts, err := e.Points()
	if err != nil {
		return err
	}
	if len(pts) == 0 && strings.TrimSpace(e.Cell) == "" {
		return errors.New("one of lat/lng or h3_cell is required")
	}
	return nil
}

// Points returns the current and previous positions that are present.
func (e Event) Points() ([]model.LatLng, error) {
	var out []model.LatLng
	add := func(name string, lat, lng *float64) error {
		if lat == nil && lng == nil {
			return nil
		}
		if lat == nil || lng == nil {
			return fmt.Errorf("%s: lat and lng must be given together", name)
		}
		p := model.LatLng{Lat: *lat, Lng: *lng}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, p)
		return nil
	}
	if err := add("location", e.Lat, e.Lng); err != nil {
		return nil, err
	}
	if err := add("previous location", e.PrevLat, e.PrevLng); err != nil {
		return nil, err
	}
	return out, nil
}
