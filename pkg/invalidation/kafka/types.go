package kafka

import "time"

// WireEvent is the operator form of an invalidation: it names cached search
// keys or index cells directly instead of a listing.
type WireEvent struct {
	Keys    []string  `json:"keys,omitempty"`
	Cells   []string  `json:"h3_cells,omitempty"`
	Source  string    `json:"source,omitempty"`
	Version uint64    `json:"version"`
	TS      time.Time `json:"ts"`
	Op      string    `json:"op,omitempty"`
}

func (w WireEvent) dedupeKey() string {
	if w.Source == "" {
		return "wire"
	}
	return "wire:" + w.Source
}
