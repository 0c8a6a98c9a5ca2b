package session

import (
	"github.com/mohammed-shakir/listing-search/internal/filters"
	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

// FilterState is what one filter widget renders for the committed parameters.
type FilterState struct {
	ID       string               `json:"id"`
	Kind     string               `json:"kind"`
	Param    string               `json:"param"`
	Value    filters.Value        `json:"-"`
	Raw      string               `json:"value,omitempty"`
	Options  []filters.Option     `json:"options,omitempty"`
	Range    *filters.RangeConfig `json:"range,omitempty"`
	Selected bool                 `json:"selected"`
}

type View struct {
	Filters       []FilterState `json:"filters"`
	SelectedCount int           `json:"selected_count"`
}

// Project derives every enabled filter's state from params. Disabled filters
// (inactive date range or keyword) are left out.
func Project(reg *filters.Registry, params urlquery.Params) View {
	v := View{Filters: []FilterState{}, SelectedCount: reg.SelectedCount(params)}
	for _, d := range reg.Descriptors() {
		if !d.Enabled() {
			continue
		}
		val := filters.InitialValue(d, params)
		raw, _ := filters.Encode(d, val)
		fs := FilterState{
			ID:       d.ID,
			Kind:     d.Kind.String(),
			Param:    d.ParamName,
			Value:    val,
			Raw:      raw,
			Options:  reg.OptionsFor(d, params),
			Range:    d.Range,
			Selected: !val.Empty(),
		}
		v.Filters = append(v.Filters, fs)
	}
	return v
}
