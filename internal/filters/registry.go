package filters

import (
	"fmt"
	"slices"

	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

// Registry is the immutable set of filters a search page offers.
type Registry struct {
	descs   []Descriptor
	byParam map[string]int
}

func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{
		descs:   make([]Descriptor, 0, len(descs)),
		byParam: make(map[string]int, len(descs)),
	}
	for _, d := range descs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if urlquery.IsReserved(d.ParamName) {
			return nil, fmt.Errorf("filter %q: param name %q is reserved", d.ID, d.ParamName)
		}
		if _, dup := r.byParam[d.ParamName]; dup {
			return nil, fmt.Errorf("filter %q: duplicate param name %q", d.ID, d.ParamName)
		}
		d.Options = slices.Clone(d.Options)
		r.byParam[d.ParamName] = len(r.descs)
		r.descs = append(r.descs, d)
	}
	return r, nil
}

// Descriptors returns a copy in registration order.
func (r *Registry) Descriptors() []Descriptor {
	return slices.Clone(r.descs)
}

func (r *Registry) Lookup(paramName string) (Descriptor, bool) {
	i, ok := r.byParam[paramName]
	if !ok {
		return Descriptor{}, false
	}
	return r.descs[i], true
}

func (r *Registry) ParamNames() []string {
	out := make([]string, len(r.descs))
	for i, d := range r.descs {
		out[i] = d.ParamName
	}
	return out
}

// Validate keeps the reserved keys and every filter key whose value fits its
// descriptor. Everything else is dropped.
func (r *Registry) Validate(raw urlquery.Params) urlquery.Params {
	out := urlquery.Params{}
	for k, v := range raw {
		if urlquery.IsReserved(k) {
			out[k] = v
			continue
		}
		d, ok := r.Lookup(k)
		if !ok {
			continue
		}
		if canon, ok := r.accept(d, v); ok {
			out[k] = canon
		}
	}
	return out
}

// Pick keeps only filter keys, without checking their values.
func (r *Registry) Pick(raw urlquery.Params) urlquery.Params {
	out := urlquery.Params{}
	for k, v := range raw {
		if _, ok := r.byParam[k]; ok {
			out[k] = v
		}
	}
	return out
}

// accept re-encodes the decoded value so that only grammatical values with
// known option keys survive.
func (r *Registry) accept(d Descriptor, raw string) (string, bool) {
	v := Decode(d, raw)
	switch t := v.(type) {
	case Single:
		if !d.hasOption(string(t)) {
			return "", false
		}
	case Multi:
		known := t[:0:0]
		for _, k := range t {
			if d.hasOption(k) {
				known = append(known, k)
			}
		}
		v = known
	}
	return Encode(d, v)
}

// ResetAll drops every filter key, keeping reserved and unknown keys.
func (r *Registry) ResetAll(params urlquery.Params) urlquery.Params {
	return params.Without(r.ParamNames()...)
}

// SelectedCount is the number of filters currently carrying a value.
func (r *Registry) SelectedCount(params urlquery.Params) int {
	n := 0
	for _, d := range r.descs {
		if !InitialValue(d, params).Empty() {
			n++
		}
	}
	return n
}

// OptionsFor returns d's options narrowed by its parent filter, if any.
func (r *Registry) OptionsFor(d Descriptor, params urlquery.Params) []Option {
	if d.Children == nil {
		return slices.Clone(d.Options)
	}
	parent := params[d.Children.ParentParam]
	allowed, ok := d.Children.Allowed[parent]
	if parent == "" || !ok {
		return slices.Clone(d.Options)
	}
	out := make([]Option, 0, len(allowed))
	for _, o := range d.Options {
		if slices.Contains(allowed, o.Key) {
			out = append(out, o)
		}
	}
	return out
}
