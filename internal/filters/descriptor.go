// Package filters describes the search filters, validates raw parameters
// against them and converts between raw strings and widget values.
package filters

import "fmt"

type Kind int

const (
	SingleSelect Kind = iota + 1
	MultiSelect
	PriceRange
	DateRange
	Keyword
)

func (k Kind) String() string {
	switch k {
	case SingleSelect:
		return "single_select"
	case MultiSelect:
		return "multi_select"
	case PriceRange:
		return "price_range"
	case DateRange:
		return "date_range"
	case Keyword:
		return "keyword"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type RangeConfig struct {
	Min  int `json:"min"`
	Max  int `json:"max"`
	Step int `json:"step"`
}

// ChildOptions narrows a multi-select's options by the committed value of a
// parent filter. Parent values without an entry keep every option.
type ChildOptions struct {
	ParentParam string
	Allowed     map[string][]string
}

type Descriptor struct {
	ID        string
	Kind      Kind
	ParamName string
	Options   []Option
	Range     *RangeConfig
	// Active gates date range and keyword widgets; select and price filters
	// ignore it.
	Active   bool
	Children *ChildOptions
}

func (d Descriptor) hasOption(key string) bool {
	// no options configured: any key is accepted
	if len(d.Options) == 0 {
		return true
	}
	for _, o := range d.Options {
		if o.Key == key {
			return true
		}
	}
	return false
}

// Enabled reports whether a widget should be shown for d.
func (d Descriptor) Enabled() bool {
	switch d.Kind {
	case DateRange, Keyword:
		return d.Active
	default:
		return true
	}
}

func (d Descriptor) validate() error {
	if d.ParamName == "" {
		return fmt.Errorf("filter %q: param name is required", d.ID)
	}
	switch d.Kind {
	case SingleSelect, MultiSelect, DateRange, Keyword:
	case PriceRange:
		if d.Range != nil && d.Range.Min > d.Range.Max {
			return fmt.Errorf("filter %q: range min %d > max %d", d.ID, d.Range.Min, d.Range.Max)
		}
	default:
		return fmt.Errorf("filter %q: unknown kind %d", d.ID, int(d.Kind))
	}
	if d.Children != nil && d.Kind != MultiSelect {
		return fmt.Errorf("filter %q: child options need a multi-select", d.ID)
	}
	return nil
}
