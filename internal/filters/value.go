package filters

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/listing-search/internal/urlquery"
)

// DateLayout is the ordinal date format used in the address bar.
const DateLayout = "2006-01-02"

// Value is the structured value a widget edits. The set of implementations
// is closed: Single, Multi, Price, Dates and Text.
type Value interface {
	Kind() Kind
	Empty() bool
	isValue()
}

type Single string

type Multi []string

type Price struct {
	Min *int
	Max *int
}

type DateSpan struct {
	Start time.Time
	End   time.Time
}

type Dates struct {
	Span *DateSpan
}

type Text string

func (Single) Kind() Kind { return SingleSelect }
func (Multi) Kind() Kind  { return MultiSelect }
func (Price) Kind() Kind  { return PriceRange }
func (Dates) Kind() Kind  { return DateRange }
func (Text) Kind() Kind   { return Keyword }

func (v Single) Empty() bool { return v == "" }
func (v Multi) Empty() bool  { return len(v) == 0 }
func (v Price) Empty() bool  { return v.Min == nil || v.Max == nil }
func (v Dates) Empty() bool {
	return v.Span == nil || v.Span.Start.IsZero() || v.Span.End.IsZero()
}
func (v Text) Empty() bool { return strings.TrimSpace(string(v)) == "" }

func (Single) isValue() {}
func (Multi) isValue()  {}
func (Price) isValue()  {}
func (Dates) isValue()  {}
func (Text) isValue()   {}

// NewPrice is a convenience for building a fully set price range.
func NewPrice(lo, hi int) Price {
	return Price{Min: &lo, Max: &hi}
}

func NewDates(start, end time.Time) Dates {
	return Dates{Span: &DateSpan{Start: start, End: end}}
}

// Zero returns the empty value for a kind.
func Zero(k Kind) Value {
	switch k {
	case SingleSelect:
		return Single("")
	case MultiSelect:
		return Multi(nil)
	case PriceRange:
		return Price{}
	case DateRange:
		return Dates{}
	default:
		return Text("")
	}
}

// Decode is total: anything that does not fit the descriptor's grammar
// decodes to the empty value of its kind.
func Decode(d Descriptor, raw string) Value {
	switch d.Kind {
	case SingleSelect:
		return Single(raw)
	case MultiSelect:
		return decodeMulti(raw)
	case PriceRange:
		return decodePrice(raw)
	case DateRange:
		return decodeDates(raw)
	default:
		return Text(raw)
	}
}

func decodeMulti(raw string) Multi {
	if raw == "" {
		return nil
	}
	var out Multi
	for p := range strings.SplitSeq(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func decodePrice(raw string) Price {
	parts := strings.Split(raw, ",")
	if raw == "" || len(parts) != 2 {
		return Price{}
	}
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Price{}
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Price{}
	}
	return NewPrice(lo, hi)
}

func decodeDates(raw string) Dates {
	parts := strings.Split(raw, ",")
	if raw == "" || len(parts) != 2 {
		return Dates{}
	}
	start, err := time.Parse(DateLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return Dates{}
	}
	end, err := time.Parse(DateLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return Dates{}
	}
	return NewDates(start, end)
}

// Encode returns ok=false when the key must be omitted: the value is empty
// or its kind does not match the descriptor.
func Encode(d Descriptor, v Value) (string, bool) {
	if v == nil || v.Kind() != d.Kind || v.Empty() {
		return "", false
	}
	switch t := v.(type) {
	case Single:
		return string(t), true
	case Multi:
		keys := make([]string, 0, len(t))
		for _, k := range t {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			return "", false
		}
		return strings.Join(keys, ","), true
	case Price:
		return fmt.Sprintf("%d,%d", *t.Min, *t.Max), true
	case Dates:
		return t.Span.Start.Format(DateLayout) + "," + t.Span.End.Format(DateLayout), true
	case Text:
		return strings.TrimSpace(string(t)), true
	default:
		return "", false
	}
}

// InitialValue projects the committed parameters onto one widget.
func InitialValue(d Descriptor, params urlquery.Params) Value {
	return Decode(d, params[d.ParamName])
}

// Equal compares values structurally; empty values of the same kind are equal.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if a.Empty() || b.Empty() {
		return a.Empty() && b.Empty()
	}
	switch x := a.(type) {
	case Single:
		return x == b.(Single)
	case Multi:
		return slices.Equal(x, b.(Multi))
	case Price:
		y := b.(Price)
		return *x.Min == *y.Min && *x.Max == *y.Max
	case Dates:
		y := b.(Dates)
		return x.Span.Start.Equal(y.Span.Start) && x.Span.End.Equal(y.Span.End)
	case Text:
		return x == b.(Text)
	default:
		return false
	}
}
