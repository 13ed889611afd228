package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// FacetKind - how a facet is selected and matched.
type FacetKind string

const (
	FacetMultiSelect FacetKind = "multi_select"
	FacetRange       FacetKind = "range"
	FacetScalar      FacetKind = "scalar"
	// FacetText matches a case-insensitive substring. Used by pages with a free-text
	// location box; never mixed up with scalar exact match.
	FacetText FacetKind = "text"
)

// Valid reports whether k is one of the supported kinds.
func (k FacetKind) Valid() bool {
	switch k {
	case FacetMultiSelect, FacetRange, FacetScalar, FacetText:
		return true
	}
	return false
}

// FacetValue is the selection stored for a single facet.
// The set of implementations is closed: MultiSelect, Range, Scalar, Text.
type FacetValue interface {
	Kind() FacetKind
	// IsActive reports whether the value participates in matching.
	IsActive() bool
	isFacetValue()
}

// EmptyValue returns the declared empty value for kind.
func EmptyValue(kind FacetKind) FacetValue {
	switch kind {
	case FacetMultiSelect:
		return MultiSelect{}
	case FacetRange:
		return Range{}
	case FacetScalar:
		return Scalar{}
	case FacetText:
		return Text{}
	}
	return nil
}

// MultiSelect - set of selected options. Order and duplicates are irrelevant.
type MultiSelect struct {
	set map[string]struct{}
}

// NewMultiSelect builds a set from values, dropping duplicates.
func NewMultiSelect(values ...string) MultiSelect {
	if len(values) == 0 {
		return MultiSelect{}
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return MultiSelect{set: set}
}

func (MultiSelect) Kind() FacetKind  { return FacetMultiSelect }
func (m MultiSelect) IsActive() bool { return len(m.set) > 0 }
func (MultiSelect) isFacetValue()    {}

// Contains reports whether v is selected.
func (m MultiSelect) Contains(v string) bool {
	_, ok := m.set[v]
	return ok
}

// Len returns the number of selected options.
func (m MultiSelect) Len() int { return len(m.set) }

// Values returns the selected options sorted.
func (m MultiSelect) Values() []string {
	out := make([]string, 0, len(m.set))
	for v := range m.set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (m MultiSelect) String() string {
	return "[" + strings.Join(m.Values(), ",") + "]"
}

// Range - numeric interval, both bounds inclusive. A nil bound means unbounded.
type Range struct {
	Min *float64
	Max *float64
}

// NewRange is a convenience constructor; pass nil for an open side.
// The bounds are copied.
func NewRange(min, max *float64) Range {
	return Range{Min: copyBound(min), Max: copyBound(max)}
}

func copyBound(b *float64) *float64 {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func finiteBound(b *float64) bool {
	return b == nil || !(math.IsNaN(*b) || math.IsInf(*b, 0))
}

// Bound returns a pointer to v, handy for building ranges.
func Bound(v float64) *float64 { return &v }

func (Range) Kind() FacetKind  { return FacetRange }
func (r Range) IsActive() bool { return r.Min != nil || r.Max != nil }
func (Range) isFacetValue()    {}

// Contains applies the inclusive bound checks.
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r Range) String() string {
	return fmt.Sprintf("{min:%s max:%s}", fmtBound(r.Min), fmtBound(r.Max))
}

func fmtBound(b *float64) string {
	if b == nil {
		return "null"
	}
	return fmt.Sprintf("%g", *b)
}

// Scalar - single selected option; nil means "any".
type Scalar struct {
	Value *string
}

// NewScalar selects v.
func NewScalar(v string) Scalar { return Scalar{Value: &v} }

func (Scalar) Kind() FacetKind  { return FacetScalar }
func (s Scalar) IsActive() bool { return s.Value != nil }
func (Scalar) isFacetValue()    {}

func (s Scalar) String() string {
	if s.Value == nil {
		return "null"
	}
	return *s.Value
}

// Text - free-text query matched as a case-insensitive substring. Blank means "any".
type Text struct {
	Query string
}

func (Text) Kind() FacetKind  { return FacetText }
func (t Text) IsActive() bool { return strings.TrimSpace(t.Query) != "" }
func (Text) isFacetValue()    {}

// Detach returns a copy of v sharing no memory with the caller, so later writes
// through the caller's pointers cannot reach a stored snapshot. Range bounds
// must be finite.
func Detach(v FacetValue) (FacetValue, error) {
	if r, ok := v.(Range); ok && (!finiteBound(r.Min) || !finiteBound(r.Max)) {
		return nil, fmt.Errorf("%w: range bounds must be finite, got %s", ErrMalformedFilterValue, r)
	}
	return clone(v), nil
}

func clone(v FacetValue) FacetValue {
	switch x := v.(type) {
	case Range:
		return NewRange(x.Min, x.Max)
	case Scalar:
		if x.Value == nil {
			return Scalar{}
		}
		return NewScalar(*x.Value)
	}
	// MultiSelect keeps its set unexported and Text is a plain value.
	return v
}

// FacetDecl declares one facet of a FilterEngine.
type FacetDecl struct {
	Key  string
	Kind FacetKind
}
