package domain

// FilterState is an immutable snapshot of every declared facet's value.
// Mutations produce a new snapshot via With, so a *FilterState handed to a
// subscriber can be shared between goroutines without copying.
type FilterState struct {
	keys   []string
	values map[string]FacetValue
}

// NewFilterState builds a state with every declared facet at its empty value.
// Callers are expected to pass validated declarations.
func NewFilterState(decls []FacetDecl) *FilterState {
	s := &FilterState{
		keys:   make([]string, 0, len(decls)),
		values: make(map[string]FacetValue, len(decls)),
	}
	for _, d := range decls {
		s.keys = append(s.keys, d.Key)
		s.values[d.Key] = EmptyValue(d.Kind)
	}
	return s
}

// Get returns a copy of the stored value of key.
func (s *FilterState) Get(key string) (FacetValue, bool) {
	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	return clone(v), true
}

// Has reports whether key is a declared facet.
func (s *FilterState) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns the declared facet keys in declaration order.
func (s *FilterState) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Each calls fn for every facet in declaration order until fn returns false.
// The values are the stored ones and are read-only for fn; use Get or Active
// for values the caller may keep.
func (s *FilterState) Each(fn func(key string, value FacetValue) bool) {
	for _, k := range s.keys {
		if !fn(k, s.values[k]) {
			return
		}
	}
}

// Len returns the number of declared facets.
func (s *FilterState) Len() int { return len(s.keys) }

// With returns a copy of s where key holds value. The receiver is left untouched.
// value is stored as given; FilterEngine detaches it first.
func (s *FilterState) With(key string, value FacetValue) *FilterState {
	next := &FilterState{
		keys:   s.keys,
		values: make(map[string]FacetValue, len(s.values)),
	}
	for k, v := range s.values {
		next.values[k] = v
	}
	next.values[key] = value
	return next
}

// Active computes the ActiveFilterSet of the snapshot.
func (s *FilterState) Active() ActiveFilters {
	active := make(ActiveFilters)
	for _, k := range s.keys {
		if v := s.values[k]; v != nil && v.IsActive() {
			active[k] = clone(v)
		}
	}
	return active
}

// ActiveCount is the number of active facets, used by filter-count badges.
func (s *FilterState) ActiveCount() int {
	n := 0
	for _, k := range s.keys {
		if v := s.values[k]; v != nil && v.IsActive() {
			n++
		}
	}
	return n
}

// ActiveFilters - the subset of a FilterState whose values are non-empty.
type ActiveFilters map[string]FacetValue
