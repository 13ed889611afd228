package engine

import (
	"fmt"
	"sync"

	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"
)

// Subscriber receives the full state after every SetFilter/ResetFilters.
// The snapshot is shared by all subscribers and must not be mutated.
type Subscriber func(state *domain.FilterState)

type subscription struct {
	id uint64
	fn Subscriber
}

// FilterEngine holds the active facets of one listing domain and decides which
// listings match them. One engine per page; engines share nothing.
type FilterEngine struct {
	mu          sync.RWMutex
	decls       []domain.FacetDecl
	kinds       map[string]domain.FacetKind
	state       *domain.FilterState
	subscribers []subscription
	nextID      uint64

	logger port.LoggerPort
}

// New creates an engine with every declared facet at its empty value.
func New(decls []domain.FacetDecl, logger port.LoggerPort) (*FilterEngine, error) {
	if len(decls) == 0 {
		return nil, fmt.Errorf("%w: at least one facet is required", domain.ErrInvalidFacetDecl)
	}
	kinds := make(map[string]domain.FacetKind, len(decls))
	for _, d := range decls {
		if d.Key == "" {
			return nil, fmt.Errorf("%w: empty facet key", domain.ErrInvalidFacetDecl)
		}
		if !d.Kind.Valid() {
			return nil, fmt.Errorf("%w: facet %q has unsupported kind %q", domain.ErrInvalidFacetDecl, d.Key, d.Kind)
		}
		if _, dup := kinds[d.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate facet %q", domain.ErrInvalidFacetDecl, d.Key)
		}
		kinds[d.Key] = d.Kind
	}
	if logger == nil {
		logger = noopLogger{}
	}

	own := make([]domain.FacetDecl, len(decls))
	copy(own, decls)

	return &FilterEngine{
		decls:  own,
		kinds:  kinds,
		state:  domain.NewFilterState(own),
		logger: logger.WithFields(port.Fields{"component": "FilterEngine"}),
	}, nil
}

// Declarations returns the facet declarations the engine was built with.
func (e *FilterEngine) Declarations() []domain.FacetDecl {
	out := make([]domain.FacetDecl, len(e.decls))
	copy(out, e.decls)
	return out
}

// SetFilter replaces the whole value of one facet and notifies subscribers.
// The value is copied, so the caller may reuse its pointers afterwards.
// An undeclared key, a value of the wrong kind or a non-finite range bound is
// rejected: a warning is logged, the state is left unchanged and no subscriber
// is called. A nil value resets the facet to its empty value.
func (e *FilterEngine) SetFilter(key string, value domain.FacetValue) error {
	e.mu.Lock()
	kind, ok := e.kinds[key]
	if !ok {
		e.mu.Unlock()
		e.logger.Warn("Rejected filter on undeclared facet", port.Fields{"facet": key})
		return fmt.Errorf("%w: %q", domain.ErrUnknownFacet, key)
	}
	if value == nil {
		value = domain.EmptyValue(kind)
	}
	if value.Kind() != kind {
		e.mu.Unlock()
		e.logger.Warn("Rejected filter value of wrong kind", port.Fields{
			"facet": key, "expected": string(kind), "got": string(value.Kind()),
		})
		return fmt.Errorf("%w: facet %q expects %s, got %s", domain.ErrFacetKindMismatch, key, kind, value.Kind())
	}
	value, err := domain.Detach(value)
	if err != nil {
		e.mu.Unlock()
		e.logger.Warn("Rejected malformed filter value", port.Fields{"facet": key, "error": err.Error()})
		return err
	}

	e.state = e.state.With(key, value)
	state, subs := e.state, e.snapshotSubscribers()
	e.mu.Unlock()

	e.logger.Debug("Filter set", port.Fields{"facet": key, "active": value.IsActive()})
	notify(state, subs)
	return nil
}

// ResetFilters puts every facet back to its empty value and notifies subscribers.
func (e *FilterEngine) ResetFilters() {
	e.mu.Lock()
	e.state = domain.NewFilterState(e.decls)
	state, subs := e.state, e.snapshotSubscribers()
	e.mu.Unlock()

	e.logger.Debug("Filters reset", nil)
	notify(state, subs)
}

// GetActiveFilters returns the facets that currently take part in matching.
func (e *FilterEngine) GetActiveFilters() domain.ActiveFilters {
	return e.State().Active()
}

// IsMatching reports whether listing matches the current filters.
func (e *FilterEngine) IsMatching(listing domain.Listing) bool {
	return Matches(e.State(), listing)
}

// Filter returns the matching subset of listings, keeping their order.
// The whole pass uses a single snapshot.
func (e *FilterEngine) Filter(listings []domain.Listing) []domain.Listing {
	state := e.State()
	out := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if Matches(state, l) {
			out = append(out, l)
		}
	}
	return out
}

// State returns the current immutable snapshot.
func (e *FilterEngine) State() *domain.FilterState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Subscribe registers fn and returns a function removing it.
// Calling the returned function more than once does nothing.
func (e *FilterEngine) Subscribe(fn Subscriber) (unsubscribe func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subscribers = append(e.subscribers, subscription{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.unsubscribe(id) })
	}
}

func (e *FilterEngine) unsubscribe(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subscribers {
		if s.id == id {
			e.subscribers = append(e.subscribers[:i:i], e.subscribers[i+1:]...)
			return
		}
	}
}

// snapshotSubscribers must be called with e.mu held.
func (e *FilterEngine) snapshotSubscribers() []subscription {
	out := make([]subscription, len(e.subscribers))
	copy(out, e.subscribers)
	return out
}

// notify runs outside the lock so subscribers may read the engine.
func notify(state *domain.FilterState, subs []subscription) {
	for _, s := range subs {
		s.fn(state)
	}
}

type noopLogger struct{}

func (noopLogger) Info(string, port.Fields)                 {}
func (noopLogger) Warn(string, port.Fields)                 {}
func (noopLogger) Error(string, error, port.Fields)         {}
func (noopLogger) Debug(string, port.Fields)                {}
func (n noopLogger) WithFields(port.Fields) port.LoggerPort { return n }
