package page

import (
	"sync"
	"sync/atomic"
	"time"

	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/engine"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
)

// Controller wires one listing collection to one FilterEngine. It subscribes to
// the engine and recomputes the page view on every notification.
type Controller struct {
	id       uuid.UUID
	category string
	openedAt time.Time
	engine   *engine.FilterEngine

	// opMu serializes mutations so views are recomputed in notification order.
	opMu sync.Mutex

	mu       sync.RWMutex
	listings []domain.Listing
	matched  []domain.Listing
	view     domain.PageView
	// state is the snapshot view was computed from.
	state *domain.FilterState

	unsubscribe func()
	lastUsed    atomic.Int64
	now         func() time.Time
	logger      port.LoggerPort
}

// NewController builds the engine for decls and renders the initial view.
func NewController(id uuid.UUID, category string, decls []domain.FacetDecl, listings []domain.Listing, logger port.LoggerPort, now func() time.Time) (*Controller, error) {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = noopLogger{}
	}
	logger = logger.WithFields(port.Fields{"page_id": id.String(), "category": category})

	eng, err := engine.New(decls, logger)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		id:       id,
		category: category,
		openedAt: now(),
		engine:   eng,
		listings: append([]domain.Listing(nil), listings...),
		now:      now,
		logger:   logger,
	}
	c.touch()
	c.unsubscribe = eng.Subscribe(c.recompute)
	c.recompute(eng.State())
	return c, nil
}

// ID returns the page id.
func (c *Controller) ID() uuid.UUID { return c.id }

// Category returns the listing domain of the page.
func (c *Controller) Category() string { return c.category }

// Info returns the public handle of the page.
func (c *Controller) Info() domain.PageInfo {
	return domain.PageInfo{ID: c.id, Category: c.category, OpenedAt: c.openedAt}
}

// Declarations returns the facets of the page's engine.
func (c *Controller) Declarations() []domain.FacetDecl { return c.engine.Declarations() }

// SetFilter forwards to the engine; the view is recomputed by the subscription.
func (c *Controller) SetFilter(key string, value domain.FacetValue) error {
	c.touch()
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.engine.SetFilter(key, value)
}

// ResetFilters clears every facet of the page.
func (c *Controller) ResetFilters() {
	c.touch()
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.engine.ResetFilters()
}

// Subscribe registers an extra observer of the page's engine.
// fn runs while the page mutation is in progress and must not mutate the page.
func (c *Controller) Subscribe(fn engine.Subscriber) func() {
	return c.engine.Subscribe(fn)
}

// ReplaceListings swaps the listing collection and recomputes the view with the
// current filters.
func (c *Controller) ReplaceListings(listings []domain.Listing) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.listings = append([]domain.Listing(nil), listings...)
	c.mu.Unlock()

	c.recompute(c.engine.State())
}

// Snapshot returns the current filter state.
func (c *Controller) Snapshot() *domain.FilterState {
	return c.engine.State()
}

// ActiveFilters returns the facets taking part in matching.
func (c *Controller) ActiveFilters() domain.ActiveFilters {
	c.touch()
	return c.engine.GetActiveFilters()
}

// View returns the latest view with Visible cut to [offset, offset+limit).
// A non-positive limit returns every matching listing.
func (c *Controller) View(limit, offset int) domain.PageView {
	c.touch()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewLocked(limit, offset)
}

// Page returns the view together with the state it was computed from.
func (c *Controller) Page(limit, offset int) *domain.PageSnapshot {
	c.touch()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &domain.PageSnapshot{
		Info:  c.Info(),
		View:  c.viewLocked(limit, offset),
		State: c.state,
	}
}

func (c *Controller) viewLocked(limit, offset int) domain.PageView {
	v := c.view
	if offset < 0 {
		offset = 0
	}
	if offset > len(c.matched) {
		offset = len(c.matched)
	}
	end := len(c.matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	v.Visible = append([]domain.Listing(nil), c.matched[offset:end]...)
	return v
}

// LastUsed is the time of the last read or mutation of the page.
func (c *Controller) LastUsed() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

// Close detaches the page from its engine. Further calls do nothing.
func (c *Controller) Close() {
	c.unsubscribe()
}

func (c *Controller) touch() {
	c.lastUsed.Store(c.now().UnixNano())
}

// recompute rebuilds visibility and badge data from state.
func (c *Controller) recompute(state *domain.FilterState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	matched := make([]domain.Listing, 0, len(c.listings))
	for _, l := range c.listings {
		if engine.Matches(state, l) {
			matched = append(matched, l)
		}
	}
	active := state.Active()

	c.matched = matched
	c.state = state
	c.view = domain.PageView{
		PageID:      c.id,
		Category:    c.category,
		Total:       len(c.listings),
		Matched:     len(matched),
		ActiveCount: len(active),
		Active:      active,
		NoResults:   len(matched) == 0,
		Revision:    c.view.Revision + 1,
		ComputedAt:  c.now(),
	}
	c.logger.Debug("Page view recomputed", port.Fields{
		"matched": len(matched), "total": len(c.listings), "active": len(active), "revision": c.view.Revision,
	})
}

type noopLogger struct{}

func (noopLogger) Info(string, port.Fields)                 {}
func (noopLogger) Warn(string, port.Fields)                 {}
func (noopLogger) Error(string, error, port.Fields)         {}
func (noopLogger) Debug(string, port.Fields)                {}
func (n noopLogger) WithFields(port.Fields) port.LoggerPort { return n }
