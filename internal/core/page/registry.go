package page

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
)

// Registry keeps the opened pages of the service, one Controller per page.
type Registry struct {
	mu     sync.RWMutex
	pages  map[uuid.UUID]*Controller
	now    func() time.Time
	logger port.LoggerPort
}

// NewRegistry creates an empty registry. now may be nil.
func NewRegistry(logger port.LoggerPort, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Registry{
		pages:  make(map[uuid.UUID]*Controller),
		now:    now,
		logger: logger.WithFields(port.Fields{"component": "PageRegistry"}),
	}
}

// Open creates a page over listings with a fresh engine for decls.
func (r *Registry) Open(category string, decls []domain.FacetDecl, listings []domain.Listing) (*Controller, error) {
	id := uuid.New()
	ctrl, err := NewController(id, category, decls, listings, r.logger, r.now)
	if err != nil {
		return nil, fmt.Errorf("failed to open page for %s: %w", category, err)
	}

	r.mu.Lock()
	r.pages[id] = ctrl
	r.mu.Unlock()

	r.logger.Debug("Page opened", port.Fields{"page_id": id.String(), "category": category})
	return ctrl, nil
}

// Get returns the page with id.
func (r *Registry) Get(id uuid.UUID) (*Controller, error) {
	r.mu.RLock()
	ctrl, ok := r.pages[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPageNotFound, id)
	}
	return ctrl, nil
}

// Close removes the page and detaches it from its engine.
func (r *Registry) Close(id uuid.UUID) error {
	r.mu.Lock()
	ctrl, ok := r.pages[id]
	delete(r.pages, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrPageNotFound, id)
	}
	ctrl.Close()
	return nil
}

// ForCategory returns the open pages of category, oldest first.
func (r *Registry) ForCategory(category string) []*Controller {
	r.mu.RLock()
	var out []*Controller
	for _, ctrl := range r.pages {
		if ctrl.Category() == category {
			out = append(out, ctrl)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Info().OpenedAt.Before(out[j].Info().OpenedAt)
	})
	return out
}

// Len returns the number of open pages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}

// EvictIdle closes pages unused for longer than ttl and returns how many were closed.
func (r *Registry) EvictIdle(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var idle []*Controller
	for id, ctrl := range r.pages {
		if ctrl.LastUsed().Before(cutoff) {
			idle = append(idle, ctrl)
			delete(r.pages, id)
		}
	}
	r.mu.Unlock()

	for _, ctrl := range idle {
		ctrl.Close()
	}
	if len(idle) > 0 {
		r.logger.Info("Evicted idle pages", port.Fields{"count": len(idle), "ttl": ttl.String()})
	}
	return len(idle)
}

// CloseAll closes every page.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	pages := r.pages
	r.pages = make(map[uuid.UUID]*Controller)
	r.mu.Unlock()

	for _, ctrl := range pages {
		ctrl.Close()
	}
}
