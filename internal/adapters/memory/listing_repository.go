package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
)

// ListingRepository keeps listings in process memory. It backs the service
// when no database is configured.
type ListingRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]domain.Listing
	byCategory map[string][]uuid.UUID
}

var _ port.ListingRepositoryPort = (*ListingRepository)(nil)

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		byID:       make(map[uuid.UUID]domain.Listing),
		byCategory: make(map[string][]uuid.UUID),
	}
}

func (r *ListingRepository) Save(ctx context.Context, listing domain.Listing) error {
	return r.BatchSave(ctx, []domain.Listing{listing})
}

// BatchSave inserts or replaces listings by ID.
func (r *ListingRepository) BatchSave(_ context.Context, listings []domain.Listing) error {
	for _, l := range listings {
		if l.ID == uuid.Nil {
			return fmt.Errorf("memory repository: listing %q has no id", l.Title)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range listings {
		old, exists := r.byID[l.ID]
		if exists && old.Category != l.Category {
			r.removeFromCategory(old.Category, l.ID)
		}
		if !exists || old.Category != l.Category {
			r.byCategory[l.Category] = append(r.byCategory[l.Category], l.ID)
		}
		r.byID[l.ID] = copyListing(l)
	}
	return nil
}

func (r *ListingRepository) removeFromCategory(category string, id uuid.UUID) {
	ids := r.byCategory[category]
	for i, existing := range ids {
		if existing == id {
			r.byCategory[category] = append(ids[:i:i], ids[i+1:]...)
			return
		}
	}
}

func (r *ListingRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrListingNotFound, id)
	}
	out := copyListing(l)
	return &out, nil
}

// ListByCategory returns copies, newest first.
func (r *ListingRepository) ListByCategory(_ context.Context, category string) ([]domain.Listing, error) {
	r.mu.RLock()
	ids := r.byCategory[category]
	out := make([]domain.Listing, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyListing(r.byID[id]))
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Len returns the number of stored listings.
func (r *ListingRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func copyListing(l domain.Listing) domain.Listing {
	attrs := make(map[string]any, len(l.Attributes))
	for k, v := range l.Attributes {
		attrs[k] = v
	}
	l.Attributes = attrs
	return l
}
