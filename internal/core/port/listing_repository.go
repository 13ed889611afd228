package port

import (
	"context"

	"catalog-service/internal/core/domain"

	"github.com/google/uuid"
)

// ListingRepositoryPort stores the listing collections of every category.
type ListingRepositoryPort interface {
	Save(ctx context.Context, listing domain.Listing) error
	BatchSave(ctx context.Context, listings []domain.Listing) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	// ListByCategory returns the listings of category, newest first.
	ListByCategory(ctx context.Context, category string) ([]domain.Listing, error)
}
