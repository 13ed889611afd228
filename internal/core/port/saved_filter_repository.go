package port

import (
	"context"

	"catalog-service/internal/core/domain"

	"github.com/google/uuid"
)

// SavedFilterRepositoryPort persists serialized filter states.
type SavedFilterRepositoryPort interface {
	Save(ctx context.Context, filter domain.SavedFilter) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SavedFilter, error)
	ListByCategory(ctx context.Context, category string) ([]domain.SavedFilter, error)
}
