package usecases_port

import (
	"context"

	"catalog-service/internal/core/domain"

	"github.com/google/uuid"
)

type SaveFiltersUseCase interface {
	Execute(ctx context.Context, pageID uuid.UUID, name string) (*domain.SavedFilter, error)
}

type ListSavedFiltersUseCase interface {
	Execute(ctx context.Context, category string) ([]domain.SavedFilter, error)
}
