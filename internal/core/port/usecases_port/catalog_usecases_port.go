package usecases_port

import (
	"context"

	"catalog-service/internal/core/domain"
)

type ListCategoriesUseCase interface {
	Execute(ctx context.Context) ([]domain.CategoryInfo, error)
}

type GetFilterSchemaUseCase interface {
	Execute(ctx context.Context, category string) (*domain.FilterSchema, error)
}

type GetFilterOptionsUseCase interface {
	Execute(ctx context.Context, category string) (*domain.FilterSchema, error)
}

type IngestListingUseCase interface {
	Execute(ctx context.Context, listing domain.Listing) (*domain.Listing, error)
	ExecuteBatch(ctx context.Context, listings []domain.Listing) (int, error)
}
