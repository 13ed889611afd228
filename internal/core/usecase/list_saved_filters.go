package usecase

import (
	"context"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"
)

type ListSavedFiltersUseCase struct {
	schemas port.SchemaProviderPort
	saved   port.SavedFilterRepositoryPort
}

func NewListSavedFiltersUseCase(schemas port.SchemaProviderPort, saved port.SavedFilterRepositoryPort) *ListSavedFiltersUseCase {
	return &ListSavedFiltersUseCase{schemas: schemas, saved: saved}
}

func (uc *ListSavedFiltersUseCase) Execute(ctx context.Context, category string) ([]domain.SavedFilter, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "ListSavedFilters",
		"category": category,
	})

	if _, err := uc.schemas.Declarations(category); err != nil {
		return nil, err
	}
	filters, err := uc.saved.ListByCategory(ctx, category)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}
	ucLogger.Debug("Saved filters listed", port.Fields{"count": len(filters)})
	return filters, nil
}
