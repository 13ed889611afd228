package usecase

import (
	"context"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"
)

type ListCategoriesUseCase struct {
	schemas port.SchemaProviderPort
}

func NewListCategoriesUseCase(schemas port.SchemaProviderPort) *ListCategoriesUseCase {
	return &ListCategoriesUseCase{schemas: schemas}
}

func (uc *ListCategoriesUseCase) Execute(ctx context.Context) ([]domain.CategoryInfo, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "ListCategories"})

	categories := uc.schemas.Categories()
	out := make([]domain.CategoryInfo, 0, len(categories))
	for _, c := range categories {
		s, err := uc.schemas.Get(c)
		if err != nil {
			logger.Error("Registered category has no schema", err, port.Fields{"category": c})
			return nil, err
		}
		out = append(out, domain.CategoryInfo{Category: s.Category, Title: s.Title, FacetCount: len(s.Facets)})
	}
	logger.Debug("Categories listed", port.Fields{"count": len(out)})
	return out, nil
}
