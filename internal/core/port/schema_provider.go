package port

import "catalog-service/internal/core/domain"

type SchemaProviderPort interface {
	Categories() []string
	Get(category string) (*domain.FilterSchema, error)
	Declarations(category string) ([]domain.FacetDecl, error)
}
