package usecase

import (
	"context"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"
)

type GetFilterSchemaUseCase struct {
	schemas port.SchemaProviderPort
}

func NewGetFilterSchemaUseCase(schemas port.SchemaProviderPort) *GetFilterSchemaUseCase {
	return &GetFilterSchemaUseCase{schemas: schemas}
}

// Execute returns the static schema of category, without listing-derived options.
func (uc *GetFilterSchemaUseCase) Execute(ctx context.Context, category string) (*domain.FilterSchema, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "GetFilterSchema",
		"category": category,
	})
	s, err := uc.schemas.Get(category)
	if err != nil {
		logger.Warn("Unknown category requested", nil)
		return nil, err
	}
	return s, nil
}
