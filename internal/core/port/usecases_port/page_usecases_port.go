package usecases_port

import (
	"context"
	"encoding/json"
	"net/url"

	"catalog-service/internal/core/domain"

	"github.com/google/uuid"
)

type OpenPageUseCase interface {
	Execute(ctx context.Context, category string, savedFilterID *uuid.UUID) (*domain.PageSnapshot, error)
}

type SetFilterUseCase interface {
	Execute(ctx context.Context, pageID uuid.UUID, facet string, body json.RawMessage) (*domain.PageSnapshot, error)
	ExecuteForm(ctx context.Context, pageID uuid.UUID, form url.Values) (*domain.PageSnapshot, error)
}

type ResetFiltersUseCase interface {
	Execute(ctx context.Context, pageID uuid.UUID) (*domain.PageSnapshot, error)
}

type GetPageViewUseCase interface {
	Execute(ctx context.Context, pageID uuid.UUID, limit, offset int) (*domain.PageSnapshot, error)
}

type GetActiveFiltersUseCase interface {
	Execute(ctx context.Context, pageID uuid.UUID) (domain.ActiveFilters, error)
}

type ClosePageUseCase interface {
	Execute(ctx context.Context, pageID uuid.UUID) error
}
