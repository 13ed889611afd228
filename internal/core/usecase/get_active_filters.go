package usecase

import (
	"context"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/page"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
)

// GetActiveFiltersUseCase serves the filter badge without touching the listing view.
type GetActiveFiltersUseCase struct {
	pages *page.Registry
}

func NewGetActiveFiltersUseCase(pages *page.Registry) *GetActiveFiltersUseCase {
	return &GetActiveFiltersUseCase{pages: pages}
}

func (uc *GetActiveFiltersUseCase) Execute(ctx context.Context, pageID uuid.UUID) (domain.ActiveFilters, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "GetActiveFilters",
		"page_id":  pageID.String(),
	})

	ctrl, err := uc.pages.Get(pageID)
	if err != nil {
		ucLogger.Debug("Page not found", nil)
		return nil, err
	}
	active := ctrl.ActiveFilters()
	ucLogger.Debug("Active filters served", port.Fields{"active": len(active)})
	return active, nil
}
