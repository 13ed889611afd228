package usecase

import (
	"context"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/page"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
)

type ResetFiltersUseCase struct {
	pages     *page.Registry
	publisher port.FilterEventPublisherPort
	pageSize  int
}

func NewResetFiltersUseCase(pages *page.Registry, publisher port.FilterEventPublisherPort, pageSize int) *ResetFiltersUseCase {
	return &ResetFiltersUseCase{pages: pages, publisher: publisher, pageSize: pageSize}
}

func (uc *ResetFiltersUseCase) Execute(ctx context.Context, pageID uuid.UUID) (*domain.PageSnapshot, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "ResetFilters",
		"page_id":  pageID.String(),
	})
	ucLogger.Info("Use case started", nil)

	ctrl, err := uc.pages.Get(pageID)
	if err != nil {
		return nil, err
	}
	ctrl.ResetFilters()

	snapshot := ctrl.Page(uc.pageSize, 0)
	publishFiltersChanged(ctx, uc.publisher, snapshot, "", true, ucLogger)
	ucLogger.Info("Use case finished successfully", nil)
	return snapshot, nil
}
