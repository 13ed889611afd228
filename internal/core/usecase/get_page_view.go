package usecase

import (
	"context"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/page"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
)

type GetPageViewUseCase struct {
	pages *page.Registry
}

func NewGetPageViewUseCase(pages *page.Registry) *GetPageViewUseCase {
	return &GetPageViewUseCase{pages: pages}
}

func (uc *GetPageViewUseCase) Execute(ctx context.Context, pageID uuid.UUID, limit, offset int) (*domain.PageSnapshot, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "GetPageView",
		"page_id":  pageID.String(),
		"limit":    limit,
		"offset":   offset,
	})

	ctrl, err := uc.pages.Get(pageID)
	if err != nil {
		ucLogger.Debug("Page not found", nil)
		return nil, err
	}
	snapshot := ctrl.Page(limit, offset)
	ucLogger.Debug("Page view served", port.Fields{"matched": snapshot.View.Matched, "revision": snapshot.View.Revision})
	return snapshot, nil
}
