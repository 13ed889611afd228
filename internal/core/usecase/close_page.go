package usecase

import (
	"context"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/page"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
)

type ClosePageUseCase struct {
	pages *page.Registry
}

func NewClosePageUseCase(pages *page.Registry) *ClosePageUseCase {
	return &ClosePageUseCase{pages: pages}
}

func (uc *ClosePageUseCase) Execute(ctx context.Context, pageID uuid.UUID) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "ClosePage",
		"page_id":  pageID.String(),
	})
	if err := uc.pages.Close(pageID); err != nil {
		return err
	}
	logger.Info("Page closed", nil)
	return nil
}
