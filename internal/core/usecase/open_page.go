package usecase

import (
	"context"
	"fmt"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/page"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
)

type OpenPageUseCase struct {
	schemas  port.SchemaProviderPort
	listings port.ListingRepositoryPort
	saved    port.SavedFilterRepositoryPort
	pages    *page.Registry
	pageSize int
}

func NewOpenPageUseCase(schemas port.SchemaProviderPort, listings port.ListingRepositoryPort, saved port.SavedFilterRepositoryPort, pages *page.Registry, pageSize int) *OpenPageUseCase {
	return &OpenPageUseCase{schemas: schemas, listings: listings, saved: saved, pages: pages, pageSize: pageSize}
}

// Execute opens a filter page over the listings of category. When savedFilterID
// is set, the saved filters are replayed onto the new page.
func (uc *OpenPageUseCase) Execute(ctx context.Context, category string, savedFilterID *uuid.UUID) (*domain.PageSnapshot, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "OpenPage",
		"category": category,
	})
	ucLogger.Info("Use case started", nil)

	decls, err := uc.schemas.Declarations(category)
	if err != nil {
		ucLogger.Warn("Unknown category requested", nil)
		return nil, err
	}

	var saved *domain.SavedFilter
	if savedFilterID != nil {
		saved, err = uc.saved.GetByID(ctx, *savedFilterID)
		if err != nil {
			ucLogger.Error("Failed to load saved filter", err, port.Fields{"saved_filter_id": savedFilterID.String()})
			return nil, err
		}
		if saved.Category != category {
			return nil, fmt.Errorf("%w: saved filter %s belongs to %s", domain.ErrSavedFilterNotFound, saved.ID, saved.Category)
		}
	}

	listings, err := uc.listings.ListByCategory(ctx, category)
	if err != nil {
		ucLogger.Error("Failed to load listings", err, nil)
		return nil, fmt.Errorf("failed to load listings of %s: %w", category, err)
	}

	ctrl, err := uc.pages.Open(category, decls, listings)
	if err != nil {
		ucLogger.Error("Failed to open page", err, nil)
		return nil, err
	}

	if saved != nil {
		applied, err := page.Replay(ctrl, saved.Values, ucLogger)
		if err != nil {
			_ = uc.pages.Close(ctrl.ID())
			ucLogger.Error("Failed to replay saved filter", err, port.Fields{"saved_filter_id": saved.ID.String()})
			return nil, err
		}
		ucLogger.Debug("Saved filter replayed", port.Fields{"applied": applied})
	}

	snapshot := ctrl.Page(uc.pageSize, 0)
	ucLogger.Info("Use case finished successfully", port.Fields{
		"page_id": ctrl.ID().String(),
		"total":   snapshot.View.Total,
		"matched": snapshot.View.Matched,
	})
	return snapshot, nil
}
