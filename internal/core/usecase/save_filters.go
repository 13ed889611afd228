package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/contracts"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/page"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
)

type SaveFiltersUseCase struct {
	pages     *page.Registry
	saved     port.SavedFilterRepositoryPort
	publisher port.FilterEventPublisherPort
}

func NewSaveFiltersUseCase(pages *page.Registry, saved port.SavedFilterRepositoryPort, publisher port.FilterEventPublisherPort) *SaveFiltersUseCase {
	return &SaveFiltersUseCase{pages: pages, saved: saved, publisher: publisher}
}

// Execute stores the active filters of a page under name.
func (uc *SaveFiltersUseCase) Execute(ctx context.Context, pageID uuid.UUID, name string) (*domain.SavedFilter, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "SaveFilters",
		"page_id":  pageID.String(),
	})
	ucLogger.Info("Use case started", nil)

	ctrl, err := uc.pages.Get(pageID)
	if err != nil {
		return nil, err
	}
	values, err := page.EncodeState(ctrl.Snapshot())
	if err != nil {
		ucLogger.Error("Failed to encode filters", err, nil)
		return nil, err
	}
	if err := contracts.Validate(contracts.SavedFilters, "1.0.0", values); err != nil {
		ucLogger.Error("Encoded filters break the saved-filters contract", err, nil)
		return nil, err
	}

	now := time.Now().UTC()
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("%s %s", ctrl.Category(), now.Format("2006-01-02 15:04"))
	}
	saved := domain.SavedFilter{
		ID:        uuid.New(),
		Category:  ctrl.Category(),
		Name:      name,
		Values:    values,
		CreatedAt: now,
	}
	if err := uc.saved.Save(ctx, saved); err != nil {
		ucLogger.Error("Failed to store saved filter", err, nil)
		return nil, fmt.Errorf("failed to save filters: %w", err)
	}

	if uc.publisher != nil {
		event := domain.FiltersSavedEvent{
			SavedFilterID: saved.ID,
			PageID:        pageID,
			Category:      saved.Category,
			Name:          saved.Name,
			Values:        saved.Values,
			OccurredAt:    now,
		}
		if err := uc.publisher.PublishFiltersSaved(ctx, event); err != nil {
			ucLogger.Error("Failed to publish filters-saved event", err, nil)
		}
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"saved_filter_id": saved.ID.String()})
	return &saved, nil
}
