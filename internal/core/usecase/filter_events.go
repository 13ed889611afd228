package usecase

import (
	"context"
	"time"

	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/page"
	"catalog-service/internal/core/port"
)

// publishFiltersChanged never fails the caller: the filter change already happened.
func publishFiltersChanged(ctx context.Context, publisher port.FilterEventPublisherPort, snapshot *domain.PageSnapshot, facet string, reset bool, logger port.LoggerPort) {
	if publisher == nil {
		return
	}
	active, err := page.EncodeState(snapshot.State)
	if err != nil {
		logger.Error("Failed to encode active filters for event", err, nil)
		return
	}
	event := domain.FiltersChangedEvent{
		PageID:     snapshot.Info.ID,
		Category:   snapshot.Info.Category,
		Facet:      facet,
		Reset:      reset,
		Active:     active,
		Matched:    snapshot.View.Matched,
		Total:      snapshot.View.Total,
		OccurredAt: time.Now().UTC(),
	}
	if err := publisher.PublishFiltersChanged(ctx, event); err != nil {
		logger.Error("Failed to publish filters-changed event", err, nil)
	}
}
