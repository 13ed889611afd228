package port

import (
	"context"

	"catalog-service/internal/core/domain"
)

// FilterEventPublisherPort announces filter activity to other services.
type FilterEventPublisherPort interface {
	PublishFiltersChanged(ctx context.Context, event domain.FiltersChangedEvent) error
	PublishFiltersSaved(ctx context.Context, event domain.FiltersSavedEvent) error
}
