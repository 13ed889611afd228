package usecase

import (
	"context"
	"encoding/json"
	"net/url"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/page"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
)

type SetFilterUseCase struct {
	schemas   port.SchemaProviderPort
	pages     *page.Registry
	publisher port.FilterEventPublisherPort
	pageSize  int
}

// NewSetFilterUseCase - publisher may be nil when events are disabled.
func NewSetFilterUseCase(schemas port.SchemaProviderPort, pages *page.Registry, publisher port.FilterEventPublisherPort, pageSize int) *SetFilterUseCase {
	return &SetFilterUseCase{schemas: schemas, pages: pages, publisher: publisher, pageSize: pageSize}
}

// Execute decodes body according to the facet's declared kind and sets it on the page.
func (uc *SetFilterUseCase) Execute(ctx context.Context, pageID uuid.UUID, facet string, body json.RawMessage) (*domain.PageSnapshot, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "SetFilter",
		"page_id":  pageID.String(),
		"facet":    facet,
	})
	ucLogger.Info("Use case started", nil)

	ctrl, err := uc.pages.Get(pageID)
	if err != nil {
		return nil, err
	}

	kind, declared := declaredKind(ctrl, facet)
	if !declared {
		// The engine owns the rejection: it logs the warning and leaves the state alone.
		return nil, ctrl.SetFilter(facet, nil)
	}
	value, err := page.DecodeJSON(kind, body)
	if err != nil {
		ucLogger.Warn("Malformed filter value", port.Fields{"error": err.Error()})
		return nil, err
	}
	if err := ctrl.SetFilter(facet, value); err != nil {
		return nil, err
	}

	snapshot := ctrl.Page(uc.pageSize, 0)
	publishFiltersChanged(ctx, uc.publisher, snapshot, facet, false, ucLogger)
	ucLogger.Info("Use case finished successfully", port.Fields{
		"active":  snapshot.View.ActiveCount,
		"matched": snapshot.View.Matched,
	})
	return snapshot, nil
}

// ExecuteForm applies a submitted filter form: every facet of the page's schema
// is set from the form, blank inputs clearing their facet.
func (uc *SetFilterUseCase) ExecuteForm(ctx context.Context, pageID uuid.UUID, form url.Values) (*domain.PageSnapshot, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "SetFilterForm",
		"page_id":  pageID.String(),
	})
	ucLogger.Info("Use case started", nil)

	ctrl, err := uc.pages.Get(pageID)
	if err != nil {
		return nil, err
	}
	schema, err := uc.schemas.Get(ctrl.Category())
	if err != nil {
		return nil, err
	}
	filters, err := page.DecodeForm(schema, form)
	if err != nil {
		ucLogger.Warn("Malformed filter form", port.Fields{"error": err.Error()})
		return nil, err
	}
	for _, f := range filters {
		if err := ctrl.SetFilter(f.Key, f.Value); err != nil {
			return nil, err
		}
	}

	snapshot := ctrl.Page(uc.pageSize, 0)
	publishFiltersChanged(ctx, uc.publisher, snapshot, "", false, ucLogger)
	ucLogger.Info("Use case finished successfully", port.Fields{
		"active":  snapshot.View.ActiveCount,
		"matched": snapshot.View.Matched,
	})
	return snapshot, nil
}

func declaredKind(ctrl *page.Controller, facet string) (domain.FacetKind, bool) {
	for _, d := range ctrl.Declarations() {
		if d.Key == facet {
			return d.Kind, true
		}
	}
	return "", false
}
