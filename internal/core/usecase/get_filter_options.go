package usecase

import (
	"context"
	"sort"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"
)

type GetFilterOptionsUseCase struct {
	schemas  port.SchemaProviderPort
	listings port.ListingRepositoryPort
}

func NewGetFilterOptionsUseCase(schemas port.SchemaProviderPort, listings port.ListingRepositoryPort) *GetFilterOptionsUseCase {
	return &GetFilterOptionsUseCase{schemas: schemas, listings: listings}
}

// Execute returns the schema of category enriched from its listings: option
// counts for every option facet, distinct values as options of dynamic facets and
// observed min/max for dynamic ranges. A failing listing source only drops the
// enrichment.
func (uc *GetFilterOptionsUseCase) Execute(ctx context.Context, category string) (*domain.FilterSchema, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "GetFilterOptions",
		"category": category,
	})
	ucLogger.Info("Use case started", nil)

	s, err := uc.schemas.Get(category)
	if err != nil {
		return nil, err
	}

	listings, err := uc.listings.ListByCategory(ctx, category)
	if err != nil {
		ucLogger.Error("WARN: Failed to load listings, returning static options", err, nil)
		return s, nil
	}

	for i := range s.Facets {
		f := &s.Facets[i]
		switch f.Kind {
		case domain.FacetMultiSelect, domain.FacetScalar:
			counts := countValues(listings, f.Key)
			if f.Dynamic {
				f.Options = mergeOptions(f.Options, counts)
			}
			for j := range f.Options {
				f.Options[j].Count = counts[f.Options[j].Value]
			}
		case domain.FacetRange:
			if !f.Dynamic {
				continue
			}
			if lo, hi, ok := observedRange(listings, f.Key); ok {
				f.Min, f.Max = &lo, &hi
			}
		}
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"listings": len(listings)})
	return s, nil
}

func countValues(listings []domain.Listing, key string) map[string]int {
	counts := make(map[string]int)
	for _, l := range listings {
		if v, ok := l.StringAttr(key); ok && v != "" {
			counts[v]++
		}
	}
	return counts
}

// mergeOptions keeps the declared options and appends observed values missing
// from them, sorted.
func mergeOptions(declared []domain.FacetOption, counts map[string]int) []domain.FacetOption {
	known := make(map[string]struct{}, len(declared))
	for _, o := range declared {
		known[o.Value] = struct{}{}
	}
	var extra []string
	for v := range counts {
		if _, ok := known[v]; !ok {
			extra = append(extra, v)
		}
	}
	sort.Strings(extra)
	out := append([]domain.FacetOption(nil), declared...)
	for _, v := range extra {
		out = append(out, domain.FacetOption{Value: v, Label: v})
	}
	return out
}

func observedRange(listings []domain.Listing, key string) (lo, hi float64, ok bool) {
	for _, l := range listings {
		n, has := l.NumberAttr(key)
		if !has {
			continue
		}
		if !ok || n < lo {
			lo = n
		}
		if !ok || n > hi {
			hi = n
		}
		ok = true
	}
	return lo, hi, ok
}
