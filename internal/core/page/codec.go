package page

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"catalog-service/internal/contracts"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"
)

// Saved filters are a JSON object holding only the active facets:
//
//	{"make": ["Audi","BMW"], "price": {"min": 1000, "max": null}, "location": "Cluj"}
//
// Scalar and text facets are both plain strings; the page's declarations tell
// them apart on replay.

type savedRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// EncodeState serializes the active facets of state.
func EncodeState(state *domain.FilterState) (json.RawMessage, error) {
	out := make(map[string]interface{})
	for key, value := range state.Active() {
		switch v := value.(type) {
		case domain.MultiSelect:
			out[key] = v.Values()
		case domain.Range:
			out[key] = savedRange{Min: v.Min, Max: v.Max}
		case domain.Scalar:
			out[key] = *v.Value
		case domain.Text:
			out[key] = v.Query
		default:
			return nil, fmt.Errorf("encode facet %q: unsupported value %T", key, value)
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter state: %w", err)
	}
	return data, nil
}

// DecodeValue decodes one saved facet value of the given kind.
func DecodeValue(kind domain.FacetKind, raw json.RawMessage) (domain.FacetValue, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return domain.EmptyValue(kind), nil
	}
	switch kind {
	case domain.FacetMultiSelect:
		var values []string
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFilterValue, err)
		}
		return domain.NewMultiSelect(values...), nil
	case domain.FacetRange:
		var r savedRange
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFilterValue, err)
		}
		return domain.NewRange(r.Min, r.Max), nil
	case domain.FacetScalar, domain.FacetText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedFilterValue, err)
		}
		if kind == domain.FacetText {
			return domain.Text{Query: s}, nil
		}
		return domain.NewScalar(s), nil
	}
	return nil, fmt.Errorf("%w: unsupported kind %q", domain.ErrMalformedFilterValue, kind)
}

// Replay applies saved filters to ctrl through SetFilter, one facet at a time in
// key order. Facets the page does not declare are skipped with a warning. It
// returns the number of facets applied.
func Replay(ctrl *Controller, raw json.RawMessage, logger port.LoggerPort) (int, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	if err := contracts.Validate(contracts.SavedFilters, "1.0.0", raw); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrMalformedFilterValue, err)
	}
	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrMalformedFilterValue, err)
	}

	kinds := make(map[string]domain.FacetKind)
	for _, d := range ctrl.Declarations() {
		kinds[d.Key] = d.Kind
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	applied := 0
	for _, key := range keys {
		kind, ok := kinds[key]
		if !ok {
			logger.Warn("Saved filter facet is not declared by the page, skipping", port.Fields{"facet": key})
			continue
		}
		value, err := DecodeValue(kind, values[key])
		if err != nil {
			return applied, fmt.Errorf("facet %q: %w", key, err)
		}
		if err := ctrl.SetFilter(key, value); err != nil {
			if errors.Is(err, domain.ErrUnknownFacet) {
				continue
			}
			return applied, err
		}
		applied++
	}
	return applied, nil
}
