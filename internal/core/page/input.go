package page

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"catalog-service/internal/core/domain"
)

// Request bodies per facet kind:
//
//	multi_select  {"values": ["Audi", "BMW"]}
//	range         {"min": 1000, "max": null}
//	scalar        {"value": "Cluj"}
//	text          {"query": "clu"}
//
// A JSON null body stands for the facet's empty value.

type multiSelectBody struct {
	Values []string `json:"values"`
}

type rangeBody struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

type scalarBody struct {
	Value *string `json:"value"`
}

type textBody struct {
	Query string `json:"query"`
}

// DecodeJSON converts an API body into a typed value of the given kind.
func DecodeJSON(kind domain.FacetKind, raw json.RawMessage) (domain.FacetValue, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		if v := domain.EmptyValue(kind); v != nil {
			return v, nil
		}
		return nil, fmt.Errorf("%w: unsupported kind %q", domain.ErrMalformedFilterValue, kind)
	}

	switch kind {
	case domain.FacetMultiSelect:
		var body multiSelectBody
		if err := decodeStrict(trimmed, &body); err != nil {
			return nil, err
		}
		return domain.NewMultiSelect(body.Values...), nil
	case domain.FacetRange:
		var body rangeBody
		if err := decodeStrict(trimmed, &body); err != nil {
			return nil, err
		}
		return domain.NewRange(body.Min, body.Max), nil
	case domain.FacetScalar:
		var body scalarBody
		if err := decodeStrict(trimmed, &body); err != nil {
			return nil, err
		}
		return domain.Scalar{Value: body.Value}, nil
	case domain.FacetText:
		var body textBody
		if err := decodeStrict(trimmed, &body); err != nil {
			return nil, err
		}
		return domain.Text{Query: body.Query}, nil
	}
	return nil, fmt.Errorf("%w: unsupported kind %q", domain.ErrMalformedFilterValue, kind)
}

func decodeStrict(data []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedFilterValue, err)
	}
	return nil
}

// FormFilter - one facet value decoded from an HTML form.
type FormFilter struct {
	Key   string
	Value domain.FacetValue
}

// DecodeForm reads one value per schema facet from a submitted filter form, in
// schema order. Blank inputs decode to the facet's empty value.
func DecodeForm(schema *domain.FilterSchema, form url.Values) ([]FormFilter, error) {
	out := make([]FormFilter, 0, len(schema.Facets))
	for _, f := range schema.Facets {
		var value domain.FacetValue
		switch f.Kind {
		case domain.FacetMultiSelect:
			var selected []string
			for _, v := range form[f.Key] {
				if v = strings.TrimSpace(v); v != "" {
					selected = append(selected, v)
				}
			}
			value = domain.NewMultiSelect(selected...)
		case domain.FacetRange:
			lo, err := parseBound(form.Get(f.Key + "_min"))
			if err != nil {
				return nil, fmt.Errorf("%w: %s_min: %v", domain.ErrMalformedFilterValue, f.Key, err)
			}
			hi, err := parseBound(form.Get(f.Key + "_max"))
			if err != nil {
				return nil, fmt.Errorf("%w: %s_max: %v", domain.ErrMalformedFilterValue, f.Key, err)
			}
			value = domain.NewRange(lo, hi)
		case domain.FacetScalar:
			if v := strings.TrimSpace(form.Get(f.Key)); v != "" {
				value = domain.NewScalar(v)
			} else {
				value = domain.Scalar{}
			}
		case domain.FacetText:
			value = domain.Text{Query: strings.TrimSpace(form.Get(f.Key))}
		default:
			continue
		}
		out = append(out, FormFilter{Key: f.Key, Value: value})
	}
	return out, nil
}

func parseBound(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%q is not a finite number", s)
	}
	return &v, nil
}
