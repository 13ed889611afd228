package page

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"catalog-service/internal/core/domain"
)

func formSchema() *domain.FilterSchema {
	return &domain.FilterSchema{
		Category: "automotive",
		Facets: []domain.SchemaFacet{
			{Key: "make", Label: "Make", Kind: domain.FacetMultiSelect},
			{Key: "price", Label: "Price", Kind: domain.FacetRange},
			{Key: "fuel", Label: "Fuel", Kind: domain.FacetScalar},
			{Key: "location", Label: "Location", Kind: domain.FacetText},
		},
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name   string
		kind   domain.FacetKind
		body   string
		active bool
		check  func(domain.FacetValue) bool
	}{
		{"multi", domain.FacetMultiSelect, `{"values":["Audi","BMW","BMW"]}`, true, func(v domain.FacetValue) bool {
			return v.(domain.MultiSelect).Len() == 2
		}},
		{"multi empty", domain.FacetMultiSelect, `{"values":[]}`, false, nil},
		{"range lower open", domain.FacetRange, `{"min":null,"max":2000}`, true, func(v domain.FacetValue) bool {
			r := v.(domain.Range)
			return r.Min == nil && *r.Max == 2000
		}},
		{"range empty", domain.FacetRange, `{}`, false, nil},
		{"scalar", domain.FacetScalar, `{"value":"Cluj"}`, true, func(v domain.FacetValue) bool {
			return *v.(domain.Scalar).Value == "Cluj"
		}},
		{"scalar null", domain.FacetScalar, `{"value":null}`, false, nil},
		{"text", domain.FacetText, `{"query":"clu"}`, true, nil},
		{"null body", domain.FacetRange, `null`, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := DecodeJSON(tt.kind, json.RawMessage(tt.body))
			if err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
			if v.Kind() != tt.kind || v.IsActive() != tt.active {
				t.Fatalf("value = %#v", v)
			}
			if tt.check != nil && !tt.check(v) {
				t.Fatalf("unexpected value %#v", v)
			}
		})
	}
}

func TestDecodeJSONMalformed(t *testing.T) {
	tests := []struct {
		kind domain.FacetKind
		body string
	}{
		{domain.FacetMultiSelect, `{"values":"BMW"}`},
		{domain.FacetRange, `{"from":1}`},
		{domain.FacetScalar, `{"value":3}`},
		{domain.FacetText, `[1,2]`},
		{"checkbox", `{}`},
	}
	for _, tt := range tests {
		if _, err := DecodeJSON(tt.kind, json.RawMessage(tt.body)); !errors.Is(err, domain.ErrMalformedFilterValue) {
			t.Errorf("%s %s: err = %v", tt.kind, tt.body, err)
		}
	}
}

func TestDecodeForm(t *testing.T) {
	form := url.Values{
		"make":      {"BMW", " ", "Audi"},
		"price_min": {"1000"},
		"price_max": {""},
		"fuel":      {""},
		"location":  {"  Cluj "},
	}
	filters, err := DecodeForm(formSchema(), form)
	if err != nil {
		t.Fatal(err)
	}
	if len(filters) != 4 || filters[0].Key != "make" || filters[3].Key != "location" {
		t.Fatalf("filters = %+v", filters)
	}
	if ms := filters[0].Value.(domain.MultiSelect); ms.Len() != 2 {
		t.Errorf("make = %v", ms)
	}
	if r := filters[1].Value.(domain.Range); r.Min == nil || *r.Min != 1000 || r.Max != nil {
		t.Errorf("price = %v", r)
	}
	if filters[2].Value.IsActive() {
		t.Errorf("blank scalar should be empty")
	}
	if q := filters[3].Value.(domain.Text).Query; q != "Cluj" {
		t.Errorf("location = %q", q)
	}
}

func TestDecodeFormBadNumber(t *testing.T) {
	tests := []url.Values{
		{"price_max": {"cheap"}},
		{"price_min": {"NaN"}},
		{"price_max": {"Inf"}},
		{"price_min": {"-inf"}, "price_max": {"100"}},
	}
	for _, form := range tests {
		if _, err := DecodeForm(formSchema(), form); !errors.Is(err, domain.ErrMalformedFilterValue) {
			t.Errorf("%v: err = %v", form, err)
		}
	}
}
