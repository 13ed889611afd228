package domain

// FilterSchema - descriptive metadata of one category's filter form.
// Only renderers and page controllers read it; the engine never does.
type FilterSchema struct {
	Category string        `json:"category"`
	Title    string        `json:"title"`
	Facets   []SchemaFacet `json:"facets"`
}

// SchemaFacet describes one form control.
type SchemaFacet struct {
	Key         string        `json:"key"`
	Label       string        `json:"label,omitempty"`
	Kind        FacetKind     `json:"kind"`
	Options     []FacetOption `json:"options,omitempty"`
	Min         *float64      `json:"min,omitempty"`
	Max         *float64      `json:"max,omitempty"`
	Step        *float64      `json:"step,omitempty"`
	Unit        string        `json:"unit,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	// Dynamic facets get their options (or min/max) from the listings of the category.
	Dynamic bool `json:"dynamic,omitempty"`
}

// FacetOption - one selectable value.
type FacetOption struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
	Count int    `json:"count,omitempty"`
}

// Declarations converts the schema into engine facet declarations.
func (s *FilterSchema) Declarations() []FacetDecl {
	decls := make([]FacetDecl, 0, len(s.Facets))
	for _, f := range s.Facets {
		decls = append(decls, FacetDecl{Key: f.Key, Kind: f.Kind})
	}
	return decls
}

// Facet returns the facet with the given key.
func (s *FilterSchema) Facet(key string) (SchemaFacet, bool) {
	for _, f := range s.Facets {
		if f.Key == key {
			return f, true
		}
	}
	return SchemaFacet{}, false
}
