package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"catalog-service/internal/contracts"
	"catalog-service/internal/core/domain"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed categories/*.json
var categoriesFS embed.FS

// Registry keeps the filter schema of every category. Schemas are read-only
// after loading; Get hands out copies.
type Registry struct {
	schemas    map[string]*domain.FilterSchema
	categories []string
}

// NewRegistry loads the built-in category schemas.
func NewRegistry() (*Registry, error) {
	return LoadRegistry(categoriesFS, "categories")
}

// LoadRegistry loads every *.json file of dir. Each file is checked against the
// filter-schema contract before it is decoded.
func LoadRegistry(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema dir %s: %w", dir, err)
	}

	reg := &Registry{schemas: make(map[string]*domain.FilterSchema)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		p := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", p, err)
		}
		s, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", p, err)
		}
		if _, dup := reg.schemas[s.Category]; dup {
			return nil, fmt.Errorf("schema %s: category %q is declared twice", p, s.Category)
		}
		reg.schemas[s.Category] = s
		reg.categories = append(reg.categories, s.Category)
	}
	if len(reg.schemas) == 0 {
		return nil, fmt.Errorf("no schemas found in %s", dir)
	}
	sort.Strings(reg.categories)
	return reg, nil
}

func parse(data []byte) (*domain.FilterSchema, error) {
	if err := contracts.Validate(contracts.FilterSchema, "1.0.0", data); err != nil {
		return nil, err
	}
	var s domain.FilterSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}

	title := cases.Title(language.English, cases.NoLower)
	if s.Title == "" {
		s.Title = title.String(strings.ReplaceAll(s.Category, "-", " "))
	}
	seen := make(map[string]struct{}, len(s.Facets))
	for i := range s.Facets {
		f := &s.Facets[i]
		if _, dup := seen[f.Key]; dup {
			return nil, fmt.Errorf("facet %q is declared twice", f.Key)
		}
		seen[f.Key] = struct{}{}
		if f.Label == "" {
			f.Label = title.String(strings.ReplaceAll(f.Key, "_", " "))
		}
		for j := range f.Options {
			if f.Options[j].Label == "" {
				f.Options[j].Label = title.String(strings.ReplaceAll(f.Options[j].Value, "_", " "))
			}
		}
	}
	return &s, nil
}

// Categories returns the known categories sorted by name.
func (r *Registry) Categories() []string {
	out := make([]string, len(r.categories))
	copy(out, r.categories)
	return out
}

// Get returns a copy of the schema of category.
func (r *Registry) Get(category string) (*domain.FilterSchema, error) {
	s, ok := r.schemas[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}
	return Clone(s), nil
}

// Declarations returns the engine facet declarations of category.
func (r *Registry) Declarations(category string) ([]domain.FacetDecl, error) {
	s, ok := r.schemas[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}
	return s.Declarations(), nil
}

// Clone deep-copies a schema so callers can enrich it freely.
func Clone(s *domain.FilterSchema) *domain.FilterSchema {
	out := *s
	out.Facets = make([]domain.SchemaFacet, len(s.Facets))
	for i, f := range s.Facets {
		f.Options = append([]domain.FacetOption(nil), f.Options...)
		f.Min = copyFloat(f.Min)
		f.Max = copyFloat(f.Max)
		f.Step = copyFloat(f.Step)
		out.Facets[i] = f
	}
	return &out
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
