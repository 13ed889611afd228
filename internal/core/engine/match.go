package engine

import (
	"strings"

	"catalog-service/internal/core/domain"

	"golang.org/x/text/cases"
)

// Matches reports whether listing passes every active facet of state.
// Inactive facets are skipped; a listing missing the attribute of an active facet fails.
func Matches(state *domain.FilterState, listing domain.Listing) bool {
	ok := true
	state.Each(func(key string, value domain.FacetValue) bool {
		if value == nil || !value.IsActive() {
			return true
		}
		ok = matchFacet(key, value, listing)
		return ok
	})
	return ok
}

func matchFacet(key string, value domain.FacetValue, listing domain.Listing) bool {
	switch v := value.(type) {
	case domain.MultiSelect:
		s, ok := listing.StringAttr(key)
		return ok && v.Contains(s)
	case domain.Range:
		n, ok := listing.NumberAttr(key)
		return ok && v.Contains(n)
	case domain.Scalar:
		s, ok := listing.StringAttr(key)
		return ok && s == *v.Value
	case domain.Text:
		s, ok := listing.StringAttr(key)
		return ok && containsFold(s, v.Query)
	}
	return false
}

// containsFold is a Unicode case-insensitive substring test.
func containsFold(s, substr string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(strings.TrimSpace(substr)))
}
