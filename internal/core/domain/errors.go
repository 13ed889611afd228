package domain

import "errors"

var (
	// ErrUnknownFacet is returned when a filter key is not part of the declared facet set.
	ErrUnknownFacet = errors.New("unknown facet")
	// ErrFacetKindMismatch is returned when a value of the wrong kind is set on a facet.
	ErrFacetKindMismatch = errors.New("facet value kind mismatch")
	// ErrInvalidFacetDecl is returned for empty, duplicated or unsupported facet declarations.
	ErrInvalidFacetDecl = errors.New("invalid facet declaration")
	// ErrMalformedFilterValue is returned by decoders when a filter payload has the wrong shape.
	ErrMalformedFilterValue = errors.New("malformed filter value")

	ErrUnknownCategory     = errors.New("unknown category")
	ErrPageNotFound        = errors.New("page not found")
	ErrSavedFilterNotFound = errors.New("saved filter not found")
	ErrListingNotFound     = errors.New("listing not found")
	ErrInvalidListing      = errors.New("invalid listing")
)
