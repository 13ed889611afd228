package domain

import (
	"time"

	"github.com/google/uuid"
)

// PageView - the recomputed state of a filter page after a notification.
type PageView struct {
	PageID      uuid.UUID
	Category    string
	Visible     []Listing
	Total       int // size of the listing collection
	Matched     int // number of matching listings before pagination
	ActiveCount int
	Active      ActiveFilters
	// NoResults is set when nothing matches. Pages render it as an explicit block.
	NoResults  bool
	Revision   int
	ComputedAt time.Time
}

// PageInfo - the public handle of an opened page.
type PageInfo struct {
	ID       uuid.UUID
	Category string
	OpenedAt time.Time
}

// PageSnapshot bundles what a caller needs to draw a page: its handle, the
// latest view and the filter state the view was computed from.
type PageSnapshot struct {
	Info  PageInfo
	View  PageView
	State *FilterState
}
