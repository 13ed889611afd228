package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FiltersChangedEvent is published after every accepted filter mutation of a page.
type FiltersChangedEvent struct {
	PageID   uuid.UUID
	Category string
	// Facet is empty for a reset or a whole-form submit.
	Facet      string
	Reset      bool
	Active     json.RawMessage
	Matched    int
	Total      int
	OccurredAt time.Time
}

// FiltersSavedEvent is published when a page's filters are stored as a SavedFilter.
type FiltersSavedEvent struct {
	SavedFilterID uuid.UUID
	PageID        uuid.UUID
	Category      string
	Name          string
	Values        json.RawMessage
	OccurredAt    time.Time
}

// CategoryInfo - short description of a browsable category.
type CategoryInfo struct {
	Category   string
	Title      string
	FacetCount int
}
