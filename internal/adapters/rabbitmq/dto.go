package rabbitmq

import (
	"encoding/json"
	"time"

	"catalog-service/internal/core/domain"

	"github.com/google/uuid"
)

// FiltersChangedDTO is the body of a filters-changed event.
type FiltersChangedDTO struct {
	PageID     uuid.UUID       `json:"page_id"`
	Category   string          `json:"category"`
	Facet      string          `json:"facet,omitempty"`
	Reset      bool            `json:"reset"`
	Active     json.RawMessage `json:"active"`
	Matched    int             `json:"matched"`
	Total      int             `json:"total"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// FiltersSavedDTO is the body of a filters-saved event.
type FiltersSavedDTO struct {
	SavedFilterID uuid.UUID       `json:"saved_filter_id"`
	PageID        *uuid.UUID      `json:"page_id,omitempty"`
	Category      string          `json:"category"`
	Name          string          `json:"name"`
	Values        json.RawMessage `json:"values"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// ListingPublishedDTO is the body of a listing-published event.
type ListingPublishedDTO struct {
	ID         *uuid.UUID     `json:"id,omitempty"`
	Category   string         `json:"category"`
	Title      string         `json:"title"`
	VideoURL   string         `json:"video_url,omitempty"`
	ThumbURL   string         `json:"thumb_url,omitempty"`
	CreatedAt  *time.Time     `json:"created_at,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

func toFiltersChangedDTO(e domain.FiltersChangedEvent) FiltersChangedDTO {
	active := e.Active
	if len(active) == 0 {
		active = json.RawMessage("{}")
	}
	return FiltersChangedDTO{
		PageID:     e.PageID,
		Category:   e.Category,
		Facet:      e.Facet,
		Reset:      e.Reset,
		Active:     active,
		Matched:    e.Matched,
		Total:      e.Total,
		OccurredAt: e.OccurredAt.UTC(),
	}
}

func toFiltersSavedDTO(e domain.FiltersSavedEvent) FiltersSavedDTO {
	dto := FiltersSavedDTO{
		SavedFilterID: e.SavedFilterID,
		Category:      e.Category,
		Name:          e.Name,
		Values:        e.Values,
		OccurredAt:    e.OccurredAt.UTC(),
	}
	if e.PageID != uuid.Nil {
		id := e.PageID
		dto.PageID = &id
	}
	return dto
}

func toDomainListing(dto ListingPublishedDTO) domain.Listing {
	l := domain.Listing{
		Category:   dto.Category,
		Title:      dto.Title,
		VideoURL:   dto.VideoURL,
		ThumbURL:   dto.ThumbURL,
		Attributes: make(map[string]any, len(dto.Attributes)),
	}
	if dto.ID != nil {
		l.ID = *dto.ID
	}
	if dto.CreatedAt != nil {
		l.CreatedAt = dto.CreatedAt.UTC()
	}
	for k, v := range dto.Attributes {
		if v != nil {
			l.Attributes[k] = v
		}
	}
	return l
}

func toListingPublishedDTO(l domain.Listing) ListingPublishedDTO {
	dto := ListingPublishedDTO{
		Category:   l.Category,
		Title:      l.Title,
		VideoURL:   l.VideoURL,
		ThumbURL:   l.ThumbURL,
		Attributes: l.Attributes,
	}
	if dto.Attributes == nil {
		dto.Attributes = map[string]any{}
	}
	if l.ID != uuid.Nil {
		id := l.ID
		dto.ID = &id
	}
	if !l.CreatedAt.IsZero() {
		created := l.CreatedAt.UTC()
		dto.CreatedAt = &created
	}
	return dto
}
