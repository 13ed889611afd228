package rest

import (
	"encoding/json"
	"time"

	"catalog-service/internal/core/domain"

	"github.com/google/uuid"
)

type CategoryResponse struct {
	Category   string `json:"category"`
	Title      string `json:"title"`
	FacetCount int    `json:"facet_count"`
}

type OpenPageRequest struct {
	Category      string     `json:"category"`
	SavedFilterID *uuid.UUID `json:"saved_filter_id,omitempty"`
}

type SaveFiltersRequest struct {
	Name string `json:"name"`
}

// IngestListingRequest has the shape of a listing-published event.
type IngestListingRequest struct {
	ID         *uuid.UUID     `json:"id,omitempty"`
	Category   string         `json:"category"`
	Title      string         `json:"title"`
	VideoURL   string         `json:"video_url,omitempty"`
	ThumbURL   string         `json:"thumb_url,omitempty"`
	CreatedAt  *time.Time     `json:"created_at,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

type ListingResponse struct {
	ID         string         `json:"id"`
	Category   string         `json:"category"`
	Title      string         `json:"title"`
	VideoURL   string         `json:"video_url,omitempty"`
	ThumbURL   string         `json:"thumb_url,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Attributes map[string]any `json:"attributes"`
}

type PageResponse struct {
	PageID      string                 `json:"page_id"`
	Category    string                 `json:"category"`
	OpenedAt    time.Time              `json:"opened_at"`
	Revision    int                    `json:"revision"`
	Total       int                    `json:"total"`
	Matched     int                    `json:"matched"`
	ActiveCount int                    `json:"active_count"`
	NoResults   bool                   `json:"no_results"`
	Active      map[string]interface{} `json:"active"`
	Listings    []ListingResponse      `json:"listings"`
}

type ActiveFiltersResponse struct {
	PageID      string                 `json:"page_id"`
	ActiveCount int                    `json:"active_count"`
	Active      map[string]interface{} `json:"active"`
}

type SavedFilterResponse struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Name      string          `json:"name"`
	Values    json.RawMessage `json:"values"`
	CreatedAt time.Time       `json:"created_at"`
}

func toListingResponse(l domain.Listing) ListingResponse {
	attrs := l.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return ListingResponse{
		ID:         l.ID.String(),
		Category:   l.Category,
		Title:      l.Title,
		VideoURL:   l.VideoURL,
		ThumbURL:   l.ThumbURL,
		CreatedAt:  l.CreatedAt,
		Attributes: attrs,
	}
}

func toPageResponse(s *domain.PageSnapshot) PageResponse {
	resp := PageResponse{
		PageID:      s.Info.ID.String(),
		Category:    s.Info.Category,
		OpenedAt:    s.Info.OpenedAt,
		Revision:    s.View.Revision,
		Total:       s.View.Total,
		Matched:     s.View.Matched,
		ActiveCount: s.View.ActiveCount,
		NoResults:   s.View.NoResults,
		Active:      toActiveResponse(s.View.Active),
		Listings:    make([]ListingResponse, 0, len(s.View.Visible)),
	}
	for _, l := range s.View.Visible {
		resp.Listings = append(resp.Listings, toListingResponse(l))
	}
	return resp
}

// toActiveResponse encodes values in the same shapes PUT .../filters/{facet} accepts.
func toActiveResponse(active domain.ActiveFilters) map[string]interface{} {
	out := make(map[string]interface{}, len(active))
	for key, value := range active {
		switch v := value.(type) {
		case domain.MultiSelect:
			out[key] = map[string]interface{}{"values": v.Values()}
		case domain.Range:
			out[key] = map[string]interface{}{"min": v.Min, "max": v.Max}
		case domain.Scalar:
			out[key] = map[string]interface{}{"value": v.Value}
		case domain.Text:
			out[key] = map[string]interface{}{"query": v.Query}
		}
	}
	return out
}

func toSavedFilterResponse(f domain.SavedFilter) SavedFilterResponse {
	return SavedFilterResponse{
		ID:        f.ID.String(),
		Category:  f.Category,
		Name:      f.Name,
		Values:    f.Values,
		CreatedAt: f.CreatedAt,
	}
}

func (req IngestListingRequest) toDomain() domain.Listing {
	l := domain.Listing{
		Category:   req.Category,
		Title:      req.Title,
		VideoURL:   req.VideoURL,
		ThumbURL:   req.ThumbURL,
		Attributes: make(map[string]any, len(req.Attributes)),
	}
	if req.ID != nil {
		l.ID = *req.ID
	}
	if req.CreatedAt != nil {
		l.CreatedAt = req.CreatedAt.UTC()
	}
	for k, v := range req.Attributes {
		if v != nil {
			l.Attributes[k] = v
		}
	}
	return l
}
