package memory

import (
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"catalog-service/internal/contracts"
	"catalog-service/internal/core/domain"

	"github.com/google/uuid"
)

//go:embed seed/catalog.json
var seedFS embed.FS

type seedListing struct {
	ID         uuid.UUID      `json:"id"`
	Category   string         `json:"category"`
	Title      string         `json:"title"`
	VideoURL   string         `json:"video_url"`
	ThumbURL   string         `json:"thumb_url"`
	CreatedAt  time.Time      `json:"created_at"`
	Attributes map[string]any `json:"attributes"`
}

// SeedCatalog returns the demo catalog shipped with the binary. Every entry has
// the shape of a listing-published event and is validated as one.
func SeedCatalog() ([]domain.Listing, error) {
	data, err := seedFS.ReadFile("seed/catalog.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read seed catalog: %w", err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse seed catalog: %w", err)
	}

	listings := make([]domain.Listing, 0, len(raw))
	for i, item := range raw {
		if err := contracts.Validate(contracts.ListingPublished, "1.0.0", item); err != nil {
			return nil, fmt.Errorf("seed listing #%d: %w", i, err)
		}
		var s seedListing
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, fmt.Errorf("seed listing #%d: %w", i, err)
		}
		listings = append(listings, domain.Listing{
			ID:         s.ID,
			Category:   s.Category,
			Title:      s.Title,
			VideoURL:   s.VideoURL,
			ThumbURL:   s.ThumbURL,
			CreatedAt:  s.CreatedAt.UTC(),
			Attributes: s.Attributes,
		})
	}
	return listings, nil
}
