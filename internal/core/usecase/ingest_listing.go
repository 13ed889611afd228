package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/page"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
)

// GeoCellPrecision is the geohash length of the geo_cell attribute (about 5x5 km).
const GeoCellPrecision = 5

type IngestListingUseCase struct {
	schemas  port.SchemaProviderPort
	listings port.ListingRepositoryPort
	pages    *page.Registry
}

func NewIngestListingUseCase(schemas port.SchemaProviderPort, listings port.ListingRepositoryPort, pages *page.Registry) *IngestListingUseCase {
	return &IngestListingUseCase{schemas: schemas, listings: listings, pages: pages}
}

// Execute stores one listing and refreshes the open pages of its category.
func (uc *IngestListingUseCase) Execute(ctx context.Context, listing domain.Listing) (*domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "IngestListing",
		"category": listing.Category,
	})
	ucLogger.Info("Use case started", nil)

	if err := uc.prepare(&listing); err != nil {
		ucLogger.Warn("Listing rejected", port.Fields{"error": err.Error()})
		return nil, err
	}
	if err := uc.listings.Save(ctx, listing); err != nil {
		ucLogger.Error("Failed to save listing", err, nil)
		return nil, fmt.Errorf("failed to save listing: %w", err)
	}

	refreshed := uc.refreshPages(ctx, listing.Category, ucLogger)
	ucLogger.Info("Use case finished successfully", port.Fields{
		"listing_id":      listing.ID.String(),
		"pages_refreshed": refreshed,
	})
	return &listing, nil
}

// ExecuteBatch stores listings in one batch, skipping the invalid ones, and
// refreshes every touched category once. It returns how many were stored.
func (uc *IngestListingUseCase) ExecuteBatch(ctx context.Context, listings []domain.Listing) (int, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":   "IngestListingBatch",
		"batch_size": len(listings),
	})
	ucLogger.Info("Use case started", nil)

	valid := make([]domain.Listing, 0, len(listings))
	categories := make(map[string]struct{})
	for _, l := range listings {
		if err := uc.prepare(&l); err != nil {
			ucLogger.Warn("Listing skipped", port.Fields{"title": l.Title, "error": err.Error()})
			continue
		}
		valid = append(valid, l)
		categories[l.Category] = struct{}{}
	}
	if len(valid) == 0 {
		ucLogger.Info("Nothing to store", nil)
		return 0, nil
	}
	if err := uc.listings.BatchSave(ctx, valid); err != nil {
		ucLogger.Error("Failed to save listings batch", err, nil)
		return 0, fmt.Errorf("failed to save listings: %w", err)
	}
	for category := range categories {
		uc.refreshPages(ctx, category, ucLogger)
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"stored": len(valid)})
	return len(valid), nil
}

func (uc *IngestListingUseCase) prepare(l *domain.Listing) error {
	l.Category = strings.TrimSpace(l.Category)
	l.Title = strings.TrimSpace(l.Title)
	if _, err := uc.schemas.Declarations(l.Category); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidListing, err)
	}
	if l.Title == "" {
		return fmt.Errorf("%w: title is empty", domain.ErrInvalidListing)
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	attrs := make(map[string]any, len(l.Attributes)+1)
	for k, v := range l.Attributes {
		attrs[k] = v
	}
	l.Attributes = attrs
	if cell, ok := GeoCell(*l); ok {
		l.Attributes["geo_cell"] = cell
	}
	return nil
}

// GeoCell returns the geohash cell of a listing carrying lat/lng attributes.
func GeoCell(l domain.Listing) (string, bool) {
	lat, okLat := l.NumberAttr("lat")
	lng, okLng := l.NumberAttr("lng")
	if !okLat || !okLng || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return "", false
	}
	return geohash.EncodeWithPrecision(lat, lng, GeoCellPrecision), true
}

func (uc *IngestListingUseCase) refreshPages(ctx context.Context, category string, logger port.LoggerPort) int {
	pages := uc.pages.ForCategory(category)
	if len(pages) == 0 {
		return 0
	}
	listings, err := uc.listings.ListByCategory(ctx, category)
	if err != nil {
		logger.Error("Failed to reload listings for open pages", err, port.Fields{"category": category})
		return 0
	}
	for _, ctrl := range pages {
		ctrl.ReplaceListings(listings)
	}
	return len(pages)
}
