package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"catalog-service/internal/constants"
	"catalog-service/internal/contracts"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"
)

// ListingEventsAdapter publishes listing-published events to the catalog.listings
// exchange, the same events ListingConsumerAdapter ingests.
type ListingEventsAdapter struct {
	producer       Publisher
	publishTimeout time.Duration
}

func NewListingEventsAdapter(producer Publisher) (*ListingEventsAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	return &ListingEventsAdapter{producer: producer, publishTimeout: 10 * time.Second}, nil
}

func (a *ListingEventsAdapter) PublishListing(ctx context.Context, listing domain.Listing) error {
	return publishEvent(ctx, a.producer, a.publishTimeout, outgoingEvent{
		component:  "ListingEventsAdapter",
		routingKey: constants.ListingPublishedRoutingKey,
		contract:   contracts.ListingPublished,
		version:    constants.ListingPublishedVersion,
		eventType:  constants.ListingPublishedEventType,
		body:       toListingPublishedDTO(listing),
		fields:     port.Fields{"category": listing.Category, "title": listing.Title},
	})
}
