package constants

const (
	// Outgoing: filter activity of opened pages.
	FilterEventsExchange    = "catalog.filters"
	FilterChangedRoutingKey = "filters.changed"
	FiltersSavedRoutingKey  = "filters.saved"
	FilterChangedEventType  = "filters-changed"
	FiltersSavedEventType   = "filters-saved"
	FilterEventsVersion     = "1.0.0"

	// Incoming: listings published by the upload flow.
	ListingsExchange           = "catalog.listings"
	ListingPublishedQueue      = "catalog_listing_published_queue"
	ListingPublishedRoutingKey = "listing.published"
	ListingPublishedEventType  = "listing-published"
	ListingPublishedVersion    = "1.0.0"

	ListingsRetryExchange = "catalog.listings.retry"
	ListingsRetryQueue    = "catalog_listing_published_wait_queue"
	ListingsFinalDLX      = "catalog.listings.dlx"
	ListingsFinalDLQ      = "catalog_listing_published_dlq"
)
