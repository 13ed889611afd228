package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"catalog-service/internal/constants"
	"catalog-service/internal/contextkeys"
	"catalog-service/internal/contracts"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the part of rabbitmq_producer.Publisher the adapter needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// FilterEventsAdapter publishes filter activity to the catalog.filters exchange.
type FilterEventsAdapter struct {
	producer       Publisher
	publishTimeout time.Duration
}

var _ port.FilterEventPublisherPort = (*FilterEventsAdapter)(nil)

func NewFilterEventsAdapter(producer Publisher) (*FilterEventsAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	return &FilterEventsAdapter{producer: producer, publishTimeout: 10 * time.Second}, nil
}

func (a *FilterEventsAdapter) PublishFiltersChanged(ctx context.Context, event domain.FiltersChangedEvent) error {
	return a.publish(ctx, constants.FilterChangedRoutingKey, contracts.FiltersChanged, constants.FilterChangedEventType, toFiltersChangedDTO(event),
		port.Fields{"page_id": event.PageID.String(), "facet": event.Facet, "reset": event.Reset})
}

func (a *FilterEventsAdapter) PublishFiltersSaved(ctx context.Context, event domain.FiltersSavedEvent) error {
	return a.publish(ctx, constants.FiltersSavedRoutingKey, contracts.FiltersSaved, constants.FiltersSavedEventType, toFiltersSavedDTO(event),
		port.Fields{"saved_filter_id": event.SavedFilterID.String()})
}

func (a *FilterEventsAdapter) publish(ctx context.Context, routingKey, contract, eventType string, dto interface{}, fields port.Fields) error {
	return publishEvent(ctx, a.producer, a.publishTimeout, outgoingEvent{
		component:  "FilterEventsAdapter",
		routingKey: routingKey,
		contract:   contract,
		version:    constants.FilterEventsVersion,
		eventType:  eventType,
		body:       dto,
		fields:     fields,
	})
}

type outgoingEvent struct {
	component  string
	routingKey string
	contract   string
	version    string
	eventType  string
	body       interface{}
	fields     port.Fields
}

// publishEvent validates the body against its contract before it leaves the service.
func publishEvent(ctx context.Context, producer Publisher, timeout time.Duration, ev outgoingEvent) error {
	logger := contextkeys.LoggerFromContext(ctx)
	adapterLogger := logger.WithFields(port.Fields{
		"component":   ev.component,
		"routing_key": ev.routingKey,
	}).WithFields(ev.fields)

	body, err := json.Marshal(ev.body)
	if err != nil {
		return fmt.Errorf("rabbitmq adapter: failed to marshal %s event: %w", ev.eventType, err)
	}
	if err := contracts.Validate(ev.contract, ev.version, body); err != nil {
		adapterLogger.Error("Event failed contract validation, not published", err, nil)
		return fmt.Errorf("rabbitmq adapter: %s event violates its contract: %w", ev.eventType, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"event-type":    ev.eventType,
			"event-version": ev.version,
		},
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := producer.Publish(publishCtx, ev.routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish event", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish %s event: %w", ev.eventType, err)
	}
	adapterLogger.Debug("Event published", nil)
	return nil
}
