package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/contracts"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"
	"catalog-service/internal/core/port/usecases_port"
	"catalog-service/pkg/rabbitmq/rabbitmq_common"
	"catalog-service/pkg/rabbitmq/rabbitmq_consumer"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer is implemented by both consumers of pkg/rabbitmq.
type Consumer interface {
	StartConsuming(ctx context.Context) error
	Close() error
}

// ListingConsumerAdapter listens for listing-published events and feeds them
// to the ingest use case. batchSize > 1 groups deliveries into one BatchSave.
type ListingConsumerAdapter struct {
	consumer Consumer
	useCase  usecases_port.IngestListingUseCase
	logger   port.LoggerPort
}

var _ port.EventListenerPort = (*ListingConsumerAdapter)(nil)

func NewListingConsumerAdapter(
	consumerCfg rabbitmq_consumer.ConsumerConfig,
	useCase usecases_port.IngestListingUseCase,
	logger port.LoggerPort,
	batchSize int,
	batchTimeout time.Duration,
	connManager *rabbitmq_common.ConnectionManager,
) (*ListingConsumerAdapter, error) {
	adapter := newListingHandler(useCase, logger)

	pkgLogger := logger.WithFields(port.Fields{"component": "rabbitmq_consumer", "consumer_tag": consumerCfg.ConsumerTag})
	consumerCfg.Logger = NewPkgLoggerBridge(pkgLogger)

	var err error
	if batchSize > 1 {
		adapter.consumer, err = rabbitmq_consumer.NewBatchConsumer(consumerCfg, adapter.batchMessageHandler, batchSize, batchTimeout, connManager)
	} else {
		adapter.consumer, err = rabbitmq_consumer.NewDistributingConsumer(consumerCfg, adapter.messageHandler, connManager)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ consumer for published listings: %w", err)
	}
	return adapter, nil
}

func newListingHandler(useCase usecases_port.IngestListingUseCase, logger port.LoggerPort) *ListingConsumerAdapter {
	return &ListingConsumerAdapter{
		useCase: useCase,
		logger:  logger.WithFields(port.Fields{"adapter_name": "ListingConsumerAdapter"}),
	}
}

func (a *ListingConsumerAdapter) messageHandler(d amqp.Delivery) error {
	traceID := traceIDOf(d)
	msgLogger := a.logger.WithFields(port.Fields{"trace_id": traceID, "message_id": d.MessageId})
	ctx := contextkeys.ContextWithLogger(context.Background(), msgLogger)
	ctx = contextkeys.ContextWithTraceID(ctx, traceID)

	listing, err := a.unmarshalListing(d)
	if err != nil {
		msgLogger.Error("Message rejected", err, nil)
		return err
	}
	if _, err := a.useCase.Execute(ctx, listing); err != nil {
		return fmt.Errorf("failed to ingest listing: %w", err)
	}
	return nil
}

// batchMessageHandler fails the whole batch when one message is malformed so it
// goes through the retry topology and ends in the DLQ.
func (a *ListingConsumerAdapter) batchMessageHandler(deliveries []amqp.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	traceID := traceIDOf(deliveries[0])
	batchLogger := a.logger.WithFields(port.Fields{
		"trace_id":   traceID,
		"batch_id":   uuid.New().String(),
		"batch_size": len(deliveries),
	})
	ctx := contextkeys.ContextWithLogger(context.Background(), batchLogger)
	ctx = contextkeys.ContextWithTraceID(ctx, traceID)

	batchLogger.Info("Received batch of listings", nil)
	listings := make([]domain.Listing, 0, len(deliveries))
	for _, d := range deliveries {
		listing, err := a.unmarshalListing(d)
		if err != nil {
			batchLogger.Error("Message rejected, the entire batch will be retried", err, port.Fields{"message_id": d.MessageId})
			return err
		}
		listings = append(listings, listing)
	}

	stored, err := a.useCase.ExecuteBatch(ctx, listings)
	if err != nil {
		return fmt.Errorf("failed to ingest listings batch: %w", err)
	}
	batchLogger.Info("Batch processed", port.Fields{"stored": stored})
	return nil
}

func (a *ListingConsumerAdapter) unmarshalListing(d amqp.Delivery) (domain.Listing, error) {
	version, _ := d.Headers["event-version"].(string)
	if version == "" {
		version = "1.0.0"
	}
	if err := contracts.Validate(contracts.ListingPublished, version, d.Body); err != nil {
		return domain.Listing{}, fmt.Errorf("listing event failed schema validation: %w", err)
	}
	var dto ListingPublishedDTO
	if err := json.Unmarshal(d.Body, &dto); err != nil {
		return domain.Listing{}, fmt.Errorf("failed to unmarshal listing event: %w", err)
	}
	return toDomainListing(dto), nil
}

func traceIDOf(d amqp.Delivery) string {
	if traceID, _ := d.Headers["x-trace-id"].(string); traceID != "" {
		return traceID
	}
	return uuid.New().String()
}

func (a *ListingConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

func (a *ListingConsumerAdapter) Close() error {
	return a.consumer.Close()
}
