package rabbitmq_consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catalog-service/pkg/rabbitmq/rabbitmq_common"
	"catalog-service/pkg/rabbitmq/rabbitmq_producer"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerConfig describes the queue, its binding and the retry topology.
type ConsumerConfig struct {
	rabbitmq_common.Config

	QueueName       string // empty lets the server name the queue (requires DeclareQueue)
	DeclareQueue    bool
	DurableQueue    bool
	ExclusiveQueue  bool
	AutoDeleteQueue bool
	QueueArgs       amqp.Table

	ExchangeNameForBind    string // empty skips binding
	DeclareExchangeForBind bool
	ExchangeTypeForBind    string
	DurableExchangeForBind bool
	ExchangeArgsForBind    amqp.Table
	RoutingKeyForBind      string
	BindingArgs            amqp.Table

	PrefetchCount int // <= 0 means unlimited
	PrefetchSize  int
	QosGlobal     bool

	ConsumerTag       string
	ExclusiveConsumer bool

	// Retry topology: failed messages are dead-lettered to RetryExchange, wait
	// RetryTTL ms in RetryQueue and come back to ExchangeNameForBind. After
	// MaxRetries deaths they are published to FinalDLXExchange.
	EnableRetryMechanism bool
	RetryExchange        string
	RetryQueue           string
	RetryTTL             int
	FinalDLXExchange     string
	FinalDLQ             string
	FinalDLQRoutingKey   string
	MaxRetries           int

	Logger rabbitmq_common.Logger
}

// Validate checks the combination of settings.
func (cfg ConsumerConfig) Validate() error {
	if err := cfg.Config.Validate(); err != nil {
		return fmt.Errorf("invalid base config: %w", err)
	}
	if !cfg.DeclareQueue && cfg.QueueName == "" {
		return fmt.Errorf("queue name is required if DeclareQueue is false")
	}
	if cfg.DeclareExchangeForBind && cfg.ExchangeNameForBind != "" && cfg.ExchangeTypeForBind == "" {
		return fmt.Errorf("exchange type is required if declaring an exchange for binding")
	}
	if cfg.EnableRetryMechanism {
		if cfg.RetryExchange == "" || cfg.RetryQueue == "" || cfg.FinalDLXExchange == "" || cfg.FinalDLQ == "" {
			return fmt.Errorf("retry mechanism needs retry exchange/queue and final DLX/DLQ names")
		}
		if cfg.ExchangeNameForBind == "" {
			return fmt.Errorf("retry mechanism needs ExchangeNameForBind to route retried messages back")
		}
		if cfg.RetryTTL <= 0 {
			return fmt.Errorf("retry mechanism needs a positive RetryTTL")
		}
	}
	return nil
}

// baseConsumer holds the channel, topology setup and retry handling shared by
// the distributing and batch consumers.
type baseConsumer struct {
	config            ConsumerConfig
	connection        *amqp.Connection
	channel           *amqp.Channel
	actualQueueName   string
	finalDlxPublisher *rabbitmq_producer.Publisher
	wg                sync.WaitGroup

	Logger rabbitmq_common.Logger
}

func newBaseConsumer(cfg ConsumerConfig, connManager *rabbitmq_common.ConnectionManager) (*baseConsumer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = rabbitmq_common.NewNoopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("base Consumer: %w", err)
	}

	conn, ch, err := connManager.GetChannel()
	if err != nil {
		return nil, fmt.Errorf("base Consumer: failed to get channel from manager: %w", err)
	}
	c := &baseConsumer{config: cfg, connection: conn, channel: ch, Logger: logger}

	if err := c.setup(); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("base Consumer: setup failed: %w", err)
	}

	if cfg.EnableRetryMechanism {
		dlxPublisher, err := rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
			Config:       cfg.Config,
			ExchangeName: cfg.FinalDLXExchange,
			Logger:       logger,
		}, connManager)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("base Consumer: failed to create final DLX publisher: %w", err)
		}
		c.finalDlxPublisher = dlxPublisher
	}
	return c, nil
}

// setup applies QoS and declares the queue, exchange, binding and retry topology.
func (c *baseConsumer) setup() error {
	cfg := &c.config
	ch := c.channel

	if cfg.PrefetchCount > 0 || cfg.PrefetchSize > 0 {
		c.Logger.Debug("Setting QoS", "prefetch_count", cfg.PrefetchCount, "prefetch_size", cfg.PrefetchSize)
		if err := ch.Qos(cfg.PrefetchCount, cfg.PrefetchSize, cfg.QosGlobal); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	if cfg.EnableRetryMechanism {
		args := amqp.Table{}
		for k, v := range cfg.QueueArgs {
			args[k] = v
		}
		args["x-dead-letter-exchange"] = cfg.RetryExchange
		cfg.QueueArgs = args
	}

	c.actualQueueName = cfg.QueueName
	if cfg.DeclareQueue {
		c.Logger.Debug("Declaring queue", "name", cfg.QueueName, "durable", cfg.DurableQueue)
		q, err := ch.QueueDeclare(cfg.QueueName, cfg.DurableQueue, cfg.AutoDeleteQueue, cfg.ExclusiveQueue, false, cfg.QueueArgs)
		if err != nil {
			return fmt.Errorf("failed to declare queue '%s': %w", cfg.QueueName, err)
		}
		c.actualQueueName = q.Name
	}

	if cfg.DeclareExchangeForBind {
		c.Logger.Debug("Declaring exchange", "name", cfg.ExchangeNameForBind, "type", cfg.ExchangeTypeForBind)
		err := ch.ExchangeDeclare(cfg.ExchangeNameForBind, cfg.ExchangeTypeForBind, cfg.DurableExchangeForBind, false, false, false, cfg.ExchangeArgsForBind)
		if err != nil {
			return fmt.Errorf("failed to declare exchange '%s' for binding: %w", cfg.ExchangeNameForBind, err)
		}
	}

	if cfg.ExchangeNameForBind != "" {
		c.Logger.Debug("Binding queue", "queue", c.actualQueueName, "exchange", cfg.ExchangeNameForBind, "routing_key", cfg.RoutingKeyForBind)
		if err := ch.QueueBind(c.actualQueueName, cfg.RoutingKeyForBind, cfg.ExchangeNameForBind, false, cfg.BindingArgs); err != nil {
			return fmt.Errorf("failed to bind queue '%s' to exchange '%s': %w", c.actualQueueName, cfg.ExchangeNameForBind, err)
		}
	}

	if cfg.EnableRetryMechanism {
		if err := c.setupRetry(); err != nil {
			return err
		}
	}

	c.Logger.Debug("Setup complete", "queue", c.actualQueueName)
	return nil
}

func (c *baseConsumer) setupRetry() error {
	cfg := c.config
	ch := c.channel

	if err := ch.ExchangeDeclare(cfg.FinalDLXExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare final DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.FinalDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare final DLQ: %w", err)
	}
	if err := ch.QueueBind(cfg.FinalDLQ, cfg.FinalDLQRoutingKey, cfg.FinalDLXExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind final DLQ: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.RetryExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare retry exchange: %w", err)
	}
	// the wait queue dead-letters expired messages back to the main exchange
	_, err := ch.QueueDeclare(cfg.RetryQueue, true, false, false, false, amqp.Table{
		"x-message-ttl":          int32(cfg.RetryTTL),
		"x-dead-letter-exchange": cfg.ExchangeNameForBind,
	})
	if err != nil {
		return fmt.Errorf("failed to declare retry-wait queue: %w", err)
	}
	if err := ch.QueueBind(cfg.RetryQueue, "", cfg.RetryExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind retry-wait queue: %w", err)
	}
	c.Logger.Debug("Retry topology ready", "retry_queue", cfg.RetryQueue, "ttl_ms", cfg.RetryTTL)
	return nil
}

// consume registers the consumer on the queue.
func (c *baseConsumer) consume() (<-chan amqp.Delivery, error) {
	if c.channel == nil || c.connection == nil || c.connection.IsClosed() {
		return nil, fmt.Errorf("not connected")
	}
	msgs, err := c.channel.Consume(c.actualQueueName, c.config.ConsumerTag, false, c.config.ExclusiveConsumer, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register a consumer on queue '%s': %w", c.actualQueueName, err)
	}
	return msgs, nil
}

// waitForShutdown blocks until ctx is done (nil) or the connection drops (its error).
func (c *baseConsumer) waitForShutdown(ctx context.Context) error {
	notifyClose := c.connection.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		c.Logger.Info("Context cancelled, shutting down consumer", "consumer_tag", c.config.ConsumerTag)
		return nil
	case err := <-notifyClose:
		if err == nil {
			return fmt.Errorf("connection closed")
		}
		c.Logger.Error(err, "Connection closed for consumer", "consumer_tag", c.config.ConsumerTag)
		return err
	}
}

// settleFailed decides the fate of a message whose handler failed: drop it when
// retries are off, send it around the retry loop, or park it in the final DLQ.
func (c *baseConsumer) settleFailed(d amqp.Delivery) {
	if !c.config.EnableRetryMechanism {
		c.Logger.Info("Retry disabled, dropping message", "delivery_tag", d.DeliveryTag)
		_ = d.Nack(false, false)
		return
	}

	deaths := DeathCount(d.Headers, c.actualQueueName)
	if deaths < int64(c.config.MaxRetries) {
		c.Logger.Info("Retrying message", "delivery_tag", d.DeliveryTag, "death_count", deaths)
		_ = d.Nack(false, false)
		return
	}

	c.Logger.Warn("Max retries reached, publishing to final DLX", "delivery_tag", d.DeliveryTag)
	err := c.finalDlxPublisher.Publish(context.Background(), c.config.FinalDLQRoutingKey, amqp.Publishing{
		ContentType:  d.ContentType,
		Body:         d.Body,
		Headers:      d.Headers,
		Timestamp:    time.Now(),
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		c.Logger.Error(err, "Failed to publish to final DLX, sending message around again", "delivery_tag", d.DeliveryTag)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// DeathCount returns how many times a message died in queue, read from the
// x-death header RabbitMQ maintains.
func DeathCount(headers amqp.Table, queue string) int64 {
	deaths, ok := headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	for _, death := range deaths {
		tbl, ok := death.(amqp.Table)
		if !ok {
			continue
		}
		if q, _ := tbl["queue"].(string); q != queue {
			continue
		}
		if count, ok := tbl["count"].(int64); ok {
			return count
		}
	}
	return 0
}

// Close waits for running handlers and closes the channel.
func (c *baseConsumer) Close() error {
	c.Logger.Debug("Waiting for message handlers to finish")
	c.wg.Wait()

	var firstErr error
	if c.finalDlxPublisher != nil {
		if err := c.finalDlxPublisher.Close(); err != nil {
			firstErr = err
		}
	}
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && firstErr == nil {
			c.Logger.Error(err, "Error closing channel")
			firstErr = err
		}
		c.channel = nil
	}
	c.Logger.Info("Consumer closed", "queue", c.actualQueueName)
	return firstErr
}
