package rabbitmq_consumer

import (
	"context"
	"fmt"
	"time"

	"catalog-service/pkg/rabbitmq/rabbitmq_common"

	amqp "github.com/rabbitmq/amqp091-go"
)

// BatchMessageHandler processes a batch. A nil error acks the whole batch.
type BatchMessageHandler func(deliveries []amqp.Delivery) error

// BatchConsumer accumulates deliveries until batchSize is reached or
// batchTimeout passes since the first message of the batch.
type BatchConsumer struct {
	base         *baseConsumer
	handler      BatchMessageHandler
	batchSize    int
	batchTimeout time.Duration
}

func NewBatchConsumer(cfg ConsumerConfig, handler BatchMessageHandler, batchSize int, batchTimeout time.Duration, connManager *rabbitmq_common.ConnectionManager) (*BatchConsumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("batch Consumer: message handler is required")
	}
	if batchSize <= 0 || batchTimeout <= 0 {
		return nil, fmt.Errorf("batch Consumer: batch size and timeout must be positive")
	}
	// the broker must be allowed to deliver a full batch before the first ack
	if cfg.PrefetchCount < batchSize {
		cfg.PrefetchCount = batchSize
	}
	bc, err := newBaseConsumer(cfg, connManager)
	if err != nil {
		return nil, fmt.Errorf("batch Consumer: %w", err)
	}
	return &BatchConsumer{base: bc, handler: handler, batchSize: batchSize, batchTimeout: batchTimeout}, nil
}

// StartConsuming blocks until ctx is cancelled or the connection is lost.
// The pending batch is flushed on shutdown.
func (c *BatchConsumer) StartConsuming(ctx context.Context) error {
	msgs, err := c.base.consume()
	if err != nil {
		return fmt.Errorf("batch Consumer: %w", err)
	}
	c.base.Logger.Info("Waiting for messages", "queue", c.base.actualQueueName, "batch_size", c.batchSize)

	c.base.wg.Add(1)
	go func() {
		defer c.base.wg.Done()
		batch := make([]amqp.Delivery, 0, c.batchSize)
		timer := time.NewTimer(c.batchTimeout)
		if !timer.Stop() {
			<-timer.C
		}
		flush := func() {
			c.processBatch(batch)
			batch = make([]amqp.Delivery, 0, c.batchSize)
		}

		for {
			select {
			case <-ctx.Done():
				flush()
				return
			case d, ok := <-msgs:
				if !ok {
					flush()
					return
				}
				if len(batch) == 0 {
					timer.Reset(c.batchTimeout)
				}
				batch = append(batch, d)
				if len(batch) >= c.batchSize {
					if !timer.Stop() {
						<-timer.C
					}
					flush()
				}
			case <-timer.C:
				if len(batch) > 0 {
					c.base.Logger.Debug("Batch timeout reached", "batch_size", len(batch))
					flush()
				}
			}
		}
	}()

	return c.base.waitForShutdown(ctx)
}

func (c *BatchConsumer) processBatch(batch []amqp.Delivery) {
	if len(batch) == 0 {
		return
	}
	err := c.handler(batch)
	if err == nil {
		_ = c.base.channel.Ack(batch[len(batch)-1].DeliveryTag, true)
		c.base.Logger.Debug("Batch acked", "batch_size", len(batch))
		return
	}

	c.base.Logger.Error(err, "Handler returned error for batch", "batch_size", len(batch))
	for _, d := range batch {
		c.base.settleFailed(d)
	}
}

// Close waits for the last batch and releases the channel.
func (c *BatchConsumer) Close() error {
	return c.base.Close()
}
