package rabbitmq_consumer

import (
	"context"
	"fmt"

	"catalog-service/pkg/rabbitmq/rabbitmq_common"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler processes one delivery. A nil error acks it; otherwise the
// consumer applies the retry policy.
type MessageHandler func(delivery amqp.Delivery) error

// DistributingConsumer handles every delivery in its own goroutine.
type DistributingConsumer struct {
	base    *baseConsumer
	handler MessageHandler
}

func NewDistributingConsumer(cfg ConsumerConfig, handler MessageHandler, connManager *rabbitmq_common.ConnectionManager) (*DistributingConsumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("distributing Consumer: message handler is required")
	}
	bc, err := newBaseConsumer(cfg, connManager)
	if err != nil {
		return nil, fmt.Errorf("distributing Consumer: %w", err)
	}
	return &DistributingConsumer{base: bc, handler: handler}, nil
}

// StartConsuming blocks until ctx is cancelled or the connection is lost.
func (c *DistributingConsumer) StartConsuming(ctx context.Context) error {
	msgs, err := c.base.consume()
	if err != nil {
		return fmt.Errorf("distributing Consumer: %w", err)
	}
	c.base.Logger.Info("Waiting for messages", "queue", c.base.actualQueueName)

	go func() {
		for {
			// do not start new work once shutdown began
			select {
			case <-ctx.Done():
				return
			default:
			}

			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					c.base.Logger.Info("Deliveries channel closed", "consumer_tag", c.base.config.ConsumerTag)
					return
				}
				c.base.wg.Add(1)
				go func(d amqp.Delivery) {
					defer c.base.wg.Done()
					c.dispatch(d)
				}(d)
			}
		}
	}()

	return c.base.waitForShutdown(ctx)
}

func (c *DistributingConsumer) dispatch(d amqp.Delivery) {
	if err := c.handler(d); err != nil {
		c.base.Logger.Error(err, "Handler error for message", "delivery_tag", d.DeliveryTag)
		c.base.settleFailed(d)
		return
	}
	_ = d.Ack(false)
	c.base.Logger.Debug("Message acked", "delivery_tag", d.DeliveryTag)
}

// Close waits for in-flight handlers and releases the channel.
func (c *DistributingConsumer) Close() error {
	return c.base.Close()
}
