package port

import "context"

// EventListenerPort is an incoming adapter driven by a message broker.
type EventListenerPort interface {
	// Start blocks until ctx is cancelled or the listener fails.
	Start(ctx context.Context) error
	Close() error
}
