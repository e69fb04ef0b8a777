package port

import "context"

// EventListenerPort is an inbound adapter that feeds events into the core.
type EventListenerPort interface {
	Start(ctx context.Context) error
	Close() error
}
