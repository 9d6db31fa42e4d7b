package notify

import (
	"context"
	"log/slog"
	"time"

	claimservice "alapay/internal/claims/service"
)

// defaultPublishTimeout bounds a single delivery attempt so a slow broker
// cannot back up the inbox indefinitely.
const defaultPublishTimeout = 10 * time.Second

// Dispatcher implements the claim service's Notifier. NotifyStatusChanged
// enqueues and returns immediately; Run drains the inbox in the background.
// When the inbox is full the event is dropped and logged - notification is
// best-effort and must never block the mutation path.
type Dispatcher struct {
	publisher Publisher
	inbox     chan Event
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher with the given inbox capacity.
func NewDispatcher(publisher Publisher, logger *slog.Logger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		publisher: publisher,
		inbox:     make(chan Event, buffer),
		logger:    logger,
	}
}

// NotifyStatusChanged enqueues an event for the committed transition.
func (d *Dispatcher) NotifyStatusChanged(ctx context.Context, change claimservice.StatusChange) {
	event := fromChange(ctx, change)
	select {
	case d.inbox <- event:
	default:
		d.logger.WarnContext(ctx, "notify inbox full, dropping event",
			"kind", event.Kind,
			"claim_id", event.ClaimID,
			"to", event.To,
		)
	}
}

// Run consumes the inbox until the context is cancelled. Delivery failures
// are logged and the event is discarded; there is no retry queue here.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-d.inbox:
			publishCtx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
			err := d.publisher.Publish(publishCtx, event)
			cancel()
			if err != nil {
				d.logger.Error("failed to publish claim event",
					"kind", event.Kind,
					"claim_id", event.ClaimID,
					"error", err,
				)
			}
		}
	}
}
