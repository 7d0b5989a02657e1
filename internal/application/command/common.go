// Package command contains write operations (CQRS - Commands).
//
// Every handler validates its command, runs exactly one store call (one
// transaction), and publishes domain events only after that call returned.
// Store calls are retried on transient errors; this is safe because every
// mutation here is idempotent.
package command

import (
	"context"
	"time"

	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
	"github.com/tracks-academy/progress-ledger/pkg/retry"
)

// Clock returns the current time.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// newStoreRetrier retries only errors the store classified as transient.
func newStoreRetrier(log *logger.Logger, op string) *retry.Retrier {
	return retry.StoreRetrier(shared.IsRetryable, func(attempt int, err error, delay time.Duration) {
		log.Warn("transient store error, retrying",
			logger.Operation(op),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	})
}

// publish sends events after commit. A failed publish is logged; the write
// it describes has already happened.
func publish(ctx context.Context, pub shared.EventPublisher, events ...shared.Event) {
	if pub == nil {
		return
	}
	log := logger.FromContext(ctx)
	for _, e := range events {
		if err := pub.Publish(e); err != nil {
			log.Warn("publish event failed",
				logger.String("event_type", string(e.EventType())),
				logger.Err(err),
			)
		}
	}
}

// correlation returns the base event tagged with the request ID from ctx.
func correlation(ctx context.Context, base shared.BaseEvent) shared.BaseEvent {
	if id := logger.RequestIDFromContext(ctx); id != "" {
		return base.WithCorrelationID(id)
	}
	return base
}
