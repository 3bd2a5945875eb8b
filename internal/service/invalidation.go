package service

import (
	"context"
	"fmt"
	"time"

	"storefront/catalog/internal/domain/event"
	"storefront/catalog/internal/queue"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Invalidator applies cache invalidations. *Catalog implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, scope event.Scope) error
}

// InvalidationListener applies CacheInvalidation events from the stream to
// the local catalog.
type InvalidationListener struct {
	queue      queue.Queue
	target     Invalidator
	instanceID string
}

func NewInvalidationListener(q queue.Queue, target Invalidator, instanceID string) *InvalidationListener {
	return &InvalidationListener{
		queue:      q,
		target:     target,
		instanceID: instanceID,
	}
}

// Publish sends an invalidation to the other instances. The caller applies
// it locally; the listener skips events that carry its own origin.
func (l *InvalidationListener) Publish(ctx context.Context, scope event.Scope, reason string) error {
	_, err := l.queue.Publish(ctx, &event.CacheInvalidation{
		Scope:    scope,
		Reason:   reason,
		Origin:   l.instanceID,
		IssuedAt: time.Now(),
	})
	return err
}

// Run reads events until ctx is cancelled.
func (l *InvalidationListener) Run(ctx context.Context) error {
	consumer := "catalog-" + l.instanceID
	log.Infof("🚀 Starting invalidation listener as consumer %s", consumer)

	for {
		select {
		case <-ctx.Done():
			log.Infof("🛑 Invalidation listener stopping")
			return nil
		default:
		}

		msg, err := l.queue.Read(ctx, consumer)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Errorf("❌ Failed to read invalidation event: %v", err)
			sleep(ctx, time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		if err := l.processMessage(ctx, msg); err != nil {
			log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
		}
	}
}

// processMessage always acks: an invalidation that failed once is not
// retried, the next one or the TTLs catch up.
func (l *InvalidationListener) processMessage(ctx context.Context, msg *redis.XMessage) error {
	defer func() {
		if err := l.queue.Ack(ctx, msg.ID); err != nil {
			log.Errorf("❌ Failed to ack message %s: %v", msg.ID, err)
		}
	}()

	eventType, ok := msg.Values["event_type"].(string)
	if !ok {
		return fmt.Errorf("invalid event type in message %s", msg.ID)
	}
	eventData, ok := msg.Values["event_data"].(string)
	if !ok {
		return fmt.Errorf("invalid event data in message %s", msg.ID)
	}

	switch eventType {
	case "CacheInvalidation":
		inv, err := event.Decode[*event.CacheInvalidation]([]byte(eventData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal invalidation event: %w", err)
		}
		if inv.Origin == l.instanceID {
			log.Debugf("Skipping own invalidation %s", msg.ID)
			return nil
		}
		scope, err := event.ParseScope(string(inv.Scope))
		if err != nil {
			return err
		}

		log.Infof("🔄 Invalidating %s (from %s: %s)", scope, inv.Origin, inv.Reason)
		if err := l.target.Invalidate(ctx, scope); err != nil {
			return fmt.Errorf("failed to invalidate %s: %w", scope, err)
		}

	default:
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
