// Package broadcast implements the single-topic fan-out hub.
//
// It provides best-effort delivery with no guarantees regarding ordering
// across subscribers, durability, or retries. A subscriber that is mid-close
// may silently miss a message. The broadcaster is not a message broker.
//
// Broadcaster is safe for concurrent use by multiple goroutines: the
// subscriber set is the only shared mutable state, written by
// Subscribe/Unsubscribe and read by Publish.
package broadcast

import (
	"chat-room/contract"
	"chat-room/domain/event"
	"context"
	"log/slog"
	"sync"
)

type Broadcaster struct {
	mu          sync.RWMutex
	log         *slog.Logger
	topic       string
	subscribers map[string]contract.EventSink
}

func NewBroadcaster(log *slog.Logger, topic string) *Broadcaster {
	return &Broadcaster{
		log:         log,
		topic:       topic,
		subscribers: make(map[string]contract.EventSink),
	}
}

// Subscribe registers a connection under the topic. It always succeeds:
// no capacity limit, no auth check. Re-subscribing an existing connection
// replaces its sink.
func (b *Broadcaster) Subscribe(connectionID string, sink contract.EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[connectionID] = sink
	b.log.Debug("Subscription registered", "connection_id", connectionID, "topic", b.topic)
}

// Unsubscribe removes the subscription if present. Idempotent: removing an
// unknown or already removed connection is a no-op.
func (b *Broadcaster) Unsubscribe(connectionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[connectionID]; !ok {
		return
	}
	delete(b.subscribers, connectionID)
	b.log.Debug("Subscription removed", "connection_id", connectionID, "topic", b.topic)
}

// Publish delivers e to every active subscription and returns immediately.
// A failed or saturated sink is logged and skipped; it never blocks the
// publisher or the other subscribers.
func (b *Broadcaster) Publish(ctx context.Context, e event.DomainEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for connectionID, sink := range b.subscribers {
		if err := sink.Consume(ctx, e); err != nil {
			b.log.Warn("Delivery lost for subscriber",
				"connection_id", connectionID,
				"topic", b.topic,
				"error", err)
		}
	}
}

// Count reports the number of active subscriptions.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
