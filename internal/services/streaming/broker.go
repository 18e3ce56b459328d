package streaming

import (
	"sync"

	"go.uber.org/zap"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind starts losing events rather than blocking the
// publisher.
const subscriberBuffer = 256

// Subscription is one client's view of the event stream.
type Subscription struct {
	ID     int64
	Events chan Event
}

// Broker fans events out to all active subscriptions. Publishing never
// blocks: a full subscriber channel drops the event for that subscriber.
type Broker struct {
	logger *zap.Logger

	mu            sync.RWMutex
	subscriptions map[int64]*Subscription
	nextID        int64
}

// NewBroker creates an event broker.
func NewBroker(logger *zap.Logger) *Broker {
	return &Broker{
		logger:        logger.Named("streaming"),
		subscriptions: make(map[int64]*Subscription),
	}
}

// Subscribe creates a new subscription receiving every subsequent event.
func (b *Broker) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		ID:     b.nextID,
		Events: make(chan Event, subscriberBuffer),
	}
	b.subscriptions[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscriptions[id]; ok {
		close(sub.Events)
		delete(b.subscriptions, id)
	}
}

// Publish delivers the event to every subscription.
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscriptions {
		select {
		case sub.Events <- event:
		default:
			// Subscriber buffer full, skip (don't block the service)
			b.logger.Warn("Subscription buffer full, dropping event",
				zap.Int64("subscription_id", sub.ID),
				zap.String("event_type", string(event.Type)),
			)
		}
	}
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Broker) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
