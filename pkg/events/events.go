package events

import (
	"sync"
	"time"

	"github.com/cuemby/indexdb/internal/schema"
)

// EventType identifies one of the delegate notifications of §6/§9:
// processing progress and per-unit staleness.
type EventType string

const (
	EventProcessingAddedPending EventType = "processing.added_pending"
	EventProcessingCompleted    EventType = "processing.completed"
	EventProcessedStoreUnit     EventType = "processed.store_unit"
	EventUnitOutOfDate          EventType = "unit.out_of_date"
)

// Trigger describes the file change that made a unit out of date.
type Trigger struct {
	Path        string
	ModTimeNano int64
	Description string
}

// Event is one delegate notification. Payload carries the
// type-specific data (an int for the two processing events, a
// *schema.UnitInfo for processed.store_unit, or an OutOfDate for
// unit.out_of_date); Metadata is free-form bookkeeping for
// subscribers that only care about a subset of fields.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
	Payload   any
}

// OutOfDate is the Payload of an EventUnitOutOfDate notification.
type OutOfDate struct {
	Unit        *schema.UnitInfo
	UnitName    string
	Trigger     Trigger
	Synchronous bool
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Broker is the per-index serial delegate queue of §5 "Callback
// fan-out": it guarantees delegate methods never run concurrently or
// re-enter the index, even when registered from multiple clients.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish queues event for delivery through the serial broadcast
// loop. A synchronous unit.out_of_date notification (§4.6's
// "synchronous flag... bypasses the queue for tests that require
// in-line observation") is delivered inline instead, on the caller's
// goroutine.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if ood, ok := event.Payload.(OutOfDate); ok && ood.Synchronous {
		b.broadcast(event)
		return
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip (best-effort delivery).
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
