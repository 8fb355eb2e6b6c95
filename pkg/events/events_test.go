package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/indexdb/internal/schema"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventProcessingAddedPending, Payload: 1})

	select {
	case ev := <-sub:
		require.Equal(t, EventProcessingAddedPending, ev.Type)
		require.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestBrokerMultipleSubscribers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	s1, s2 := b.Subscribe(), b.Subscribe()
	defer b.Unsubscribe(s1)
	defer b.Unsubscribe(s2)

	b.Publish(&Event{Type: EventProcessingCompleted, Payload: 3})

	for _, sub := range []Subscriber{s1, s2} {
		select {
		case ev := <-sub:
			require.Equal(t, EventProcessingCompleted, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive broadcast event")
		}
	}
}

func TestBrokerSynchronousOutOfDateBypassesQueue(t *testing.T) {
	b := NewBroker()
	// Deliberately do not Start the broker: a synchronous OutOfDate
	// event must still be delivered, proving it bypasses eventCh/run().
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{
		Type: EventUnitOutOfDate,
		Payload: OutOfDate{
			UnitName:    "unit-a",
			Trigger:     Trigger{Path: "/a.c", Description: "modified"},
			Synchronous: true,
		},
	})

	select {
	case ev := <-sub:
		ood, ok := ev.Payload.(OutOfDate)
		require.True(t, ok)
		require.Equal(t, "unit-a", ood.UnitName)
	default:
		t.Fatal("synchronous publish did not deliver inline")
	}
}

func TestBrokerStartedDeliversProcessedStoreUnit(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	info := &schema.UnitInfo{Name: "unit-a"}
	b.Publish(&Event{Type: EventProcessedStoreUnit, Payload: info})

	select {
	case ev := <-sub:
		got, ok := ev.Payload.(*schema.UnitInfo)
		require.True(t, ok)
		require.Equal(t, "unit-a", got.Name)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for asynchronous event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)

	require.Equal(t, 0, b.SubscriberCount())
}
