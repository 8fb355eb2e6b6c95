/*
Package events implements the delegate notification channel of §6/§9:
a non-blocking pub/sub bus that the Artifact Repository uses to tell
clients about ingestion progress and per-unit staleness, without
letting a slow subscriber stall the ingest queue.

# Event Types

processing.added_pending:
  - Published when: new unit events are queued for processing
  - Payload: int, the number of newly pending events

processing.completed:
  - Published when: a processing slice finishes
  - Payload: int, the number of events processed in that slice

processed.store_unit:
  - Published when: a unit finishes importing
  - Payload: *schema.UnitInfo, the committed record

unit.out_of_date:
  - Published when: a unit's modtime trails a dependency trigger
  - Payload: events.OutOfDate{Unit, Trigger, Synchronous}
  - A Synchronous notification bypasses the serial queue and is
    delivered inline, for tests that need in-line observation (§5).

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			switch event.Type {
			case events.EventUnitOutOfDate:
				ood := event.Payload.(events.OutOfDate)
				fmt.Println(ood.UnitName, ood.Trigger.Description)
			}
		}
	}()

# Design Patterns

Non-blocking publish: Publish never waits for a subscriber; full
subscriber buffers drop the event rather than blocking the ingest
queue. Fire-and-forget: no acknowledgment, no retry on delivery
failure — suitable for progress notification, not for operations that
require guaranteed delivery.
*/
package events
