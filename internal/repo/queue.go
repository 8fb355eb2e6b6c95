package repo

import (
	"sync"

	"github.com/cuemby/indexdb/internal/watch"
)

// maxBatchSize bounds how many pending events one processing slice
// pops, per §4.6/§5 ("pops them in bounded batches (<=10 per
// scheduled slice)").
const maxBatchSize = 10

// pendingEvent is one deduplicated entry of the event queue.
type pendingEvent struct {
	event        watch.UnitEvent
	isDependency bool
}

// eventQueue is the FIFO deque of §4.6: unit events are appended in
// submission order, but the deque de-duplicates by unit name so a
// burst of events for the same unit (including dependency events an
// importer re-enqueues for its own yet-unseen dependencies) collapses
// to the most recent one, avoiding fan-out storms.
type eventQueue struct {
	mu      sync.Mutex
	order   []string
	pending map[string]pendingEvent
}

func newEventQueue() *eventQueue {
	return &eventQueue{pending: make(map[string]pendingEvent)}
}

// push enqueues or replaces the pending event for ev.UnitName,
// returning true if this added a new entry (as opposed to replacing
// an already-queued one) — the delta processingAddedPending reports.
func (q *eventQueue) push(ev watch.UnitEvent, isDependency bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, exists := q.pending[ev.UnitName]
	if !exists {
		q.order = append(q.order, ev.UnitName)
	}
	q.pending[ev.UnitName] = pendingEvent{event: ev, isDependency: isDependency}
	return !exists
}

// popBatch removes and returns up to maxBatchSize pending events in
// FIFO order.
func (q *eventQueue) popBatch() []pendingEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.order)
	if n > maxBatchSize {
		n = maxBatchSize
	}
	batch := make([]pendingEvent, 0, n)
	for i := 0; i < n; i++ {
		name := q.order[i]
		batch = append(batch, q.pending[name])
		delete(q.pending, name)
	}
	q.order = q.order[n:]
	return batch
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
