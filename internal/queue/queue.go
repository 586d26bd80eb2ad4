// Package queue implements the PlayoutQueue: an ordered sequence of
// AudioEvents awaiting decode, with the intent-tagging invariants the DJ core
// and playout engine rely on.
package queue

import (
	"sync"

	"github.com/slbailey/retrowaves-sub001/internal/events"
)

// Queue holds enqueued AudioEvents in order. All operations are safe for
// concurrent use; the engine's single scheduling thread dequeues while DJ
// callbacks (running on the same thread, per spec) enqueue.
type Queue struct {
	mu    sync.Mutex
	items []events.AudioEvent
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends events atomically, preserving order.
func (q *Queue) Enqueue(evts []events.AudioEvent) {
	if len(evts) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, evts...)
}

// Dequeue pops the head event. ok is false if the queue is empty.
func (q *Queue) Dequeue() (events.AudioEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return events.AudioEvent{}, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e, true
}

// PeekHeadIntentID returns the intent_id of the queue head without
// dequeuing. ok is false if the queue is empty.
func (q *Queue) PeekHeadIntentID() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return "", false
	}
	return q.items[0].IntentID, true
}

// GetTail returns (without popping) the last n events, for integrity
// assertions under strict mode. Returns fewer than n if the queue is
// shorter.
func (q *Queue) GetTail(n int) []events.AudioEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 {
		return nil
	}
	start := len(q.items) - n
	if start < 0 {
		start = 0
	}
	out := make([]events.AudioEvent, len(q.items)-start)
	copy(out, q.items[start:])
	return out
}

// Size returns the number of queued events.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether the queue currently holds no events.
func (q *Queue) Empty() bool {
	return q.Size() == 0
}

// Clear discards all queued events.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}
