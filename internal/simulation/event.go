package simulation

import "container/heap"

// Event is a unit of work scheduled at an absolute simulation time.
//
// Execute runs on the engine goroutine with the clock already advanced
// to At. It may schedule further events on the environment.
type Event interface {
	// At returns the absolute simulation time, in seconds, at which
	// the event fires.
	At() int64

	// Execute performs the event's work.
	Execute(env *Environment)
}

// Process is anything that schedules its own initial events when it
// joins the simulation. Devices implement Process.
type Process interface {
	Start(env *Environment)
}

// queuedEvent pairs an event with an admission sequence number so that
// events sharing a timestamp fire in scheduling order.
type queuedEvent struct {
	event Event
	seq   uint64
}

// eventQueue is a min-heap of events ordered by timestamp, then by
// scheduling order.
type eventQueue struct {
	items []queuedEvent
	seq   uint64
}

func (q *eventQueue) Len() int { return len(q.items) }

func (q *eventQueue) Less(i, j int) bool {
	if q.items[i].event.At() != q.items[j].event.At() {
		return q.items[i].event.At() < q.items[j].event.At()
	}
	return q.items[i].seq < q.items[j].seq
}

func (q *eventQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *eventQueue) Push(x any) {
	q.items = append(q.items, x.(queuedEvent))
}

func (q *eventQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}

// push adds an event preserving heap order.
func (q *eventQueue) push(ev Event) {
	q.seq++
	heap.Push(q, queuedEvent{event: ev, seq: q.seq})
}

// pop removes and returns the earliest event. Callers must check Len first.
func (q *eventQueue) pop() Event {
	return heap.Pop(q).(queuedEvent).event
}

// peek returns the earliest event without removing it. Callers must
// check Len first.
func (q *eventQueue) peek() Event {
	return q.items[0].event
}
