package utils

import "sync"

type PopResult int

const (
	PopItem PopResult = iota
	PopEmpty
	PopClosed
)

// EventQueue is the unbounded outbound buffer behind a broadcaster tap.
// Push and Pop never block: a slow consumer accumulates memory instead of
// stalling the producer, and there is no flow control back upstream.
// A closed queue refuses new items but drains the ones it holds.
type EventQueue[T any] struct {
	lock   sync.Mutex
	items  []T
	closed bool
}

func NewEventQueue[T any]() *EventQueue[T] {
	return &EventQueue[T]{}
}

// Push appends one item. Reports false once the queue is closed, which is
// the distributor's cue to prune this consumer.
func (q *EventQueue[T]) Push(item T) bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, item)
	return true
}

// Pop removes the oldest item. On an empty queue the result distinguishes
// "nothing yet" from "nothing ever again".
func (q *EventQueue[T]) Pop() (item T, res PopResult) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.items) == 0 {
		if q.closed {
			return item, PopClosed
		}
		return item, PopEmpty
	}
	item = q.items[0]
	q.items[0] = *new(T) // drop the reference
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return item, PopItem
}

func (q *EventQueue[T]) Close() {
	q.lock.Lock()
	q.closed = true
	q.lock.Unlock()
}

func (q *EventQueue[T]) Closed() bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.closed
}

func (q *EventQueue[T]) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.items)
}
