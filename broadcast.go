package signals

import (
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/KeatonTech/futures-signals-im/utils"
)

// Broadcaster fans one upstream signal out to any number of taps, so an
// expensive pipeline above it runs at most once per upstream event no
// matter how many consumers watch the result. Whichever tap polls first
// performs the shared advance; every tap sees the same sequence of events
// through its own unbounded queue.
type Broadcaster[E any] struct {
	name string

	mu         sync.Mutex
	upstream   Signal[E]
	mostRecent *E
	closed     bool
	nextTapID  uint64

	taps *xsync.MapOf[uint64, *Tap[E]]
}

func NewBroadcaster[E any](upstream Signal[E]) *Broadcaster[E] {
	return &Broadcaster[E]{
		name:     uuid.NewString(),
		upstream: upstream,
		taps:     xsync.NewMapOf[uint64, *Tap[E]](),
	}
}

// Tap opens a new downstream signal. If the upstream has already produced
// at least one event, the tap starts with a replay of the most recent one,
// so late subscribers converge without waiting for the next change.
func (b *Broadcaster[E]) Tap() *Tap[E] {
	t := &Tap[E]{parent: b, queue: utils.NewEventQueue[E]()}
	b.mu.Lock()
	if b.mostRecent != nil {
		t.queue.Push(*b.mostRecent)
	}
	if b.closed {
		t.queue.Close()
	}
	t.id = b.nextTapID
	b.nextTapID++
	b.taps.Store(t.id, t)
	b.mu.Unlock()
	return t
}

// advance polls the upstream exactly once and distributes the result.
// Reports whether anything changed (new event or upstream exhaustion).
func (b *Broadcaster[E]) advance() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}

	event, status := b.upstream.Poll()
	switch status {
	case Ready:
		b.mostRecent = &event
		BroadcastAdvances.WithLabelValues(b.name).Inc()
		b.taps.Range(func(id uint64, t *Tap[E]) bool {
			// A tap that was closed behind our back gets pruned, not fed.
			if !t.queue.Push(event) {
				b.taps.Delete(id)
			}
			return true
		})
		return true
	case Closed:
		b.closed = true
		b.taps.Range(func(id uint64, t *Tap[E]) bool {
			t.queue.Close()
			b.taps.Delete(id)
			return true
		})
		return true
	default:
		return false
	}
}

// Tap is one downstream signal of a Broadcaster. Queued events survive
// upstream exhaustion: a closed tap drains before reporting Closed.
type Tap[E any] struct {
	id     uint64
	parent *Broadcaster[E]
	queue  *utils.EventQueue[E]
}

func (t *Tap[E]) Poll() (E, PollStatus) {
	if event, res := t.queue.Pop(); res != utils.PopEmpty {
		return event, popStatus(res)
	}
	if !t.parent.advance() {
		var zero E
		return zero, Pending
	}
	event, res := t.queue.Pop()
	return event, popStatus(res)
}

// Close stops this tap. The broadcaster notices and prunes it on the next
// distribution; other taps are unaffected.
func (t *Tap[E]) Close() {
	t.queue.Close()
}

func popStatus(res utils.PopResult) PollStatus {
	switch res {
	case utils.PopItem:
		return Ready
	case utils.PopClosed:
		return Closed
	default:
		return Pending
	}
}
