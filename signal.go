package signals

import "sync"

type PollStatus int

const (
	// Pending means nothing new yet; poll again when there might be work.
	Pending PollStatus = iota
	// Ready means the returned event carries new data.
	Ready
	// Closed means the signal is exhausted and will never fire again.
	Closed
)

// Signal is a pull-driven stream of collection events. Poll never blocks:
// it either hands back an event or reports Pending/Closed immediately.
// A Signal is owned by one consumer; it is not safe for concurrent polls,
// though many signals over one collection may poll from different
// goroutines.
type Signal[E any] interface {
	Poll() (E, PollStatus)
}

// Host is what a container state exposes to its cursors: the shared diff
// log, and the turning of a pulled batch into a delivered event carrying
// the current snapshot.
type Host[K comparable, D Diff[K, D], E any] interface {
	PullSource() *PullSource[K, D]
	MakeEvent(diffs []D) E
}

// PullSignal is a consumer cursor over a shared PullSource. Creating one
// issues a consumer id; the log's per-consumer bookkeeping only appears on
// the first poll, so an unpolled signal costs one integer. Memory per
// signal stays O(1) no matter how many diffs flow.
type PullSignal[K comparable, D Diff[K, D], E any] struct {
	id   uint64
	mu   *sync.RWMutex
	host Host[K, D, E]
}

func NewPullSignal[K comparable, D Diff[K, D], E any](mu *sync.RWMutex, host Host[K, D, E]) *PullSignal[K, D, E] {
	mu.Lock()
	id := host.PullSource().NextConsumerID()
	mu.Unlock()
	return &PullSignal[K, D, E]{id: id, mu: mu, host: host}
}

// Poll pulls any new diffs and, if there are some, materializes them into
// an event with the container's snapshot as of this instant. Pull and
// materialization happen under one exclusive section so the snapshot always
// agrees with the batch. Container signals never close.
func (s *PullSignal[K, D, E]) Poll() (event E, status PollStatus) {
	s.mu.Lock()
	diffs := s.host.PullSource().Pull(s.id)
	if len(diffs) > 0 {
		event = s.host.MakeEvent(diffs)
		status = Ready
	}
	s.mu.Unlock()
	return event, status
}
