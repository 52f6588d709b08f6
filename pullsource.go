package signals

import (
	"sort"
	"sync/atomic"

	"github.com/KeatonTech/futures-signals-im/utils"
)

type logEntry[D any] struct {
	seq  uint64
	diff D
}

// PullSource is the compacting diff log behind every observable collection.
// It is a cheaper way to broadcast structural changes than pushing an event
// per mutation: diffs batch up between polls, diffs nobody has seen yet can
// be merged or cancelled outright, and nothing at all is recorded until the
// first consumer subscribes.
//
// A PullSource carries no lock of its own. The owning container guards it
// (together with the authoritative snapshot) with a single RWMutex; every
// method here requires that exclusive access.
//
// Consumers never unregister, so the log keeps everything behind the fastest
// cursor until a global diff purges it. A permanently stalled consumer
// therefore pins memory; if that matters to the caller, a replace() on the
// container is the pressure valve.
type PullSource[K comparable, D Diff[K, D]] struct {
	name    string
	log     utils.Logger
	entries []logEntry[D]     // ordered by seq
	open    map[K]uint64      // key -> seq of that key's still-compactable diff
	cursors map[uint64]uint64 // consumer id -> last seq delivered
	nextSeq uint64
	nextID  uint64

	fullReplace func() D

	statDepth     atomic.Int64
	statOpen      atomic.Int64
	statConsumers atomic.Int64
}

func NewPullSource[K comparable, D Diff[K, D]](name string, log utils.Logger, fullReplace func() D) *PullSource[K, D] {
	return &PullSource[K, D]{
		name:        name,
		log:         log,
		open:        make(map[K]uint64),
		cursors:     make(map[uint64]uint64),
		nextSeq:     1,
		nextID:      1,
		fullReplace: fullReplace,
	}
}

// Add records one diff, merging it with the open diff for the same key per
// the diff's own policy. Adding is a no-op until the first consumer id has
// been issued. A keyless diff supersedes all prior history.
func (l *PullSource[K, D]) Add(diff D) {
	if !l.HasConsumers() {
		return
	}
	defer l.syncStats()

	if key, keyed := diff.Key(); keyed {
		if prevSeq, collides := l.open[key]; collides {
			prev, _ := l.remove(prevSeq)
			delete(l.open, key)

			result := diff.MergeWith(prev)
			if result.Reindex != nil {
				l.reindexAfter(prevSeq, result.Reindex)
			}
			MergeOutcomes.WithLabelValues(l.name, result.Outcome.String()).Inc()

			switch result.Outcome {
			case CombineDiffs:
				diff = result.Merged
			case ReplacePrevious:
				// The new diff stands; the previous one stays removed.
			case IgnoreNew:
				// Undo everything: the previous diff is reinstated at its
				// original sequence number and no counter advances.
				l.reinstate(prevSeq, prev)
				l.open[key] = prevSeq
				return
			case KeepBoth:
				// The previous diff stays in the log but leaves the
				// compaction index: it can never be merged away now.
				l.reinstate(prevSeq, prev)
			case DiscardBoth:
				return
			}
		}
		l.open[key] = l.nextSeq
	} else {
		// A diff with no key affects every key. All prior history is
		// superseded and can be wiped.
		l.entries = l.entries[:0]
		clear(l.open)
		l.log.Debug("purged diff log on global diff", "source", l.name)
	}

	l.entries = append(l.entries, logEntry[D]{seq: l.nextSeq, diff: diff})
	l.nextSeq++
	DiffsAdded.WithLabelValues(l.name).Inc()
}

// Pull returns every diff recorded since this consumer's previous pull, in
// order. The first pull of a consumer's lifetime returns a single
// full-replace sentinel regardless of history; so does any batch containing
// a global diff. An up-to-date consumer gets an empty batch.
func (l *PullSource[K, D]) Pull(consumer uint64) []D {
	head := l.nextSeq - 1
	last, seen := l.cursors[consumer]
	l.cursors[consumer] = head

	if seen && last == head {
		Pulls.WithLabelValues(l.name, "noop").Inc()
		return nil
	}
	defer l.syncStats()

	// Whatever this pull reveals has been observed; none of it may be
	// merged out of existence anymore.
	clear(l.open)

	if !seen {
		Pulls.WithLabelValues(l.name, "resync").Inc()
		return []D{l.fullReplace()}
	}

	from := sort.Search(len(l.entries), func(i int) bool { return l.entries[i].seq > last })
	batch := make([]D, 0, len(l.entries)-from)
	for _, e := range l.entries[from:] {
		if _, keyed := e.diff.Key(); !keyed {
			// A global diff in the range makes the whole batch a resync.
			Pulls.WithLabelValues(l.name, "resync").Inc()
			return []D{l.fullReplace()}
		}
		batch = append(batch, e.diff.Clone())
	}
	Pulls.WithLabelValues(l.name, "batch").Inc()
	return batch
}

// UpdateKeys rewrites every compaction-index entry and every recorded diff's
// snapshot position through mapper. Ordered collections call this after an
// insert or remove so that open diffs keep pointing at the elements they
// described, without rewriting the log per mutation.
func (l *PullSource[K, D]) UpdateKeys(mapper func(K) K) {
	if len(l.open) > 0 {
		remapped := make(map[K]uint64, len(l.open))
		for key, seq := range l.open {
			remapped[mapper(key)] = seq
		}
		l.open = remapped
	}
	for _, e := range l.entries {
		if sk, ok := e.diff.SnapshotKey(); ok {
			e.diff.SetSnapshotKey(mapper(sk))
		}
	}
}

// NextConsumerID issues a unique, monotonically increasing consumer id.
// Issuing the first id is what switches the log from lazy to recording.
func (l *PullSource[K, D]) NextConsumerID() uint64 {
	id := l.nextID
	l.nextID++
	l.statConsumers.Store(int64(id))
	l.log.Debug("issued consumer id", "source", l.name, "consumer", id)
	return id
}

// HasConsumers reports whether any consumer id was ever issued. Consumers
// never unregister, so this never goes back to false.
func (l *PullSource[K, D]) HasConsumers() bool {
	return l.nextID > 1
}

// Name identifies this source in logs and metric labels.
func (l *PullSource[K, D]) Name() string { return l.name }

// Stats is a lock-free view for the depth collector.
func (l *PullSource[K, D]) Stats() SourceStats {
	return SourceStats{
		Depth:     int(l.statDepth.Load()),
		OpenKeys:  int(l.statOpen.Load()),
		Consumers: int(l.statConsumers.Load()),
	}
}

func (l *PullSource[K, D]) syncStats() {
	l.statDepth.Store(int64(len(l.entries)))
	l.statOpen.Store(int64(len(l.open)))
}

func (l *PullSource[K, D]) find(seq uint64) (int, bool) {
	i := sort.Search(len(l.entries), func(i int) bool { return l.entries[i].seq >= seq })
	return i, i < len(l.entries) && l.entries[i].seq == seq
}

func (l *PullSource[K, D]) remove(seq uint64) (diff D, ok bool) {
	i, found := l.find(seq)
	if !found {
		return diff, false
	}
	diff = l.entries[i].diff
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return diff, true
}

func (l *PullSource[K, D]) reinstate(seq uint64, diff D) {
	i, _ := l.find(seq)
	l.entries = append(l.entries, logEntry[D]{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = logEntry[D]{seq: seq, diff: diff}
}

// reindexAfter rewrites the application position of every keyed diff
// recorded after seq. A merged or cancelled pair can leave the diffs between
// it and the head addressing positions that no longer line up.
func (l *PullSource[K, D]) reindexAfter(seq uint64, reindex ReindexFunc[K]) {
	from, _ := l.find(seq)
	for _, e := range l.entries[from:] {
		key, keyed := e.diff.Key()
		if !keyed {
			continue
		}
		sk, ok := e.diff.SnapshotKey()
		if !ok {
			panic(ErrNoSnapshotKey)
		}
		e.diff.SetKey(reindex(key, sk))
	}
}

func (o MergeOutcome) String() string {
	switch o {
	case CombineDiffs:
		return "combine"
	case ReplacePrevious:
		return "replace"
	case IgnoreNew:
		return "ignore"
	case KeepBoth:
		return "keep_both"
	case DiscardBoth:
		return "discard_both"
	default:
		return "unknown"
	}
}
