package vector

import (
	"errors"

	signals "github.com/KeatonTech/futures-signals-im"
)

var ErrBadCollision = errors.New("signals: impossible diff collision for a positional vector")

type Op int

const (
	OpReplace Op = iota
	OpInsert
	OpUpdate
	OpRemove
	OpClear
)

// Diff describes one change to a vector. Positional diffs carry two
// coordinates: Index is the position the change applies at, fixed when the
// diff is recorded, while SnapshotIndex tracks where the affected element
// sits in the vector right now. Later inserts and removes shift
// SnapshotIndex (and, through reindexing, Index) so that a pending diff
// always points at live data. Replace and Clear carry no position and
// supersede all prior history.
type Diff struct {
	op            Op
	index         int
	snapshotIndex int
	keyed         bool
}

func ReplaceDiff() *Diff     { return &Diff{op: OpReplace} }
func ClearDiff() *Diff       { return &Diff{op: OpClear} }
func InsertDiff(i int) *Diff { return &Diff{op: OpInsert, index: i, snapshotIndex: i, keyed: true} }
func UpdateDiff(i int) *Diff { return &Diff{op: OpUpdate, index: i, snapshotIndex: i, keyed: true} }
func RemoveDiff(i int) *Diff { return &Diff{op: OpRemove, index: i, snapshotIndex: i, keyed: true} }

func (d *Diff) Op() Op { return d.op }

// Index is the position to apply this diff at, in the coordinate space of a
// consumer that has applied every earlier diff in the batch.
func (d *Diff) Index() int { return d.index }

// SnapshotIndex is where the affected element currently sits in the
// delivered snapshot. Meaningless for removes.
func (d *Diff) SnapshotIndex() int { return d.snapshotIndex }

func (d *Diff) Key() (int, bool) { return d.index, d.keyed }

func (d *Diff) SnapshotKey() (int, bool) { return d.snapshotIndex, d.keyed }

func (d *Diff) SetKey(i int) { d.index = i }

func (d *Diff) SetSnapshotKey(i int) { d.snapshotIndex = i }

func (d *Diff) Clone() *Diff {
	clone := *d
	return &clone
}

func (d *Diff) MergeWith(prev *Diff) signals.MergeResult[int, *Diff] {
	switch prev.op {
	case OpInsert:
		switch d.op {
		case OpRemove:
			// The inserted element is gone before anyone saw it. Pending
			// diffs that counted the insertion shift back down.
			pivot := prev.snapshotIndex
			return signals.MergeResult[int, *Diff]{
				Outcome: signals.DiscardBoth,
				Reindex: func(index, snapshotIndex int) int {
					if snapshotIndex > pivot {
						return index - 1
					}
					return index
				},
			}
		case OpUpdate:
			// The unseen insert already delivers the final value via the
			// snapshot.
			return signals.MergeResult[int, *Diff]{Outcome: signals.IgnoreNew}
		case OpInsert:
			panic(ErrBadCollision)
		}
	case OpUpdate:
		// Any newer diff at the same position supersedes a pending update.
		return signals.MergeResult[int, *Diff]{Outcome: signals.ReplacePrevious}
	case OpRemove:
		if d.op == OpInsert {
			// Remove then insert at one position nets to an update, and
			// diffs recorded in between shift up to make room again.
			pivot := d.snapshotIndex
			return signals.MergeResult[int, *Diff]{
				Outcome: signals.CombineDiffs,
				Merged:  &Diff{op: OpUpdate, index: d.index, snapshotIndex: d.snapshotIndex, keyed: true},
				Reindex: func(index, snapshotIndex int) int {
					if snapshotIndex > pivot {
						return index + 1
					}
					return index
				},
			}
		}
		// A remove shifted a later element into this position; both diffs
		// are real and must be delivered in order.
		return signals.MergeResult[int, *Diff]{Outcome: signals.KeepBoth}
	}
	panic(ErrBadCollision)
}

// ValueAt reads the element a positional diff refers to out of the event
// snapshot. Reports false for removes, keyless diffs, and diffs whose
// element has since left the snapshot.
func ValueAt[T any](d *Diff, snapshot []T) (T, bool) {
	var zero T
	if !d.keyed || d.op == OpRemove {
		return zero, false
	}
	if d.snapshotIndex < 0 || d.snapshotIndex >= len(snapshot) {
		return zero, false
	}
	return snapshot[d.snapshotIndex], true
}

// Event is one delivered batch: the diffs since the consumer's last poll
// plus the vector contents as of delivery.
type Event[T any] struct {
	Snapshot []T
	Diffs    []*Diff
}
