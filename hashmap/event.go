package hashmap

import (
	"errors"

	signals "github.com/KeatonTech/futures-signals-im"
)

var (
	ErrDoubleInsert = errors.New("signals: two inserts collided on one key; the second should have been an update")
	ErrBadCollision = errors.New("signals: impossible diff collision for a keyed map")
)

type Op int

const (
	OpReplace Op = iota
	OpInsert
	OpUpdate
	OpRemove
	OpClear
)

// Diff describes one change to a keyed map. Replace and Clear carry no key
// and supersede all prior history. Values are never carried here; consumers
// read them out of the snapshot attached to the delivered event.
type Diff[K comparable] struct {
	op    Op
	key   K
	keyed bool
}

func ReplaceDiff[K comparable]() *Diff[K] { return &Diff[K]{op: OpReplace} }
func ClearDiff[K comparable]() *Diff[K]   { return &Diff[K]{op: OpClear} }

func InsertDiff[K comparable](key K) *Diff[K] {
	return &Diff[K]{op: OpInsert, key: key, keyed: true}
}

func UpdateDiff[K comparable](key K) *Diff[K] {
	return &Diff[K]{op: OpUpdate, key: key, keyed: true}
}

func RemoveDiff[K comparable](key K) *Diff[K] {
	return &Diff[K]{op: OpRemove, key: key, keyed: true}
}

func (d *Diff[K]) Op() Op { return d.op }

func (d *Diff[K]) Key() (K, bool) { return d.key, d.keyed }

// SnapshotKey is the key itself: map keys are stable, there is no separate
// positional coordinate to track.
func (d *Diff[K]) SnapshotKey() (K, bool) { return d.key, d.keyed }

func (d *Diff[K]) SetKey(key K) { d.key = key }

func (d *Diff[K]) SetSnapshotKey(key K) { d.key = key }

func (d *Diff[K]) Clone() *Diff[K] {
	clone := *d
	return &clone
}

func (d *Diff[K]) MergeWith(prev *Diff[K]) signals.MergeResult[K, *Diff[K]] {
	switch prev.op {
	case OpInsert:
		switch d.op {
		case OpRemove:
			// Insert then remove before anyone saw either: nothing happened.
			return signals.MergeResult[K, *Diff[K]]{Outcome: signals.DiscardBoth}
		case OpUpdate:
			// The insert remains the canonically correct diff; the final
			// value rides along in the snapshot.
			return signals.MergeResult[K, *Diff[K]]{Outcome: signals.IgnoreNew}
		case OpInsert:
			panic(ErrDoubleInsert)
		}
	case OpUpdate:
		switch d.op {
		case OpUpdate, OpRemove:
			return signals.MergeResult[K, *Diff[K]]{Outcome: signals.ReplacePrevious}
		}
	case OpRemove:
		if d.op == OpInsert {
			// Remove then re-insert nets out to an update of the old value.
			return signals.MergeResult[K, *Diff[K]]{
				Outcome: signals.CombineDiffs,
				Merged:  UpdateDiff[K](d.key),
			}
		}
	}
	panic(ErrBadCollision)
}

// Event is one delivered batch: the diffs since the consumer's last poll
// plus the full map state as of delivery.
type Event[K comparable, V any] struct {
	Snapshot map[K]V
	Diffs    []*Diff[K]
}
