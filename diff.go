package signals

import "errors"

var ErrNoSnapshotKey = errors.New("signals: diff has a key but no snapshot position")

// Diff is the capability every pullable diff type implements. A diff either
// carries the key of the affected element, or no key at all, in which case it
// is treated as affecting every element (think Replace or Clear).
//
// Keyed diffs in ordered collections carry a second coordinate, the snapshot
// position: the element's position in the collection as it stands right now.
// The key is the position the diff was created at and is what consumers apply
// the diff at; the snapshot position is what the reindexing math compares.
// Unordered collections return the key for both.
type Diff[K comparable, D any] interface {
	Key() (K, bool)
	SnapshotKey() (K, bool)
	SetKey(K)
	SetSnapshotKey(K)

	// Clone returns an independent copy. Pulled batches are clones, so
	// later reindexing of the log never mutates a delivered diff.
	Clone() D

	// MergeWith decides what happens when this diff collides with the
	// currently open diff for the same key.
	MergeWith(prev D) MergeResult[K, D]
}

type MergeOutcome int

const (
	// CombineDiffs drops both colliding diffs and records Merged instead.
	CombineDiffs MergeOutcome = iota

	// ReplacePrevious keeps the new diff and drops the previous one.
	ReplacePrevious

	// IgnoreNew keeps the previous diff and drops the new one, undoing the
	// whole add. Useful when Insert remains canonical over a later Update.
	IgnoreNew

	// KeepBoth keeps the previous diff in the log and adds the new one.
	// This solidifies the previous diff: it can no longer be merged away.
	// Needed for overlapping deletions in ordered collections.
	KeepBoth

	// DiscardBoth cancels the two diffs out entirely.
	DiscardBoth
)

// ReindexFunc rewrites the application position of a diff, given its current
// position and its snapshot position.
type ReindexFunc[K comparable] func(key, snapshotKey K) K

// MergeResult is the outcome of colliding a new diff with the open previous
// diff on the same key. Reindex, when set, runs over every diff recorded
// between the previous diff and the log head, since cancelling or combining
// a pair can invalidate the positions the in-between diffs were created at.
type MergeResult[K comparable, D any] struct {
	Outcome MergeOutcome
	Merged  D
	Reindex ReindexFunc[K]
}
