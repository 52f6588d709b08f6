package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	signals "github.com/KeatonTech/futures-signals-im"
)

func diffOps(diffs []*Diff) []Op {
	ops := make([]Op, 0, len(diffs))
	for _, d := range diffs {
		ops = append(ops, d.Op())
	}
	return ops
}

func TestUnobservedMutationsRecordNothing(t *testing.T) {
	v := New[int]()
	for i := 0; i < 100; i++ {
		v.PushBack(i)
	}
	stats := v.StatsSource().Stats()
	assert.Equal(t, 0, stats.Depth)
	assert.Equal(t, 0, stats.Consumers)
}

func TestFirstPollBootstrapsWithReplace(t *testing.T) {
	v := New[int]()
	v.PushBack(10)
	v.PushBack(20)

	sig := v.Signal()
	event, status := sig.Poll()
	assert.Equal(t, signals.Ready, status)
	assert.Equal(t, []Op{OpReplace}, diffOps(event.Diffs))
	assert.Equal(t, []int{10, 20}, event.Snapshot)

	_, status = sig.Poll()
	assert.Equal(t, signals.Pending, status)
}

func TestWriterOps(t *testing.T) {
	v := New[int]()
	v.PushBack(2)
	v.PushFront(1)
	v.PushBack(3)
	assert.Equal(t, []int{1, 2, 3}, v.Snapshot())

	old, ok := v.Set(1, 20)
	assert.True(t, ok)
	assert.Equal(t, 2, old)

	assert.True(t, v.Insert(3, 4))
	assert.False(t, v.Insert(5, 99))
	assert.False(t, v.Insert(-1, 99))

	_, ok = v.Set(4, 99)
	assert.False(t, ok)

	front, ok := v.PopFront()
	assert.True(t, ok)
	assert.Equal(t, 1, front)
	back, ok := v.PopBack()
	assert.True(t, ok)
	assert.Equal(t, 4, back)
	assert.Equal(t, []int{20, 3}, v.Snapshot())

	value, ok := v.Get(0)
	assert.True(t, ok)
	assert.Equal(t, 20, value)
	_, ok = v.Get(2)
	assert.False(t, ok)
	assert.Equal(t, 2, v.Len())
}

func TestPopEmpty(t *testing.T) {
	v := New[int]()
	_, ok := v.PopBack()
	assert.False(t, ok)
	_, ok = v.PopFront()
	assert.False(t, ok)
}

func TestInsertThenRemoveCancelsAndReindexes(t *testing.T) {
	v := New[int]()
	v.PushBack(10)
	v.PushBack(20)
	sig := v.Signal()
	sig.Poll()

	// The insert and its removal annihilate; the update recorded between
	// them slides back down to the position it described originally.
	v.Insert(1, 99)
	v.Set(2, 21)
	v.Remove(1)

	event, status := sig.Poll()
	assert.Equal(t, signals.Ready, status)
	assert.Equal(t, []Op{OpUpdate}, diffOps(event.Diffs))
	assert.Equal(t, 1, event.Diffs[0].Index())
	assert.Equal(t, 1, event.Diffs[0].SnapshotIndex())
	assert.Equal(t, []int{10, 21}, event.Snapshot)
}

func TestInsertShiftsPendingCoordinates(t *testing.T) {
	v := New[int]()
	v.PushBack(10)
	v.PushBack(20)
	sig := v.Signal()
	sig.Poll()

	v.Set(1, 21)
	v.Insert(1, 15)

	event, status := sig.Poll()
	assert.Equal(t, signals.Ready, status)
	assert.Equal(t, []Op{OpUpdate, OpInsert}, diffOps(event.Diffs))

	// The update still applies at position 1 of the pre-insert sequence,
	// but its element now sits one slot further along in the snapshot.
	assert.Equal(t, 1, event.Diffs[0].Index())
	assert.Equal(t, 2, event.Diffs[0].SnapshotIndex())
	assert.Equal(t, 1, event.Diffs[1].Index())
	assert.Equal(t, 1, event.Diffs[1].SnapshotIndex())
	assert.Equal(t, []int{10, 15, 21}, event.Snapshot)
}

func TestRemoveThenUpdateKeepsBoth(t *testing.T) {
	v := New[int]()
	v.Replace([]int{10, 20, 30})
	sig := v.Signal()
	sig.Poll()

	// The remove shifted 30 into position 1; the update then targets that
	// element. Neither diff may absorb the other.
	v.Remove(1)
	v.Set(1, 31)

	event, status := sig.Poll()
	assert.Equal(t, signals.Ready, status)
	assert.Equal(t, []Op{OpRemove, OpUpdate}, diffOps(event.Diffs))
	assert.Equal(t, 1, event.Diffs[0].Index())
	assert.Equal(t, 1, event.Diffs[1].Index())
	assert.Equal(t, []int{10, 31}, event.Snapshot)
}

func TestPendingInsertAbsorbsUpdate(t *testing.T) {
	v := New[int]()
	sig := v.Signal()
	sig.Poll()

	v.PushBack(1)
	v.Set(0, 2)

	event, status := sig.Poll()
	assert.Equal(t, signals.Ready, status)
	assert.Equal(t, []Op{OpInsert}, diffOps(event.Diffs))
	assert.Equal(t, []int{2}, event.Snapshot)
}

func TestObservedDiffsNoLongerCancel(t *testing.T) {
	v := New[int]()
	a := v.Signal()
	b := v.Signal()
	a.Poll()
	b.Poll()

	v.PushBack(1)
	a.Poll()

	v.Remove(0)
	event, status := b.Poll()
	assert.Equal(t, signals.Ready, status)
	assert.Equal(t, []Op{OpInsert, OpRemove}, diffOps(event.Diffs))
	assert.Empty(t, event.Snapshot)
}

func TestClearPurgesPendingHistory(t *testing.T) {
	v := New[int]()
	sig := v.Signal()
	sig.Poll()

	v.PushBack(1)
	v.PushBack(2)
	v.Clear()

	event, status := sig.Poll()
	assert.Equal(t, signals.Ready, status)
	assert.Equal(t, []Op{OpClear}, diffOps(event.Diffs))
	assert.Empty(t, event.Snapshot)

	v.Clear()
	_, status = sig.Poll()
	assert.Equal(t, signals.Pending, status)
}

func TestReplaceSupersedesHistory(t *testing.T) {
	v := New[int]()
	sig := v.Signal()
	sig.Poll()

	v.PushBack(1)
	v.Replace([]int{7, 8})

	event, status := sig.Poll()
	assert.Equal(t, signals.Ready, status)
	assert.Equal(t, []Op{OpReplace}, diffOps(event.Diffs))
	assert.Equal(t, []int{7, 8}, event.Snapshot)
}

func TestLateSubscriberSkipsHistory(t *testing.T) {
	v := New[int]()
	early := v.Signal()
	early.Poll()

	v.PushBack(1)
	early.Poll()
	v.PushBack(2)

	late := v.Signal()
	event, status := late.Poll()
	assert.Equal(t, signals.Ready, status)
	assert.Equal(t, []Op{OpReplace}, diffOps(event.Diffs))
	assert.Equal(t, []int{1, 2}, event.Snapshot)
}

func TestReaderSharesState(t *testing.T) {
	v := New[int]()
	r := v.Reader()
	v.PushBack(5)

	assert.Equal(t, 1, r.Len())
	value, ok := r.Get(0)
	assert.True(t, ok)
	assert.Equal(t, 5, value)

	sig := r.Signal()
	event, status := sig.Poll()
	assert.Equal(t, signals.Ready, status)
	assert.Equal(t, []int{5}, event.Snapshot)
}

func TestSnapshotIsACopy(t *testing.T) {
	v := New[int]()
	v.PushBack(1)
	snap := v.Snapshot()
	snap[0] = 99
	value, _ := v.Get(0)
	assert.Equal(t, 1, value)
}
