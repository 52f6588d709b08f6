package vector

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	signals "github.com/KeatonTech/futures-signals-im"
	"github.com/KeatonTech/futures-signals-im/utils"
)

type Options struct {
	// Name labels the vector in logs and metrics. Defaults to a fresh uuid.
	Name   string
	Logger utils.Logger
}

// MutableVector is an observable sequence. Mutations go through the writer
// methods; observers obtain a Signal over the vector's compacting diff log
// and poll it for batched positional changes. Because positions shift as
// the vector mutates, every writer keeps the pending diffs' coordinates in
// step: inserts shift pending positions at or after the insertion point up,
// removes shift positions after the removal point down.
type MutableVector[T any] struct {
	mu    *sync.RWMutex
	state *vecState[T]
}

type vecState[T any] struct {
	items []T
	src   *signals.PullSource[int, *Diff]
}

func (s *vecState[T]) PullSource() *signals.PullSource[int, *Diff] { return s.src }

func (s *vecState[T]) MakeEvent(diffs []*Diff) Event[T] {
	return Event[T]{Snapshot: slices.Clone(s.items), Diffs: diffs}
}

func New[T any]() *MutableVector[T] {
	return NewWithOptions[T](Options{})
}

func NewWithOptions[T any](opts Options) *MutableVector[T] {
	if opts.Name == "" {
		opts.Name = "vector-" + uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	state := &vecState[T]{
		src: signals.NewPullSource[int, *Diff](opts.Name, opts.Logger, ReplaceDiff),
	}
	return &MutableVector[T]{mu: &sync.RWMutex{}, state: state}
}

// Set overwrites the element at index and returns the old value. Reports
// false when index is out of range.
func (v *MutableVector[T]) Set(index int, value T) (old T, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if index < 0 || index >= len(v.state.items) {
		return old, false
	}
	old = v.state.items[index]
	v.state.items[index] = value
	v.state.src.Add(UpdateDiff(index))
	return old, true
}

// Insert places value at index, shifting later elements up. Reports false
// when index is out of range (index == Len appends).
func (v *MutableVector[T]) Insert(index int, value T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.insert(index, value)
}

func (v *MutableVector[T]) insert(index int, value T) bool {
	if index < 0 || index > len(v.state.items) {
		return false
	}
	// Pending diffs at or after the insertion point now describe elements
	// one slot further along. Shift them before recording the insert so
	// the new diff cannot collide with a diff it just displaced.
	v.state.src.UpdateKeys(func(k int) int {
		if k >= index {
			return k + 1
		}
		return k
	})
	v.state.items = slices.Insert(v.state.items, index, value)
	v.state.src.Add(InsertDiff(index))
	return true
}

func (v *MutableVector[T]) PushBack(value T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.insert(len(v.state.items), value)
}

func (v *MutableVector[T]) PushFront(value T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.insert(0, value)
}

// Remove deletes the element at index, shifting later elements down.
// Reports false when index is out of range.
func (v *MutableVector[T]) Remove(index int) (old T, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.remove(index)
}

func (v *MutableVector[T]) remove(index int) (old T, ok bool) {
	if index < 0 || index >= len(v.state.items) {
		return old, false
	}
	old = v.state.items[index]
	v.state.items = slices.Delete(v.state.items, index, index+1)
	// Record first: if a pending insert at this position cancels against
	// the remove, the merge's own reindexing handles the shift for the
	// diffs in between. Only after that do surviving pending diffs past
	// the removal point slide down.
	v.state.src.Add(RemoveDiff(index))
	v.state.src.UpdateKeys(func(k int) int {
		if k > index {
			return k - 1
		}
		return k
	})
	return old, true
}

func (v *MutableVector[T]) PopBack() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.remove(len(v.state.items) - 1)
}

func (v *MutableVector[T]) PopFront() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.remove(0)
}

// Replace swaps the whole contents for a copy of values.
func (v *MutableVector[T]) Replace(values []T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.items = slices.Clone(values)
	v.state.src.Add(ReplaceDiff())
}

// Clear empties the vector, wiping all pending history.
func (v *MutableVector[T]) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.state.items) == 0 {
		return
	}
	v.state.items = nil
	v.state.src.Add(ClearDiff())
}

func (v *MutableVector[T]) Get(index int) (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var zero T
	if index < 0 || index >= len(v.state.items) {
		return zero, false
	}
	return v.state.items[index], true
}

func (v *MutableVector[T]) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.state.items)
}

// Snapshot returns a copy of the current contents.
func (v *MutableVector[T]) Snapshot() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.state.items)
}

// Signal opens a new cursor over the vector's change log. The first poll
// always delivers a replace diff plus the current snapshot.
func (v *MutableVector[T]) Signal() *signals.PullSignal[int, *Diff, Event[T]] {
	return signals.NewPullSignal[int, *Diff, Event[T]](v.mu, v.state)
}

// Reader is the read-only face of the vector.
func (v *MutableVector[T]) Reader() *Reader[T] {
	return &Reader[T]{v: v}
}

// StatsSource exposes the underlying log for depth/consumer gauges.
func (v *MutableVector[T]) StatsSource() signals.StatsSource {
	return v.state.src
}

type Reader[T any] struct {
	v *MutableVector[T]
}

func (r *Reader[T]) Get(index int) (T, bool) { return r.v.Get(index) }
func (r *Reader[T]) Len() int                { return r.v.Len() }
func (r *Reader[T]) Snapshot() []T           { return r.v.Snapshot() }

func (r *Reader[T]) Signal() *signals.PullSignal[int, *Diff, Event[T]] {
	return r.v.Signal()
}
