package hashmap

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/google/uuid"

	signals "github.com/KeatonTech/futures-signals-im"
	"github.com/KeatonTech/futures-signals-im/utils"
)

type Options struct {
	// Name labels the map in logs and metrics. Defaults to a fresh uuid.
	Name   string
	Logger utils.Logger
}

// MutableHashMap is an observable map. Mutations go through the writer
// methods here; observers obtain a Signal (a private cursor over the map's
// compacting diff log) and poll it for batched changes. All change tracking
// is pull-driven: until the first Signal is created, mutations record
// nothing at all.
type MutableHashMap[K comparable, V any] struct {
	mu    *sync.RWMutex
	state *mapState[K, V]
}

// mapState hosts the items and the diff log behind the shared lock so that
// cursors can materialize snapshot-consistent events.
type mapState[K comparable, V any] struct {
	items map[K]V
	src   *signals.PullSource[K, *Diff[K]]
}

func (s *mapState[K, V]) PullSource() *signals.PullSource[K, *Diff[K]] { return s.src }

func (s *mapState[K, V]) MakeEvent(diffs []*Diff[K]) Event[K, V] {
	return Event[K, V]{Snapshot: maps.Clone(s.items), Diffs: diffs}
}

func New[K comparable, V any]() *MutableHashMap[K, V] {
	return NewWithOptions[K, V](Options{})
}

func NewWithOptions[K comparable, V any](opts Options) *MutableHashMap[K, V] {
	if opts.Name == "" {
		opts.Name = "hashmap-" + uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	state := &mapState[K, V]{
		items: make(map[K]V),
		src: signals.NewPullSource[K, *Diff[K]](opts.Name, opts.Logger, func() *Diff[K] {
			return ReplaceDiff[K]()
		}),
	}
	return &MutableHashMap[K, V]{mu: &sync.RWMutex{}, state: state}
}

// Insert sets key to value and returns the previous value, if any. When the
// key already exists this records an update, not an insert.
func (m *MutableHashMap[K, V]) Insert(key K, value V) (prev V, existed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, existed = m.state.items[key]
	m.state.items[key] = value
	if existed {
		m.state.src.Add(UpdateDiff(key))
	} else {
		m.state.src.Add(InsertDiff(key))
	}
	return prev, existed
}

// Remove deletes key and returns its value. Removing an absent key is an
// ordinary no-op.
func (m *MutableHashMap[K, V]) Remove(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, existed := m.state.items[key]
	if !existed {
		return prev, false
	}
	delete(m.state.items, key)
	m.state.src.Add(RemoveDiff(key))
	return prev, true
}

// Clear empties the map. A clear wipes all pending history: consumers that
// poll afterwards see just the clear (or a replace, if they still need a
// bootstrap).
func (m *MutableHashMap[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.state.items) == 0 {
		return
	}
	clear(m.state.items)
	m.state.src.Add(ClearDiff[K]())
}

// Replace swaps the whole contents for a copy of entries.
func (m *MutableHashMap[K, V]) Replace(entries map[K]V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.items = make(map[K]V, len(entries))
	maps.Copy(m.state.items, entries)
	m.state.src.Add(ReplaceDiff[K]())
}

func (m *MutableHashMap[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.state.items[key]
	return value, ok
}

func (m *MutableHashMap[K, V]) Contains(key K) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.state.items[key]
	return ok
}

func (m *MutableHashMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.state.items)
}

// Snapshot returns a copy of the current contents.
func (m *MutableHashMap[K, V]) Snapshot() map[K]V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.state.items)
}

// Signal opens a new cursor over the map's change log. The first poll
// always delivers a replace diff plus the current snapshot; later polls
// deliver only what changed since that cursor's previous poll.
func (m *MutableHashMap[K, V]) Signal() *signals.PullSignal[K, *Diff[K], Event[K, V]] {
	return signals.NewPullSignal[K, *Diff[K], Event[K, V]](m.mu, m.state)
}

// Reader is the read-only face of the map, safe to hand to consumers.
func (m *MutableHashMap[K, V]) Reader() *Reader[K, V] {
	return &Reader[K, V]{m: m}
}

// StatsSource exposes the underlying log for depth/consumer gauges.
func (m *MutableHashMap[K, V]) StatsSource() signals.StatsSource {
	return m.state.src
}

type Reader[K comparable, V any] struct {
	m *MutableHashMap[K, V]
}

func (r *Reader[K, V]) Get(key K) (V, bool) { return r.m.Get(key) }
func (r *Reader[K, V]) Contains(key K) bool { return r.m.Contains(key) }
func (r *Reader[K, V]) Len() int            { return r.m.Len() }
func (r *Reader[K, V]) Snapshot() map[K]V   { return r.m.Snapshot() }

func (r *Reader[K, V]) Signal() *signals.PullSignal[K, *Diff[K], Event[K, V]] {
	return r.m.Signal()
}
