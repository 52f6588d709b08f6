package hashmap

import (
	signals "github.com/KeatonTech/futures-signals-im"
)

// Entry is the observed state of one watched key.
type Entry[V any] struct {
	Value   V
	Present bool
}

// KeyWatcher narrows a map signal down to a single key: it fires only when
// a polled batch could have touched that key, delivering the key's current
// state. Batches that touch other keys are swallowed without waking the
// consumer with anything.
type KeyWatcher[K comparable, V any] struct {
	input signals.Signal[Event[K, V]]
	key   K
}

func WatchKey[K comparable, V any](input signals.Signal[Event[K, V]], key K) *KeyWatcher[K, V] {
	return &KeyWatcher[K, V]{input: input, key: key}
}

func (w *KeyWatcher[K, V]) Poll() (Entry[V], signals.PollStatus) {
	for {
		event, status := w.input.Poll()
		if status != signals.Ready {
			return Entry[V]{}, status
		}
		if !touches(event.Diffs, w.key) {
			continue
		}
		value, ok := event.Snapshot[w.key]
		return Entry[V]{Value: value, Present: ok}, signals.Ready
	}
}

func touches[K comparable](diffs []*Diff[K], key K) bool {
	for _, d := range diffs {
		k, keyed := d.Key()
		if !keyed || k == key {
			return true
		}
	}
	return false
}
