package hashmap

import (
	lru "github.com/hashicorp/golang-lru/v2"

	signals "github.com/KeatonTech/futures-signals-im"
)

// MapValues derives a map whose values are mapFn of the input's values,
// keyed identically. The stage owns a MutableHashMap of its own: downstream
// consumers compact against the stage, and mapFn runs once per applied
// diff, not once per consumer.
func MapValues[K comparable, IV, OV any](
	input signals.Signal[Event[K, IV]],
	mapFn func(IV) OV,
) *signals.Transformed[Event[K, IV], Event[K, OV]] {
	t := &mapValuesTransformer[K, IV, OV]{out: New[K, OV](), mapFn: mapFn}
	return signals.Transform[Event[K, IV], Event[K, OV]](input, t)
}

// MapValuesCached is MapValues with an LRU memo keyed by input value. Worth
// it when mapFn is expensive and values repeat across keys or over time.
func MapValuesCached[K comparable, IV comparable, OV any](
	input signals.Signal[Event[K, IV]],
	size int,
	mapFn func(IV) OV,
) *signals.Transformed[Event[K, IV], Event[K, OV]] {
	cache, err := lru.New[IV, OV](size)
	if err != nil {
		panic(err)
	}
	cached := func(value IV) OV {
		if out, ok := cache.Get(value); ok {
			return out
		}
		out := mapFn(value)
		cache.Add(value, out)
		return out
	}
	return MapValues[K, IV, OV](input, cached)
}

type mapValuesTransformer[K comparable, IV, OV any] struct {
	out   *MutableHashMap[K, OV]
	mapFn func(IV) OV
}

func (t *mapValuesTransformer[K, IV, OV]) Apply(event Event[K, IV]) {
	for _, d := range event.Diffs {
		switch d.Op() {
		case OpReplace:
			next := make(map[K]OV, len(event.Snapshot))
			for k, v := range event.Snapshot {
				next[k] = t.mapFn(v)
			}
			t.out.Replace(next)
		case OpInsert, OpUpdate:
			key, _ := d.Key()
			value, ok := event.Snapshot[key]
			if !ok {
				// A later diff in this batch removed the key; the snapshot
				// no longer holds its value and the removal will land next.
				continue
			}
			t.out.Insert(key, t.mapFn(value))
		case OpRemove:
			key, _ := d.Key()
			t.out.Remove(key)
		case OpClear:
			t.out.Clear()
		}
	}
}

func (t *mapValuesTransformer[K, IV, OV]) Signal() signals.Signal[Event[K, OV]] {
	return t.out.Signal()
}

// Filter derives a map holding only the input entries whose value passes
// pred. Updates that flip an entry out of the predicate surface as removes
// downstream.
func Filter[K comparable, V any](
	input signals.Signal[Event[K, V]],
	pred func(V) bool,
) *signals.Transformed[Event[K, V], Event[K, V]] {
	t := &filterTransformer[K, V]{out: New[K, V](), pred: pred}
	return signals.Transform[Event[K, V], Event[K, V]](input, t)
}

type filterTransformer[K comparable, V any] struct {
	out  *MutableHashMap[K, V]
	pred func(V) bool
}

func (t *filterTransformer[K, V]) Apply(event Event[K, V]) {
	for _, d := range event.Diffs {
		switch d.Op() {
		case OpReplace:
			next := make(map[K]V)
			for k, v := range event.Snapshot {
				if t.pred(v) {
					next[k] = v
				}
			}
			t.out.Replace(next)
		case OpInsert, OpUpdate:
			key, _ := d.Key()
			value, ok := event.Snapshot[key]
			if !ok {
				continue
			}
			if t.pred(value) {
				t.out.Insert(key, value)
			} else {
				t.out.Remove(key)
			}
		case OpRemove:
			key, _ := d.Key()
			t.out.Remove(key)
		case OpClear:
			t.out.Clear()
		}
	}
}

func (t *filterTransformer[K, V]) Signal() signals.Signal[Event[K, V]] {
	return t.out.Signal()
}
