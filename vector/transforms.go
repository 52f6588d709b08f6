package vector

import (
	signals "github.com/KeatonTech/futures-signals-im"
)

// Map derives a vector whose elements are mapFn of the input's elements, in
// the same order. The stage owns a MutableVector of its own, so mapFn runs
// once per applied diff no matter how many consumers poll downstream.
func Map[IV, OV any](
	input signals.Signal[Event[IV]],
	mapFn func(IV) OV,
) *signals.Transformed[Event[IV], Event[OV]] {
	t := &mapTransformer[IV, OV]{out: New[OV](), mapFn: mapFn}
	return signals.Transform[Event[IV], Event[OV]](input, t)
}

type mapTransformer[IV, OV any] struct {
	out   *MutableVector[OV]
	mapFn func(IV) OV
}

func (t *mapTransformer[IV, OV]) Apply(event Event[IV]) {
	for _, d := range event.Diffs {
		switch d.Op() {
		case OpReplace:
			mapped := make([]OV, len(event.Snapshot))
			for i, v := range event.Snapshot {
				mapped[i] = t.mapFn(v)
			}
			t.out.Replace(mapped)
		case OpInsert:
			// The element may have been removed again later in this batch,
			// leaving the snapshot index dangling. Insert a placeholder
			// anyway: positions of the diffs that follow count it, and the
			// matching remove lands before the batch ends.
			value, _ := ValueAt(d, event.Snapshot)
			t.out.Insert(d.Index(), t.mapFn(value))
		case OpUpdate:
			value, _ := ValueAt(d, event.Snapshot)
			t.out.Set(d.Index(), t.mapFn(value))
		case OpRemove:
			t.out.Remove(d.Index())
		case OpClear:
			t.out.Clear()
		}
	}
}

func (t *mapTransformer[IV, OV]) Signal() signals.Signal[Event[OV]] {
	return t.out.Signal()
}
