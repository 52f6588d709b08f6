package hashmap

import (
	"maps"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	signals "github.com/KeatonTech/futures-signals-im"
)

// replica applies delivered batches to a plain map the way any consumer
// would: diffs in order, values read out of the event snapshot.
type replica struct {
	sig   signals.Signal[Event[int, int]]
	state map[int]int
}

func (r *replica) catchUp() {
	for {
		event, status := r.sig.Poll()
		if status != signals.Ready {
			return
		}
		for _, d := range event.Diffs {
			switch d.Op() {
			case OpReplace:
				r.state = maps.Clone(event.Snapshot)
				if r.state == nil {
					r.state = map[int]int{}
				}
			case OpInsert, OpUpdate:
				key, _ := d.Key()
				if value, ok := event.Snapshot[key]; ok {
					r.state[key] = value
				} else {
					delete(r.state, key)
				}
			case OpRemove:
				key, _ := d.Key()
				delete(r.state, key)
			case OpClear:
				clear(r.state)
			}
		}
	}
}

func TestRandomizedConvergence(t *testing.T) {
	rng := rand.New(rand.NewSource(0x5117))

	for round := 0; round < 50; round++ {
		m := New[int, int]()
		replicas := []*replica{
			{sig: m.Signal(), state: map[int]int{}},
			{sig: m.Signal(), state: map[int]int{}},
			{sig: m.Signal(), state: map[int]int{}},
		}

		for step := 0; step < 200; step++ {
			key := rng.Intn(16)
			switch rng.Intn(10) {
			case 0:
				m.Clear()
			case 1, 2, 3:
				m.Remove(key)
			default:
				m.Insert(key, rng.Intn(1000))
			}

			// Replicas poll at uncorrelated moments, so batches compact
			// differently per cursor.
			for _, r := range replicas {
				if rng.Intn(4) == 0 {
					r.catchUp()
				}
			}
		}

		want := m.Snapshot()
		for i, r := range replicas {
			r.catchUp()
			assert.Equal(t, want, r.state, "replica %d diverged in round %d", i, round)
		}
	}
}

func TestRandomizedConvergenceThroughTransform(t *testing.T) {
	rng := rand.New(rand.NewSource(0xA11CE))

	m := New[int, int]()
	mapped := MapValues[int, int, int](m.Signal(), func(v int) int { return v + 1 })
	mirror := &replica{sig: mapped, state: map[int]int{}}

	for step := 0; step < 2000; step++ {
		key := rng.Intn(12)
		switch rng.Intn(12) {
		case 0:
			m.Clear()
		case 1:
			next := map[int]int{}
			for i := 0; i < rng.Intn(6); i++ {
				next[rng.Intn(12)] = rng.Intn(1000)
			}
			m.Replace(next)
		case 2, 3, 4:
			m.Remove(key)
		default:
			m.Insert(key, rng.Intn(1000))
		}
		if rng.Intn(5) == 0 {
			mirror.catchUp()
		}
	}
	mirror.catchUp()

	want := map[int]int{}
	for k, v := range m.Snapshot() {
		want[k] = v + 1
	}
	assert.Equal(t, want, mirror.state)
}
