package signals

// Transformer consumes one collection's events and mirrors them into a
// collection of its own, exposing the mirror's signal. Transform stages
// chain: each stage owns an independent diff log rather than forwarding
// upstream diffs verbatim, so downstream consumers compact and resync
// against the stage, not the origin.
type Transformer[In, Out any] interface {
	Apply(event In)

	// Signal returns a new signal over the transformer's output
	// collection. Called once per Transformed stage.
	Signal() Signal[Out]
}

// Transformed drives a Transformer: each poll first drains the input signal
// into the transformer, then polls the transformer's output. Once the input
// closes and the output runs dry, the stage reports Closed.
type Transformed[In, Out any] struct {
	input       Signal[In]
	transformer Transformer[In, Out]
	output      Signal[Out]
	closed      bool
}

func Transform[In, Out any](input Signal[In], t Transformer[In, Out]) *Transformed[In, Out] {
	return &Transformed[In, Out]{input: input, transformer: t, output: t.Signal()}
}

func (t *Transformed[In, Out]) Poll() (Out, PollStatus) {
	for !t.closed {
		event, status := t.input.Poll()
		if status == Ready {
			t.transformer.Apply(event)
			continue
		}
		if status == Closed {
			t.closed = true
		}
		break
	}

	out, status := t.output.Poll()
	if t.closed && status == Pending {
		return out, Closed
	}
	return out, status
}

// Drain polls sig until it reports Pending or Closed, returning every event
// delivered on the way and whether the signal closed. Handy for tests and
// for synchronous snapshot reads.
func Drain[E any](sig Signal[E]) (events []E, closed bool) {
	for {
		event, status := sig.Poll()
		switch status {
		case Ready:
			events = append(events, event)
		case Closed:
			return events, true
		default:
			return events, false
		}
	}
}
