package aggregate

import (
	"fmt"
	"time"
)

// Root is the object calling code interacts with. It wraps exactly one
// aggregate state and the ordered buffer of events applied locally but
// not yet drained for durable recording.
//
// A Root is not safe for concurrent use. It is intended to be
// constructed, commanded and drained within a single logical operation,
// then discarded; optimistic concurrency at the durability boundary is
// the sole cross-process safety mechanism.
type Root struct {
	typeTag string
	state   Mutator
	pending []Event
}

// NewRoot creates a fresh aggregate through its registered initiating
// event. An empty id is replaced with a random one (NewID). The
// initiating event becomes the first pending event.
func NewRoot(reg *Registry, typeTag, id string, attrs Attrs) (*Root, error) {
	if id == "" {
		id = NewID()
	}
	state, ev, err := CreateInitial(reg, typeTag, id, attrs)
	if err != nil {
		return nil, err
	}
	return &Root{
		typeTag: typeTag,
		state:   state,
		pending: []Event{ev},
	}, nil
}

// RootFromReplay reconstructs a Root by folding a stored event sequence.
// The resulting Root has an empty pending buffer.
func RootFromReplay(reg *Registry, events []Event) (*Root, error) {
	state, err := Replay(reg, events)
	if err != nil {
		return nil, err
	}

	first := events[0].(InitiatingEvent)
	return &Root{typeTag: first.OriginatorType(), state: state}, nil
}

// State returns the wrapped aggregate state, or nil once the aggregate
// has been discarded. Callers type-assert to their domain struct.
func (r *Root) State() Mutator {
	return r.state
}

// TypeTag returns the registered tag of the wrapped aggregate type.
func (r *Root) TypeTag() string {
	return r.typeTag
}

// Discarded reports whether the sequence has ended with a terminal event.
func (r *Root) Discarded() bool {
	return r.state == nil
}

// OriginatorID returns the id of the wrapped state's sequence.
func (r *Root) OriginatorID() string {
	if r.state == nil {
		return ""
	}
	return r.state.OriginatorID()
}

// Version returns the version of the last applied event.
func (r *Root) Version() int {
	if r.state == nil {
		return 0
	}
	return r.state.CurrentVersion()
}

// Trigger builds a subsequent (or terminal) event from the supplied
// payload, stamping the current originator id, the next version and a
// fresh timestamp, applies it and appends it to the pending buffer. The
// payload must be a pointer to a struct embedding Model (or Terminal).
//
// Apply errors should not occur here in normal single-writer command
// execution; if one surfaces it indicates a programming error.
func (r *Root) Trigger(e Event) error {
	if r.state == nil {
		return ErrDiscarded
	}
	if e.EventKind() == KindInitiating {
		return fmt.Errorf("cannot trigger an initiating event on a live aggregate")
	}

	st, ok := e.(stamper)
	if !ok {
		return fmt.Errorf("event %T must embed aggregate.Model", e)
	}

	// Timestamps stay strictly monotonic within a sequence even when the
	// clock resolution would otherwise produce equal readings.
	at := time.Now()
	if !at.After(r.state.ModifiedOn()) {
		at = r.state.ModifiedOn().Add(time.Nanosecond)
	}
	st.stamp(r.state.OriginatorID(), r.state.CurrentVersion()+1, at)

	next, err := Apply(r.state, e)
	if err != nil {
		return err
	}
	r.state = next
	r.pending = append(r.pending, e)
	return nil
}

// Discard ends the aggregate sequence with the built-in terminal event.
func (r *Root) Discard() error {
	return r.Trigger(&Discarded{})
}

// CollectPending atomically drains and returns the pending buffer in the
// order events were triggered. A second call before further triggers
// returns an empty slice. This is the only way pending events reach a
// durability collaborator.
func (r *Root) CollectPending() []Event {
	out := r.pending
	r.pending = nil
	return out
}

// HasPending reports whether any events await draining.
func (r *Root) HasPending() bool {
	return len(r.pending) > 0
}
