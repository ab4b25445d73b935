package aggregate

import (
	"fmt"
	"time"
)

// CreateInitial constructs the initiating event of a new aggregate and
// resolves it into fresh state. attrs must match the declared fields of
// the registered initiating event type; the id is caller-supplied
// (NewID and NamespacedID cover the common strategies). Returns the new
// state together with the event, which becomes the first pending event
// of a Root.
func CreateInitial(reg *Registry, typeTag, id string, attrs Attrs) (Mutator, InitiatingEvent, error) {
	spec, err := reg.aggregate(typeTag)
	if err != nil {
		return nil, nil, err
	}

	ev := spec.newInitiating()
	if len(attrs) > 0 {
		if err := decodeAttrs(typeTag, attrs, ev); err != nil {
			return nil, nil, err
		}
	}

	st, ok := ev.(stamper)
	if !ok {
		return nil, nil, fmt.Errorf("initiating event %T must embed aggregate.Initiating", ev)
	}
	ts, ok := ev.(typeStamper)
	if !ok {
		return nil, nil, fmt.Errorf("initiating event %T must embed aggregate.Initiating", ev)
	}
	st.stamp(id, spec.initialVersion, time.Now())
	ts.stampType(typeTag)

	state := spec.newState()
	if err := state.Mutate(ev); err != nil {
		return nil, nil, err
	}
	state.restore(ev.OriginatorID(), ev.OriginatorVersion(), ev.EventAt(), ev.EventAt())

	return state, ev, nil
}

// Apply advances state by one subsequent or terminal event.
//
// The event must belong to the state's sequence (OriginatorIDError
// otherwise) and carry exactly the next version (OriginatorVersionError
// otherwise). Only then is the state's own Mutate invoked, and only
// after Mutate succeeds are version and modification time committed: a
// failed application leaves the state exactly as it was.
//
// A terminal event still runs Mutate, then yields no state - the
// returned Mutator is nil with a nil error.
func Apply(s Mutator, e Event) (Mutator, error) {
	if s == nil {
		return nil, ErrDiscarded
	}
	if e.OriginatorID() != s.OriginatorID() {
		return s, &OriginatorIDError{StateID: s.OriginatorID(), EventID: e.OriginatorID()}
	}
	if e.OriginatorVersion() != s.CurrentVersion()+1 {
		return s, &OriginatorVersionError{
			OriginatorID: s.OriginatorID(),
			Expected:     s.CurrentVersion() + 1,
			Got:          e.OriginatorVersion(),
		}
	}

	if err := s.Mutate(e); err != nil {
		return s, err
	}
	s.commit(e.OriginatorVersion(), e.EventAt())

	if e.EventKind() == KindTerminal {
		return nil, nil
	}
	return s, nil
}

// Replay folds a chronological event sequence into current state,
// starting from no state. The first event must be initiating; every
// following event is applied via Apply. This fold is the single
// authoritative definition of "current state". A nil Mutator with nil
// error means the sequence ended with a terminal event.
func Replay(reg *Registry, events []Event) (Mutator, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("cannot replay an empty event sequence")
	}

	first, ok := events[0].(InitiatingEvent)
	if !ok || first.EventKind() != KindInitiating {
		return nil, fmt.Errorf("first event %T is not an initiating event", events[0])
	}

	spec, err := reg.aggregate(first.OriginatorType())
	if err != nil {
		return nil, err
	}

	state := spec.newState()
	if err := state.Mutate(first); err != nil {
		return nil, err
	}
	state.restore(first.OriginatorID(), first.OriginatorVersion(), first.EventAt(), first.EventAt())

	for _, e := range events[1:] {
		state, err = Apply(state, e)
		if err != nil {
			return nil, err
		}
	}
	return state, nil
}
