package aggregate

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is a point-in-time serialization of aggregate state, usable
// as an alternative starting point for reconstruction. It is purely an
// optimization: replay from a snapshot plus subsequent events always
// equals replay of the full sequence. A snapshot is never mutated and
// never advances a sequence's version on its own.
type Snapshot struct {
	OriginatorID      string          `json:"originator_id"`
	OriginatorVersion int             `json:"originator_version"`
	Timestamp         time.Time       `json:"timestamp"`
	OriginatorType    string          `json:"originator_type"`
	CreatedOn         time.Time       `json:"created_on"`
	SchemaVersion     int             `json:"schema_version"`
	State             json.RawMessage `json:"state"`
}

// TakeSnapshot captures the root's state at its current version: the
// originator bookkeeping plus a deep copy of all type-specific fields.
// The snapshot's timestamp is the state's modification time.
func TakeSnapshot(reg *Registry, r *Root) (*Snapshot, error) {
	if r.state == nil {
		return nil, ErrDiscarded
	}
	spec, err := reg.aggregate(r.typeTag)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(r.state)
	if err != nil {
		return nil, fmt.Errorf("could not serialize state of %q: %w", r.typeTag, err)
	}

	return &Snapshot{
		OriginatorID:      r.state.OriginatorID(),
		OriginatorVersion: r.state.CurrentVersion(),
		Timestamp:         r.state.ModifiedOn(),
		OriginatorType:    r.typeTag,
		CreatedOn:         r.state.CreatedOn(),
		SchemaVersion:     spec.schemaVersion,
		State:             data,
	}, nil
}

// RootFromSnapshot reconstructs a Root starting from a snapshot followed
// by the chronological events recorded after it. The snapshot payload is
// upcast through the type's state chain before construction when its
// stored schema version is behind the current one.
func RootFromSnapshot(reg *Registry, snap *Snapshot, events []Event) (*Root, error) {
	spec, err := reg.aggregate(snap.OriginatorType)
	if err != nil {
		return nil, err
	}

	payload := snap.State
	if snap.SchemaVersion < spec.schemaVersion {
		var attrs Attrs
		if err := json.Unmarshal(snap.State, &attrs); err != nil {
			return nil, fmt.Errorf("could not decode snapshot state of %q: %w", snap.OriginatorType, err)
		}
		attrs, err = runUpcasts(snap.OriginatorType, spec.upcasts, snap.SchemaVersion, spec.schemaVersion, attrs)
		if err != nil {
			return nil, err
		}
		payload, err = json.Marshal(attrs)
		if err != nil {
			return nil, err
		}
	}

	state := spec.newState()
	if err := decodeStrict(snap.OriginatorType, payload, state); err != nil {
		return nil, err
	}
	state.restore(snap.OriginatorID, snap.OriginatorVersion, snap.CreatedOn, snap.Timestamp)

	var s Mutator = state
	for _, e := range events {
		s, err = Apply(s, e)
		if err != nil {
			return nil, err
		}
	}

	return &Root{typeTag: snap.OriginatorType, state: s}, nil
}
