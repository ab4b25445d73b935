package aggregate

import (
	"encoding/json"
	"fmt"

	"github.com/eskit-go/eskit/eventstore"
)

type jsonEvent struct {
	Type          string          `json:"t"`
	SchemaVersion int             `json:"v"`
	Data          json.RawMessage `json:"d"`
}

// JSONSerializer converts events to and from JSON records using the
// registry's stable tags. On the way in it tags each record with the
// event's current schema version; on the way out it runs the registered
// upcast chain before decoding, so records written under older schema
// versions stay reconstructible.
type JSONSerializer struct {
	reg *Registry
}

// NewJSONSerializer constructs a JSONSerializer over a populated registry.
func NewJSONSerializer(reg *Registry) *JSONSerializer {
	return &JSONSerializer{reg: reg}
}

// MarshalEvent converts an event into its persistent type, Record
func (j *JSONSerializer) MarshalEvent(ev Event) (eventstore.Record, error) {
	spec, err := j.reg.event(ev.EventType())
	if err != nil {
		return eventstore.Record{}, err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return eventstore.Record{}, fmt.Errorf("unable to encode event %q: %w", spec.tag, err)
	}

	recordData, err := json.Marshal(jsonEvent{
		Type:          spec.tag,
		SchemaVersion: spec.schemaVersion,
		Data:          data,
	})
	if err != nil {
		return eventstore.Record{}, fmt.Errorf("unable to encode event envelope for %q: %w", spec.tag, err)
	}

	return eventstore.Record{
		Version: ev.OriginatorVersion(),
		Data:    recordData,
	}, nil
}

// UnmarshalEvent converts the persistent type, Record, into an Event instance
func (j *JSONSerializer) UnmarshalEvent(record eventstore.Record) (Event, error) {
	wrapper := jsonEvent{}
	if err := json.Unmarshal(record.Data, &wrapper); err != nil {
		return nil, fmt.Errorf("unable to unmarshal event envelope: %w", err)
	}

	spec, err := j.reg.event(wrapper.Type)
	if err != nil {
		return nil, err
	}

	// records written before schema tagging carry version 0
	stored := wrapper.SchemaVersion
	if stored == 0 {
		stored = 1
	}

	payload := []byte(wrapper.Data)
	if stored < spec.schemaVersion {
		var attrs Attrs
		if err := json.Unmarshal(wrapper.Data, &attrs); err != nil {
			return nil, fmt.Errorf("unable to decode stored fields of %q: %w", spec.tag, err)
		}
		attrs, err = runUpcasts(spec.tag, spec.upcasts, stored, spec.schemaVersion, attrs)
		if err != nil {
			return nil, err
		}
		payload, err = json.Marshal(attrs)
		if err != nil {
			return nil, err
		}
	}

	ev := spec.ctor()
	if err := decodeStrict(spec.tag, payload, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
