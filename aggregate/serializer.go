package aggregate

import (
	"github.com/eskit-go/eskit/eventstore"
)

// Serializer converts between Events and Records
type Serializer interface {
	// MarshalEvent converts an Event to a Record
	MarshalEvent(event Event) (eventstore.Record, error)

	// UnmarshalEvent converts a Record back into an Event
	UnmarshalEvent(record eventstore.Record) (Event, error)
}
