package aggregate

import "time"

// InitialVersion is the default version of an aggregate's initiating event.
// Registered aggregate types may override it with WithInitialVersion.
const InitialVersion = 1

// Kind classifies an event's role within its aggregate sequence.
type Kind int

const (
	// KindInitiating events open a sequence and construct new state.
	KindInitiating Kind = iota + 1
	// KindSubsequent events advance existing state by one version.
	KindSubsequent
	// KindTerminal events end a sequence; applying one yields no state.
	KindTerminal
)

func (k Kind) String() string {
	switch k {
	case KindInitiating:
		return "initiating"
	case KindSubsequent:
		return "subsequent"
	case KindTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Event is an immutable record of one decision advancing one aggregate's
// sequence. Ordering is by OriginatorVersion, never by EventAt: versions
// form a gapless total order while timestamps can collide or skew.
type Event interface {
	// OriginatorID returns the id of the aggregate sequence this event
	// belongs to.
	OriginatorID() string

	// OriginatorVersion returns this event's position in the sequence.
	// Versions are strictly positive, unique and contiguous from the
	// initial version with no gaps.
	OriginatorVersion() int

	// EventAt indicates when the event was created. Advisory only.
	EventAt() time.Time

	// EventKind returns the role this event plays in the sequence.
	EventKind() Kind

	// EventType returns the stable name the event is stored under.
	EventType() string
}

// InitiatingEvent is an Event that opens an aggregate sequence. It
// additionally names the aggregate type whose state it constructs.
type InitiatingEvent interface {
	Event

	// OriginatorType returns the registered tag of the aggregate type.
	OriginatorType() string
}

// stamper is implemented by events embedding Model; the kernel uses it
// to fill in originator bookkeeping when an event is created.
type stamper interface {
	stamp(id string, version int, at time.Time)
}

// typeStamper is additionally implemented by events embedding Initiating.
type typeStamper interface {
	stampType(tag string)
}

// Model provides a default implementation of a subsequent Event and is
// meant to be embedded in concrete event types.
type Model struct {
	// ID contains the OriginatorID
	ID string `json:"originator_id"`

	// Version contains the OriginatorVersion
	Version int `json:"originator_version"`

	// At contains the EventAt
	At time.Time `json:"timestamp"`
}

// OriginatorID implements the Event interface
func (m Model) OriginatorID() string {
	return m.ID
}

// OriginatorVersion implements the Event interface
func (m Model) OriginatorVersion() int {
	return m.Version
}

// EventAt implements the Event interface
func (m Model) EventAt() time.Time {
	return m.At
}

// EventKind implements the Event interface; Model defaults to subsequent.
func (m Model) EventKind() Kind {
	return KindSubsequent
}

func (m *Model) stamp(id string, version int, at time.Time) {
	m.ID = id
	m.Version = version
	m.At = at
}

// Initiating provides a default implementation of an InitiatingEvent and
// is meant to be embedded in the one event type that opens a sequence.
type Initiating struct {
	Model

	// Type contains the OriginatorType
	Type string `json:"originator_type"`
}

// EventKind implements the Event interface
func (i Initiating) EventKind() Kind {
	return KindInitiating
}

// OriginatorType implements the InitiatingEvent interface
func (i Initiating) OriginatorType() string {
	return i.Type
}

func (i *Initiating) stampType(tag string) {
	i.Type = tag
}

// Terminal marks an event as ending its aggregate sequence. Embed it in
// a concrete event type to build a custom terminal event.
type Terminal struct {
	Model
}

// EventKind implements the Event interface
func (t Terminal) EventKind() Kind {
	return KindTerminal
}

// Discarded is the built-in terminal event. It carries no payload beyond
// the base record and may be registered under any aggregate's event set.
type Discarded struct {
	Terminal
}

// EventType implements the Event interface
func (d Discarded) EventType() string {
	return "Discarded"
}
