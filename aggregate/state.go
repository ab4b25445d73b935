package aggregate

import "time"

// State is the read surface of an aggregate's projected state. It is
// implemented by embedding Base in a domain struct.
type State interface {
	// OriginatorID returns the id of the initiating event's sequence.
	OriginatorID() string

	// CurrentVersion equals the OriginatorVersion of the last applied event.
	CurrentVersion() int

	// CreatedOn returns the timestamp of the initiating event.
	CreatedOn() time.Time

	// ModifiedOn returns the timestamp of the most recently applied event.
	ModifiedOn() time.Time

	restore(id string, version int, createdOn, modifiedOn time.Time)
	commit(version int, at time.Time)
}

// Mutator is an aggregate state that knows how to advance itself from
// one event. Mutate holds the type-specific apply logic: a single switch
// over the aggregate's event variants. It must not touch the bookkeeping
// fields carried by Base (id, version, timestamps) - the kernel commits
// those after Mutate returns without error. Mutate must validate before
// mutating so that a returned error leaves the state untouched.
type Mutator interface {
	State

	Mutate(e Event) error
}

// Base holds the bookkeeping common to every aggregate state. Embed it
// by value in a domain struct; its fields are maintained exclusively by
// the kernel's apply path.
type Base struct {
	id         string
	version    int
	createdOn  time.Time
	modifiedOn time.Time
}

// OriginatorID implements the State interface
func (b *Base) OriginatorID() string {
	return b.id
}

// CurrentVersion implements the State interface
func (b *Base) CurrentVersion() int {
	return b.version
}

// CreatedOn implements the State interface
func (b *Base) CreatedOn() time.Time {
	return b.createdOn
}

// ModifiedOn implements the State interface
func (b *Base) ModifiedOn() time.Time {
	return b.modifiedOn
}

func (b *Base) restore(id string, version int, createdOn, modifiedOn time.Time) {
	b.id = id
	b.version = version
	b.createdOn = createdOn
	b.modifiedOn = modifiedOn
}

func (b *Base) commit(version int, at time.Time) {
	b.version = version
	b.modifiedOn = at
}
