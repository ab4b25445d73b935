package aggregate

import (
	"errors"
	"fmt"
)

// ErrDiscarded is returned when an operation is attempted against an
// aggregate whose sequence has ended with a terminal event.
var ErrDiscarded = errors.New("aggregate has been discarded")

// ErrNotFound is returned by Repository.Load when no events exist for
// the requested originator id.
var ErrNotFound = errors.New("aggregate not found")

// OriginatorIDError reports an event applied to an aggregate it does not
// belong to. This is a programming error and is never retried.
type OriginatorIDError struct {
	StateID string
	EventID string
}

func (e *OriginatorIDError) Error() string {
	return fmt.Sprintf("originator id mismatch: state %q, event %q", e.StateID, e.EventID)
}

// OriginatorVersionError reports a version mismatch during apply. Locally
// it indicates an out-of-order or gapped application; surfaced from a
// durability collaborator it is the optimistic-concurrency conflict
// signal, recoverable by reloading the aggregate and re-issuing the
// command.
type OriginatorVersionError struct {
	OriginatorID string
	Expected     int
	Got          int
	Err          error
}

func (e *OriginatorVersionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("originator version conflict for %q: %v", e.OriginatorID, e.Err)
	}
	return fmt.Sprintf("originator version mismatch for %q: expected %d, got %d", e.OriginatorID, e.Expected, e.Got)
}

func (e *OriginatorVersionError) Unwrap() error {
	return e.Err
}

// MismatchedAttributesError reports attributes that do not match the
// declared fields of an event or aggregate-state type.
type MismatchedAttributesError struct {
	Tag string
	Err error
}

func (e *MismatchedAttributesError) Error() string {
	return fmt.Sprintf("attributes do not match declared fields of %q: %v", e.Tag, e.Err)
}

func (e *MismatchedAttributesError) Unwrap() error {
	return e.Err
}

// MissingUpcastError reports a hole in an upcast chain: stored data at
// SchemaVersion has no registered transformation for step From -> From+1
// on the way to Target. Deployed code is incompatible with stored data;
// reconstruction must halt rather than proceed with partial state.
type MissingUpcastError struct {
	Tag           string
	SchemaVersion int
	Target        int
	From          int
}

func (e *MissingUpcastError) Error() string {
	return fmt.Sprintf("no upcast registered for %q from schema version %d to %d (stored %d, target %d)",
		e.Tag, e.From, e.From+1, e.SchemaVersion, e.Target)
}
