package eventstore

import (
	"context"
	"errors"
)

// ErrVersionConflict signals that an append was rejected because a
// record's version is not immediately after the highest version
// currently recorded for the originator. This is the
// optimistic-concurrency conflict: the caller reloads the aggregate and
// re-issues the command. It never indicates data corruption.
var ErrVersionConflict = errors.New("version conflict")

// EventStore provides the durability boundary for aggregate sequences.
type EventStore interface {
	// Save appends the records for one originator atomically: either the
	// whole list is recorded or none of it. Records must continue the
	// stored sequence with no gaps; otherwise Save returns an error
	// wrapping ErrVersionConflict.
	Save(ctx context.Context, originatorID string, records ...Record) error

	// Load returns the records for one originator in strictly increasing
	// version order with no gaps, restricted to [fromVersion, toVersion].
	// A zero bound means unbounded on that side.
	Load(ctx context.Context, originatorID string, fromVersion, toVersion int) (History, error)
}
