package snapshotstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetLatest when no snapshot satisfies the
// version bound for the given originator.
var ErrNotFound = errors.New("snapshot not found")

// Record represents a snapshot in serialized form.
type Record struct {
	OriginatorID string
	Version      int
	Data         []byte
}

// Store provides an abstraction for keeping reconstruction checkpoints.
// Snapshots are an optimization only; losing one never loses data.
type Store interface {
	// Put stores the serialized snapshot.
	Put(ctx context.Context, rec Record) error

	// GetLatest returns the snapshot with the highest version at or
	// below atOrBefore for the given originator. atOrBefore of 0 means
	// no upper bound.
	GetLatest(ctx context.Context, originatorID string, atOrBefore int) (Record, error)
}
