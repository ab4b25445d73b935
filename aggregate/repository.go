package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eskit-go/eskit/eventstore"
	"github.com/eskit-go/eskit/snapshotstore"
)

// Repository loads and saves one aggregate type through an EventStore
// and, optionally, a snapshot store. It keeps a reference to the stores
// and the serializer associated with the type.
type Repository struct {
	reg           *Registry
	typeTag       string
	store         eventstore.EventStore
	serializer    Serializer
	observers     []Observer
	snapshots     snapshotstore.Store
	snapshotEvery int
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithObservers attaches observers notified after each successful save.
func WithObservers(observers ...Observer) RepositoryOption {
	return func(r *Repository) { r.observers = append(r.observers, observers...) }
}

// WithSnapshots attaches a snapshot store. When every > 0 a snapshot is
// taken automatically each time a save crosses a multiple of that many
// versions; with every == 0 snapshots are taken only via SaveSnapshot.
func WithSnapshots(store snapshotstore.Store, every int) RepositoryOption {
	return func(r *Repository) {
		r.snapshots = store
		r.snapshotEvery = every
	}
}

// NewRepository is a factory function that creates a new Repository for
// the aggregate type registered under typeTag.
func NewRepository(reg *Registry, typeTag string, store eventstore.EventStore, serializer Serializer, opts ...RepositoryOption) *Repository {
	r := &Repository{
		reg:        reg,
		typeTag:    typeTag,
		store:      store,
		serializer: serializer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reconstructs the aggregate with the given id by folding its
// stored event sequence, starting from the latest snapshot when a
// snapshot store is attached. Returns ErrNotFound when no events exist.
func (r *Repository) Load(ctx context.Context, originatorID string) (*Root, error) {
	var snap *Snapshot
	fromVersion := 0

	if r.snapshots != nil {
		rec, err := r.snapshots.GetLatest(ctx, originatorID, 0)
		switch {
		case err == nil:
			snap = &Snapshot{}
			if err := json.Unmarshal(rec.Data, snap); err != nil {
				return nil, fmt.Errorf("could not decode snapshot for %q: %w", originatorID, err)
			}
			fromVersion = snap.OriginatorVersion + 1
		case errors.Is(err, snapshotstore.ErrNotFound):
			// full replay
		default:
			return nil, err
		}
	}

	history, err := r.store.Load(ctx, originatorID, fromVersion, 0)
	if err != nil {
		return nil, err
	}
	if snap == nil && len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, originatorID)
	}

	events := make([]Event, 0, len(history))
	for _, record := range history {
		event, err := r.serializer.UnmarshalEvent(record)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if snap != nil {
		return RootFromSnapshot(r.reg, snap, events)
	}
	return RootFromReplay(r.reg, events)
}

// Exists reports whether any events are recorded for the originator id.
func (r *Repository) Exists(ctx context.Context, originatorID string) (bool, error) {
	spec, err := r.reg.aggregate(r.typeTag)
	if err != nil {
		return false, err
	}
	from, to := spec.initialVersion, spec.initialVersion
	if to == 0 {
		// a zero bound reads unbounded in the stores; keep the probe narrow
		to = 1
	}
	history, err := r.store.Load(ctx, originatorID, from, to)
	if err != nil {
		return false, err
	}
	return len(history) > 0, nil
}

// Save drains the root's pending buffer and records it atomically. A
// version conflict from the store surfaces as *OriginatorVersionError;
// the caller reloads the aggregate and re-issues the command. After a
// successful save the observers run and the snapshot policy is applied.
func (r *Repository) Save(ctx context.Context, root *Root) error {
	pending := root.CollectPending()
	if len(pending) == 0 {
		return nil
	}
	originatorID := pending[0].OriginatorID()

	history := make(eventstore.History, 0, len(pending))
	for _, event := range pending {
		record, err := r.serializer.MarshalEvent(event)
		if err != nil {
			return fmt.Errorf("could not marshal event %v: %w", event, err)
		}
		history = append(history, record)
	}

	if err := r.store.Save(ctx, originatorID, history...); err != nil {
		if errors.Is(err, eventstore.ErrVersionConflict) {
			return &OriginatorVersionError{OriginatorID: originatorID, Err: err}
		}
		return err
	}

	for _, event := range pending {
		for _, observer := range r.observers {
			if observer.WillObserve(root, event) {
				if err := observer.Observe(root, event); err != nil {
					observer.OnObserveFailed(err)
				}
			}
		}
	}

	if r.snapshots != nil && r.snapshotEvery > 0 && !root.Discarded() {
		first := pending[0].OriginatorVersion()
		last := pending[len(pending)-1].OriginatorVersion()
		if last/r.snapshotEvery > (first-1)/r.snapshotEvery {
			if err := r.SaveSnapshot(ctx, root); err != nil {
				return err
			}
		}
	}

	return nil
}

// SaveSnapshot takes a snapshot of the root's current state and puts it
// in the attached snapshot store.
func (r *Repository) SaveSnapshot(ctx context.Context, root *Root) error {
	if r.snapshots == nil {
		return errors.New("no snapshot store configured")
	}
	snap, err := TakeSnapshot(r.reg, root)
	if err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.snapshots.Put(ctx, snapshotstore.Record{
		OriginatorID: snap.OriginatorID,
		Version:      snap.OriginatorVersion,
		Data:         data,
	})
}
