package snapshotstore

import (
	"context"
	"sort"
	"sync"
)

type memorySnapshotStore struct {
	mux  sync.Mutex
	byID map[string][]Record
}

// GetLocalStore returns a snapshot store in memory - good for tests!
func GetLocalStore() Store {
	return &memorySnapshotStore{byID: map[string][]Record{}}
}

// Put implements the Store interface
func (m *memorySnapshotStore) Put(_ context.Context, rec Record) error {
	m.mux.Lock()
	defer m.mux.Unlock()

	recs := append(m.byID[rec.OriginatorID], rec)
	sort.Slice(recs, func(i, j int) bool { return recs[i].Version < recs[j].Version })
	m.byID[rec.OriginatorID] = recs
	return nil
}

// GetLatest implements the Store interface
func (m *memorySnapshotStore) GetLatest(_ context.Context, originatorID string, atOrBefore int) (Record, error) {
	m.mux.Lock()
	defer m.mux.Unlock()

	recs := m.byID[originatorID]
	for i := len(recs) - 1; i >= 0; i-- {
		if atOrBefore == 0 || recs[i].Version <= atOrBefore {
			return recs[i], nil
		}
	}
	return Record{}, ErrNotFound
}
