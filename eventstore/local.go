package eventstore

import (
	"context"
	"fmt"
	"sync"
)

type memoryEventStore struct {
	mux         sync.Mutex
	recordsByID map[string]History
}

// GetLocalStore returns an EventStore in memory - good for tests! It
// enforces the same append contract as the durable stores: versions must
// continue the stored sequence with no gaps.
func GetLocalStore() EventStore {
	return &memoryEventStore{
		recordsByID: map[string]History{},
	}
}

// Save implements the EventStore interface
func (m *memoryEventStore) Save(_ context.Context, originatorID string, records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	m.mux.Lock()
	defer m.mux.Unlock()

	existing := m.recordsByID[originatorID]
	next := existing.LastVersion() + 1
	for i, r := range records {
		if len(existing) == 0 && i == 0 {
			// first append of a sequence sets its initial version
			next = r.Version + 1
			continue
		}
		if r.Version != next {
			return fmt.Errorf("%w: expected version %d for %s, got %d", ErrVersionConflict, next, originatorID, r.Version)
		}
		next++
	}

	m.recordsByID[originatorID] = append(existing, records...)
	return nil
}

// Load implements the EventStore interface
func (m *memoryEventStore) Load(_ context.Context, originatorID string, fromVersion, toVersion int) (History, error) {
	m.mux.Lock()
	defer m.mux.Unlock()

	all := m.recordsByID[originatorID]
	history := make(History, 0, len(all))
	for _, record := range all {
		if v := record.Version; v >= fromVersion && (toVersion == 0 || v <= toVersion) {
			history = append(history, record)
		}
	}
	return history, nil
}
