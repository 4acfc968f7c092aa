// internal/eventstore/memory.go
package eventstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a Store for development runs without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	events []Event
	nowFn  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nowFn: time.Now}
}

func (m *MemoryStore) AppendEvents(_ context.Context, aggregateID, aggregateType string, expectedVersion int, events []Event) error {
	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.versionLocked(aggregateID) != expectedVersion {
		return ErrConcurrencyConflict
	}
	for i, event := range events {
		m.nextID++
		event.ID = m.nextID
		event.AggregateID = aggregateID
		event.AggregateType = aggregateType
		event.Version = expectedVersion + i + 1
		event.CreatedAt = m.nowFn().UTC()
		m.events = append(m.events, event)
	}
	return nil
}

func (m *MemoryStore) LoadEvents(_ context.Context, aggregateID string, fromVersion, toVersion int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for _, e := range m.events {
		if e.AggregateID != aggregateID || e.Version < fromVersion {
			continue
		}
		if toVersion > 0 && e.Version > toVersion {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MemoryStore) GetCurrentVersion(_ context.Context, aggregateID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.versionLocked(aggregateID), nil
}

func (m *MemoryStore) StreamEvents(_ context.Context, fromID int64, batchSize int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for _, e := range m.events {
		if e.ID <= fromID {
			continue
		}
		if batchSize > 0 && len(out) >= batchSize {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MemoryStore) versionLocked(aggregateID string) int {
	version := 0
	for _, e := range m.events {
		if e.AggregateID == aggregateID && e.Version > version {
			version = e.Version
		}
	}
	return version
}
