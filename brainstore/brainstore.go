// Package brainstore maps (session, message) pairs to the ids their content
// received in long-term memory ("brain ids").
//
// The compaction engine only reads from a store. The Collector's
// write-through step is the only writer.
package brainstore

import (
	"context"
	"sync"
)

// Lookup resolves the brain id recorded for a message.
type Lookup interface {
	// BrainID returns the id recorded for the message, or false when none is.
	BrainID(ctx context.Context, sessionID, messageID string) (int, bool, error)
}

// BatchLookup is an optional interface for stores that can resolve many
// messages of one session in a single round trip.
type BatchLookup interface {
	Lookup

	// BrainIDs returns the recorded ids of messageIDs, keyed by message ID.
	// Messages with no recorded id are absent from the result.
	BrainIDs(ctx context.Context, sessionID string, messageIDs []string) (map[string]int, error)
}

// Store is a writable Lookup.
type Store interface {
	Lookup

	// SetBrainID records brainID for the message, replacing any previous id.
	SetBrainID(ctx context.Context, sessionID, messageID string, brainID int) error

	// ClearSession forgets every id recorded for sessionID.
	ClearSession(ctx context.Context, sessionID string) error
}

// LookupMany resolves messageIDs through l, using BatchLookup when l
// implements it and falling back to one BrainID call per message otherwise.
func LookupMany(ctx context.Context, l Lookup, sessionID string, messageIDs []string) (map[string]int, error) {
	if len(messageIDs) == 0 {
		return map[string]int{}, nil
	}
	if batch, ok := l.(BatchLookup); ok {
		return batch.BrainIDs(ctx, sessionID, messageIDs)
	}

	ids := make(map[string]int, len(messageIDs))
	for _, messageID := range messageIDs {
		id, ok, err := l.BrainID(ctx, sessionID, messageID)
		if err != nil {
			return nil, err
		}
		if ok {
			ids[messageID] = id
		}
	}
	return ids, nil
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu  sync.RWMutex
	ids map[string]map[string]int
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{ids: make(map[string]map[string]int)}
}

// BrainID implements Lookup.
func (m *Memory) BrainID(_ context.Context, sessionID, messageID string) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.ids[sessionID][messageID]
	return id, ok, nil
}

// BrainIDs implements BatchLookup.
func (m *Memory) BrainIDs(_ context.Context, sessionID string, messageIDs []string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session := m.ids[sessionID]
	ids := make(map[string]int, len(messageIDs))
	for _, messageID := range messageIDs {
		if id, ok := session[messageID]; ok {
			ids[messageID] = id
		}
	}
	return ids, nil
}

// SetBrainID implements Store.
func (m *Memory) SetBrainID(_ context.Context, sessionID, messageID string, brainID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.ids[sessionID]
	if !ok {
		session = make(map[string]int)
		m.ids[sessionID] = session
	}
	session[messageID] = brainID
	return nil
}

// ClearSession implements Store.
func (m *Memory) ClearSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ids, sessionID)
	return nil
}

// Has reports whether an id is recorded for the message.
func (m *Memory) Has(sessionID, messageID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[sessionID][messageID]
	return ok
}

// Len returns the number of ids recorded for sessionID.
func (m *Memory) Len(sessionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids[sessionID])
}
