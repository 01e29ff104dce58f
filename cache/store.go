// Package cache holds the session-keyed state that makes repeated GC cycles
// idempotent: the deepest compression tier applied per message, and the set
// of messages already handled by write-through.
//
// Entries live until the session is cleared. There is no expiry.
package cache

import (
	"sync"

	"github.com/youssefsiam38/contextgc/types"
)

// Store is safe for concurrent use across sessions.
type Store struct {
	tiersMu sync.RWMutex
	tiers   map[string]map[string]types.Tier

	processedMu sync.RWMutex
	processed   map[string]map[string]struct{}
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		tiers:     make(map[string]map[string]types.Tier),
		processed: make(map[string]map[string]struct{}),
	}
}

// IsProcessed reports whether messageID was already handled for sessionID.
func (s *Store) IsProcessed(sessionID, messageID string) bool {
	s.processedMu.RLock()
	defer s.processedMu.RUnlock()

	_, ok := s.processed[sessionID][messageID]
	return ok
}

// MarkProcessed records messageID as handled.
func (s *Store) MarkProcessed(sessionID, messageID string) {
	s.processedMu.Lock()
	defer s.processedMu.Unlock()

	set, ok := s.processed[sessionID]
	if !ok {
		set = make(map[string]struct{})
		s.processed[sessionID] = set
	}
	set[messageID] = struct{}{}
}

// ProcessedCount returns how many messages of sessionID are marked processed.
func (s *Store) ProcessedCount(sessionID string) int {
	s.processedMu.RLock()
	defer s.processedMu.RUnlock()
	return len(s.processed[sessionID])
}

// ClearProcessed forgets the processed set of sessionID.
func (s *Store) ClearProcessed(sessionID string) {
	s.processedMu.Lock()
	defer s.processedMu.Unlock()
	delete(s.processed, sessionID)
}

// Tier returns the deepest tier recorded for the message.
func (s *Store) Tier(sessionID, messageID string) (types.Tier, bool) {
	s.tiersMu.RLock()
	defer s.tiersMu.RUnlock()

	tier, ok := s.tiers[sessionID][messageID]
	return tier, ok
}

// SetTier records tier for the message. A shallower tier never replaces a
// deeper one.
func (s *Store) SetTier(sessionID, messageID string, tier types.Tier) {
	s.tiersMu.Lock()
	defer s.tiersMu.Unlock()

	records, ok := s.tiers[sessionID]
	if !ok {
		records = make(map[string]types.Tier)
		s.tiers[sessionID] = records
	}
	if current, ok := records[messageID]; ok && current.AtLeast(tier) {
		return
	}
	records[messageID] = tier
}

// IsCompressedAt reports whether the message was already compressed at tier
// or deeper.
func (s *Store) IsCompressedAt(sessionID, messageID string, tier types.Tier) bool {
	current, ok := s.Tier(sessionID, messageID)
	return ok && current.AtLeast(tier)
}

// ClearTiers forgets the tier records of sessionID.
func (s *Store) ClearTiers(sessionID string) {
	s.tiersMu.Lock()
	defer s.tiersMu.Unlock()
	delete(s.tiers, sessionID)
}

// ClearSession forgets everything recorded for sessionID.
func (s *Store) ClearSession(sessionID string) {
	s.ClearTiers(sessionID)
	s.ClearProcessed(sessionID)
}
